package ocr

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var lastFourPattern = regexp.MustCompile(`^\d{4}$`)

var itemCategories = map[ItemCategory]bool{
	ItemFood: true, ItemBeverage: true, ItemGeneral: true,
	ItemHealthcare: true, ItemAutomotive: true, ItemGiftCard: true,
}

var receiptCategories = map[ReceiptCategory]bool{
	CategoryFoodDining: true, CategoryGroceries: true, CategoryHealthcare: true,
	CategoryTransportation: true, CategoryShopping: true, CategoryOther: true,
}

var paymentMethods = map[PaymentMethod]bool{
	PaymentCash: true, PaymentCard: true, PaymentGiftCard: true, PaymentUnknown: true,
}

// Normalize brings a receipt that did not come from Parser (for example an
// LLM response) in line with the ParsedReceipt invariants: defaults filled
// in, money non-negative with 2 places, confidences in [0,1] and labels
// restricted to the known sets. It modifies and returns r.
func Normalize(r *ParsedReceipt, now time.Time) *ParsedReceipt {
	if r == nil {
		r = &ParsedReceipt{}
	}

	r.Merchant = strings.TrimSpace(r.Merchant)
	if r.Merchant == "" {
		r.Merchant = UnknownMerchant
	}
	r.Address = strings.TrimSpace(r.Address)
	r.Phone = strings.TrimSpace(r.Phone)

	if _, err := time.Parse(dateLayout, r.Date); err != nil {
		r.Date = now.Format(dateLayout)
	}
	if r.Time != "" {
		r.Time = extractTime([]string{r.Time})
	}

	r.Total = money(r.Total)
	r.Subtotal = nullMoney(r.Subtotal)
	r.Tax = nullMoney(r.Tax)
	r.Tip = nullMoney(r.Tip)
	r.Discount = nullMoney(r.Discount)

	items := make([]ReceiptItem, 0, len(r.Items))
	for _, item := range r.Items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			continue
		}
		item.Price = money(item.Price)
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		if !itemCategories[item.Category] {
			item.Category = categorizeItem(item.Name)
		}
		item.Confidence = clampConfidence(item.Confidence)
		items = append(items, item)
	}
	r.Items = items

	pm := &r.PaymentMethod
	if !paymentMethods[pm.Method] {
		pm.Method = PaymentUnknown
	}
	if !lastFourPattern.MatchString(pm.LastFourDigits) {
		pm.LastFourDigits = ""
	}
	pm.CardBrand = strings.TrimSpace(pm.CardBrand)
	pm.Amount = money(pm.Amount)
	pm.Confidence = clampConfidence(pm.Confidence)

	if !receiptCategories[r.Category] {
		r.Category = categorizeReceipt(r.Merchant, r.Items)
	}
	r.Confidence = clampConfidence(r.Confidence)

	return r
}

func money(d decimal.Decimal) decimal.Decimal {
	return d.Abs().Round(2)
}

func nullMoney(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return decimal.NewNullDecimal(money(d.Decimal))
}
