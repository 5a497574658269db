package ocr

import "github.com/shopspring/decimal"

// UnknownMerchant is used when no merchant could be detected
const UnknownMerchant = "Unknown Merchant"

// ItemCategory classifies a single line item
type ItemCategory string

const (
	ItemFood       ItemCategory = "Food"
	ItemBeverage   ItemCategory = "Beverage"
	ItemGeneral    ItemCategory = "General"
	ItemHealthcare ItemCategory = "Healthcare"
	ItemAutomotive ItemCategory = "Automotive"
	ItemGiftCard   ItemCategory = "Gift Card"
)

// ReceiptCategory classifies a whole receipt
type ReceiptCategory string

const (
	CategoryFoodDining     ReceiptCategory = "Food & Dining"
	CategoryGroceries      ReceiptCategory = "Groceries"
	CategoryHealthcare     ReceiptCategory = "Healthcare"
	CategoryTransportation ReceiptCategory = "Transportation"
	CategoryShopping       ReceiptCategory = "Shopping"
	CategoryOther          ReceiptCategory = "Other"
)

// PaymentMethod is how the receipt was paid
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "Cash"
	PaymentCard     PaymentMethod = "Card"
	PaymentGiftCard PaymentMethod = "Gift Card"
	PaymentUnknown  PaymentMethod = "Unknown"
)

// ReceiptItem is a single purchased item
type ReceiptItem struct {
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Category   ItemCategory    `json:"category"`
	Confidence float64         `json:"confidence"`
}

// PaymentInfo describes the payment used on a receipt
type PaymentInfo struct {
	Method         PaymentMethod   `json:"method"`
	CardBrand      string          `json:"card_brand,omitempty"`
	LastFourDigits string          `json:"last_four_digits,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Confidence     float64         `json:"confidence"`
}

// ParsedReceipt is the structured result of parsing OCR text
type ParsedReceipt struct {
	Merchant      string              `json:"merchant"`
	Address       string              `json:"address,omitempty"`
	Phone         string              `json:"phone,omitempty"`
	Date          string              `json:"date"`           // YYYY-MM-DD
	Time          string              `json:"time,omitempty"` // HH:MM, 24h
	Total         decimal.Decimal     `json:"total"`
	Subtotal      decimal.NullDecimal `json:"subtotal"`
	Tax           decimal.NullDecimal `json:"tax"`
	Tip           decimal.NullDecimal `json:"tip"`
	Discount      decimal.NullDecimal `json:"discount"`
	Items         []ReceiptItem       `json:"items"`
	PaymentMethod PaymentInfo         `json:"payment_method"`
	Category      ReceiptCategory     `json:"category"`
	Confidence    float64             `json:"confidence"`
	RawText       string              `json:"raw_text"`
}
