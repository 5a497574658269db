package ocr

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	cashPattern     = regexp.MustCompile(`(?i)\bcash\b`)
	giftCardPattern = regexp.MustCompile(`(?i)\bgift\s*card\b`)
	cardPattern     = regexp.MustCompile(`(?i)\b(visa|master\s?card|amex|american express|discover|card)\b\D*?(\d{4})\s*$`)
)

var cardBrands = map[string]string{
	"visa":             "Visa",
	"mastercard":       "Mastercard",
	"master card":      "Mastercard",
	"amex":             "American Express",
	"american express": "American Express",
	"discover":         "Discover",
}

// extractPaymentMethod applies the payment rules in priority order: cash,
// then gift card, then a card with trailing last four digits
func extractPaymentMethod(lines []string, total decimal.Decimal) PaymentInfo {
	info := PaymentInfo{
		Method:     PaymentUnknown,
		Amount:     total,
		Confidence: 0.2,
	}

	for _, line := range lines {
		if cashPattern.MatchString(line) {
			info.Method = PaymentCash
			info.Confidence = 0.9
			return info
		}
	}

	for _, line := range lines {
		if giftCardPattern.MatchString(line) {
			info.Method = PaymentGiftCard
			info.Confidence = 0.85
			return info
		}
	}

	for _, line := range lines {
		if m := cardPattern.FindStringSubmatch(line); m != nil {
			info.Method = PaymentCard
			info.CardBrand = cardBrands[strings.ToLower(m[1])]
			info.LastFourDigits = m[2]
			info.Confidence = 0.95
			return info
		}
	}

	return info
}
