package scanning

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-ocr/internal/ocr"
)

// dateLayouts are the date formats models tend to return instead of ISO 8601
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// llmItem tolerates fractional quantities
type llmItem struct {
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   float64         `json:"quantity"`
	Category   string          `json:"category"`
	Confidence float64         `json:"confidence"`
}

type llmReceipt struct {
	Merchant      string              `json:"merchant"`
	Address       string              `json:"address"`
	Phone         string              `json:"phone"`
	Date          string              `json:"date"`
	Time          string              `json:"time"`
	Total         decimal.Decimal     `json:"total"`
	Subtotal      decimal.NullDecimal `json:"subtotal"`
	Tax           decimal.NullDecimal `json:"tax"`
	Tip           decimal.NullDecimal `json:"tip"`
	Discount      decimal.NullDecimal `json:"discount"`
	Items         []llmItem           `json:"items"`
	PaymentMethod ocr.PaymentInfo     `json:"payment_method"`
	Category      string              `json:"category"`
	Confidence    float64             `json:"confidence"`
}

// parseReceiptJSON parses the JSON response from a model into a normalized receipt
func parseReceiptJSON(text string, now time.Time) (*ocr.ParsedReceipt, error) {
	text = stripCodeFence(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return nil, errors.New("no JSON object found in response")
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return nil, errors.New("invalid JSON object in response")
	}

	var data llmReceipt
	if err := json.Unmarshal([]byte(text[start:end+1]), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	r := &ocr.ParsedReceipt{
		Merchant:      data.Merchant,
		Address:       data.Address,
		Phone:         data.Phone,
		Date:          normalizeDate(data.Date),
		Time:          data.Time,
		Total:         data.Total,
		Subtotal:      data.Subtotal,
		Tax:           data.Tax,
		Tip:           data.Tip,
		Discount:      data.Discount,
		Items:         make([]ocr.ReceiptItem, 0, len(data.Items)),
		PaymentMethod: data.PaymentMethod,
		Category:      ocr.ReceiptCategory(data.Category),
		Confidence:    data.Confidence,
	}
	for _, item := range data.Items {
		r.Items = append(r.Items, ocr.ReceiptItem{
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   int(math.Round(item.Quantity)),
			Category:   ocr.ItemCategory(item.Category),
			Confidence: item.Confidence,
		})
	}

	return ocr.Normalize(r, now), nil
}

// stripCodeFence removes a surrounding markdown code block, if present
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// normalizeDate converts a date in any of dateLayouts to YYYY-MM-DD. Anything
// else is returned unchanged and left for ocr.Normalize to replace.
func normalizeDate(date string) string {
	date = strings.TrimSpace(date)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, date); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return date
}
