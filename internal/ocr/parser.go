// Package ocr turns raw OCR text into a structured receipt.
//
// The parser is a set of independent heuristic passes over the same list of
// trimmed lines. It is tuned against a small number of known receipt layouts
// and degrades to defaults (with a lower confidence score) for everything it
// cannot recognize. It never returns an error.
package ocr

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLabelOffset is how many lines after a "Subtotal"/"Tax"/"Total"
// label the amount is expected. Measured on a single take-out receipt layout.
const DefaultLabelOffset = 10

const dateLayout = "2006-01-02"

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Parser extracts structured receipts from OCR text. It holds no mutable
// state and is safe for concurrent use.
type Parser struct {
	clock       TimeSource
	labelOffset int
}

// Option configures a Parser
type Option func(*Parser)

// WithClock sets the time source used for the default receipt date
func WithClock(clock TimeSource) Option {
	return func(p *Parser) {
		p.clock = clock
	}
}

// WithLabelOffset overrides DefaultLabelOffset. Values below 1 are ignored.
func WithLabelOffset(offset int) Option {
	return func(p *Parser) {
		if offset > 0 {
			p.labelOffset = offset
		}
	}
}

// NewParser creates a Parser
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		clock:       systemClock{},
		labelOffset: DefaultLabelOffset,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// Parse parses text with the default parser
func Parse(text string) *ParsedReceipt {
	return defaultParser.Parse(text)
}

// Parse converts OCR text into a ParsedReceipt. Every field gets a default
// when the heuristics find nothing.
func (p *Parser) Parse(text string) *ParsedReceipt {
	lines := splitLines(text)

	date, dateFound := extractDate(lines, p.clock.Now())
	amounts := extractAmounts(lines, p.labelOffset)

	receipt := &ParsedReceipt{
		Merchant: extractMerchant(text, lines),
		Address:  extractAddress(lines),
		Phone:    extractPhone(lines),
		Date:     date,
		Time:     extractTime(lines),
		Total:    decimal.Zero,
		Subtotal: amounts.subtotal,
		Tax:      amounts.tax,
		Tip:      amounts.tip,
		Discount: amounts.discount,
		Items:    extractItems(lines),
		RawText:  text,
	}
	if amounts.total.Valid {
		receipt.Total = amounts.total.Decimal
	}

	receipt.PaymentMethod = extractPaymentMethod(lines, receipt.Total)
	receipt.Category = categorizeReceipt(receipt.Merchant, receipt.Items)
	receipt.Confidence = scoreReceipt(receipt, dateFound)

	return receipt
}

var lineBreak = regexp.MustCompile(`\r?\n|\r`)

// splitLines returns the non-empty trimmed lines of text, in order
func splitLines(text string) []string {
	raw := lineBreak.Split(text, -1)
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// containsAny reports whether s contains any of the substrings
func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
