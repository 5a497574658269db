package ocr

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var amountPattern = regexp.MustCompile(`^\d+\.\d{2}$`)

type amountField int

const (
	fieldTotal amountField = iota
	fieldSubtotal
	fieldTax
	fieldTip
	fieldDiscount
)

// amountLabels are matched against the whole lower-cased line
var amountLabels = map[string]amountField{
	"subtotal":       fieldSubtotal,
	"sub total":      fieldSubtotal,
	"sub-total":      fieldSubtotal,
	"tax":            fieldTax,
	"sales tax":      fieldTax,
	"take-out total": fieldTotal,
	"take out total": fieldTotal,
	"eat-in total":   fieldTotal,
	"total":          fieldTotal,
	"grand total":    fieldTotal,
	"tip":            fieldTip,
	"gratuity":       fieldTip,
	"discount":       fieldDiscount,
	"savings":        fieldDiscount,
}

type amounts struct {
	total    decimal.NullDecimal
	subtotal decimal.NullDecimal
	tax      decimal.NullDecimal
	tip      decimal.NullDecimal
	discount decimal.NullDecimal
}

func (a *amounts) field(f amountField) *decimal.NullDecimal {
	switch f {
	case fieldSubtotal:
		return &a.subtotal
	case fieldTax:
		return &a.tax
	case fieldTip:
		return &a.tip
	case fieldDiscount:
		return &a.discount
	default:
		return &a.total
	}
}

// extractAmounts reads each labelled amount from exactly offset lines after
// its label. If that line is not a plain amount the field stays unset.
func extractAmounts(lines []string, offset int) amounts {
	var a amounts
	for i, line := range lines {
		f, ok := amountLabels[labelKey(line)]
		if !ok {
			continue
		}
		target := a.field(f)
		if target.Valid {
			continue
		}
		j := i + offset
		if j >= len(lines) {
			continue
		}
		if v, ok := parseAmount(lines[j]); ok {
			*target = decimal.NewNullDecimal(v)
		}
	}
	return a
}

// labelKey lower-cases a line and collapses runs of whitespace
func labelKey(line string) string {
	return strings.ToLower(strings.Join(strings.Fields(line), " "))
}

// parseAmount parses a line that is exactly a non-negative 2-place amount
func parseAmount(line string) (decimal.Decimal, bool) {
	if !amountPattern.MatchString(line) {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(line)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}
