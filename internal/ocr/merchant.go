package ocr

import (
	"regexp"
	"slices"
	"strings"
)

// merchantScanLines is how many lines from the top are searched for a name
const merchantScanLines = 8

type brand struct {
	match string // lowercase substring
	name  string
}

// brandHints are searched in the whole text; a hit anywhere wins
var brandHints = []brand{
	{"mcdonald", "McDonald's"},
	{"montana restaurant", "Montana Restaurant"},
}

// knownBrands are only searched near the top of the receipt
var knownBrands = []brand{
	{"walmart", "Walmart"},
	{"wal-mart", "Walmart"},
	{"target", "Target"},
	{"costco", "Costco"},
	{"kroger", "Kroger"},
	{"safeway", "Safeway"},
	{"whole foods", "Whole Foods"},
	{"trader joe", "Trader Joe's"},
	{"walgreens", "Walgreens"},
	{"cvs", "CVS Pharmacy"},
	{"rite aid", "Rite Aid"},
	{"starbucks", "Starbucks"},
	{"dunkin", "Dunkin'"},
	{"burger king", "Burger King"},
	{"wendy's", "Wendy's"},
	{"taco bell", "Taco Bell"},
	{"chipotle", "Chipotle"},
	{"subway", "Subway"},
	{"home depot", "The Home Depot"},
	{"shell", "Shell"},
	{"chevron", "Chevron"},
	{"exxon", "Exxon"},
}

var merchantPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^[a-z][a-z'&.]*(?:\s+[a-z][a-z'&.]*){0,3}\s+(?:restaurant|cafe|grill|diner|bistro|bakery|pizzeria|kitchen|market|pharmacy|deli)$`),
	// Generic fallback: an all-caps line of 5-30 characters
	regexp.MustCompile(`^[A-Z][A-Z0-9&'.,\- ]{3,28}[A-Z0-9'.]$`),
}

// nonMerchantWords rule a line out as a merchant name (matched upper-case)
var nonMerchantWords = []string{
	"TOTAL", "TAX", "RECEIPT", "ORDER", "CASHIER", "REGISTER", "WELCOME",
	"THANK", "CHANGE", "CASH", "VISA", "MASTERCARD", "TEL", "PHONE", "DATE",
	"TIME", "SURVEY", "TRANS", "STORE #", "DRIVE THRU", "DRIVE-THRU",
	"NEW YORK", "LOS ANGELES", "CHICAGO", "HOUSTON", "PHOENIX", "PHILADELPHIA",
	"SAN ANTONIO", "SAN DIEGO", "DALLAS", "AUSTIN", "SEATTLE", "DENVER",
	"BOSTON", "MIAMI", "ATLANTA", "PORTLAND", "MISSOULA", "BILLINGS",
}

// headerWords open restaurant check headers ("TABLE 4", "SERVER: AMY")
var headerWords = []string{"TABLE", "SERVER", "GUEST", "GUESTS", "CHECK", "CHK"}

var (
	pricePattern   = regexp.MustCompile(`\d+\.\d{2}`)
	phonePattern   = regexp.MustCompile(`(?i)(?:^|\D)(?:TEL#?\s*:?\s*)?(\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4})(?:\D|$)`)
	addressPattern = regexp.MustCompile(`(?i)^\d+\s+(?:[a-z0-9.'#-]+\s+)*?(?:st|street|ave|avenue|rd|road|blvd|boulevard|dr|drive|ln|lane|way|hwy|highway|pkwy|parkway|ct|court|pl|place)\b`)
	datePattern    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})\b`)
)

// extractMerchant returns the merchant name or UnknownMerchant
func extractMerchant(text string, lines []string) string {
	lower := strings.ToLower(text)
	for _, hint := range brandHints {
		if strings.Contains(lower, hint.match) {
			return hint.name
		}
	}

	top := lines
	if len(top) > merchantScanLines {
		top = top[:merchantScanLines]
	}

	for _, line := range top {
		l := strings.ToLower(line)
		for _, b := range knownBrands {
			if strings.Contains(l, b.match) {
				return b.name
			}
		}
	}

	for _, line := range top {
		if !looksLikeMerchantLine(line) {
			continue
		}
		for _, pattern := range merchantPatterns {
			if pattern.MatchString(line) {
				return line
			}
		}
	}

	return UnknownMerchant
}

func looksLikeMerchantLine(line string) bool {
	if pricePattern.MatchString(line) ||
		phonePattern.MatchString(line) ||
		addressPattern.MatchString(line) ||
		datePattern.MatchString(line) {
		return false
	}
	upper := strings.ToUpper(line)
	if fields := strings.Fields(upper); len(fields) > 0 &&
		slices.Contains(headerWords, strings.TrimRight(fields[0], ":#.")) {
		return false
	}
	return !containsAny(upper, nonMerchantWords)
}

// extractPhone returns the first 10-digit phone number, without any TEL# prefix
func extractPhone(lines []string) string {
	for _, line := range lines {
		if m := phonePattern.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

// extractAddress returns the first line that starts like a street address
func extractAddress(lines []string) string {
	for _, line := range lines {
		if addressPattern.MatchString(line) {
			return line
		}
	}
	return ""
}
