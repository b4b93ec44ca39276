package extraction

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// TimeSource provides the current time. Date validation rejects
// receipts dated in the future or more than ten years back, so tests
// inject a fixed source to stay deterministic.
type TimeSource interface {
	Now() time.Time
}

type systemTimeSource struct{}

func (systemTimeSource) Now() time.Time {
	return time.Now()
}

// Extractor turns raw OCR text into a structured Receipt.
type Extractor struct {
	merchants  []string
	timeSource TimeSource
}

// NewExtractor creates an Extractor with the default UK merchant list
// and the system clock.
func NewExtractor() *Extractor {
	return NewExtractorWithDeps(UKMerchants, systemTimeSource{})
}

// NewExtractorWithDeps creates an Extractor with a custom merchant list
// and time source.
func NewExtractorWithDeps(merchants MerchantList, timeSource TimeSource) *Extractor {
	return &Extractor{
		merchants:  merchants.merged(),
		timeSource: timeSource,
	}
}

// Extract runs all field detectors over the raw OCR text and assembles
// the result. Detectors are independent: one coming up empty never
// blocks the others, and empty input yields an all-null receipt rather
// than an error so callers can always render something for review.
func (e *Extractor) Extract(rawText string) *Receipt {
	receipt := &Receipt{
		RawText:   rawText,
		LineItems: []LineItem{},
	}
	if strings.TrimSpace(rawText) == "" {
		return receipt
	}

	upper := strings.ToUpper(rawText)
	lines := strings.Split(rawText, "\n")

	if merchant, confidence := e.findMerchant(lines); merchant != "" {
		receipt.Merchant = merchant
		receipt.Confidence.Merchant = confidence
	}
	if date, confidence := e.findDate(upper); date != nil {
		receipt.Date = date
		receipt.Confidence.Date = confidence
	}
	if amount, confidence := findAmount(upper); amount != nil {
		receipt.Total = amount
		receipt.Confidence.Amount = confidence
	}
	receipt.Tax = findTax(upper)
	receipt.LineItems = extractLineItems(lines)

	return receipt
}

// findMerchant scans the first 5 non-empty lines for a known merchant
// name. A known name found in the first 2 lines scores 100, further
// down 90. Failing that, the first non-empty line is used verbatim at
// confidence 50 if it looks like a name at all.
func (e *Extractor) findMerchant(lines []string) (string, int) {
	scanned := make([]string, 0, 5)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		scanned = append(scanned, strings.ToUpper(trimmed))
		if len(scanned) == 5 {
			break
		}
	}

	for i, line := range scanned {
		for _, name := range e.merchants {
			if strings.Contains(line, name) {
				if i < 2 {
					return name, 100
				}
				return name, 90
			}
		}
	}

	if len(scanned) > 0 && looksLikeName(scanned[0]) {
		return scanned[0], 50
	}
	return "", 0
}

// looksLikeName reports whether a line is plausible as a merchant name:
// longer than 2 characters with a majority of letters.
func looksLikeName(s string) bool {
	runes := []rune(s)
	if len(runes) <= 2 {
		return false
	}
	letters := 0
	for _, r := range runes {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters*2 > len(runes)
}

// datePattern pairs a regex with a parser for its capture groups and
// the confidence awarded when it produces a valid date. New formats are
// added here, not in findDate.
type datePattern struct {
	re         *regexp.Regexp
	confidence int
	parse      func(groups []string) (day int, month time.Month, year int, ok bool)
}

var monthAbbrevs = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

var datePatterns = []datePattern{
	{
		// DD/MM/YYYY or DD-MM-YYYY
		re:         regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`),
		confidence: 100,
		parse: func(g []string) (int, time.Month, int, bool) {
			day, month, year, ok := atoi3(g[1], g[2], g[3])
			return day, time.Month(month), year, ok
		},
	},
	{
		// DD/MM/YY, two-digit year carries an ambiguity penalty
		re:         regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2})\b`),
		confidence: 85,
		parse: func(g []string) (int, time.Month, int, bool) {
			day, month, year, ok := atoi3(g[1], g[2], g[3])
			// strptime-style pivot; the validity window rejects the
			// 19xx arm anyway
			if year <= 68 {
				year += 2000
			} else {
				year += 1900
			}
			return day, time.Month(month), year, ok
		},
	},
	{
		// DD MMM YYYY, e.g. "17 OCT 2024" or "17 OCTOBER 2024"
		re:         regexp.MustCompile(`\b(\d{1,2})\s+(JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)[A-Z]*\s+(\d{4})\b`),
		confidence: 100,
		parse: func(g []string) (int, time.Month, int, bool) {
			day, err1 := strconv.Atoi(g[1])
			year, err2 := strconv.Atoi(g[3])
			month, known := monthAbbrevs[g[2]]
			return day, month, year, err1 == nil && err2 == nil && known
		},
	},
	{
		// YYYY-MM-DD or YYYY/MM/DD
		re:         regexp.MustCompile(`\b(\d{4})[-/](\d{1,2})[-/](\d{1,2})\b`),
		confidence: 100,
		parse: func(g []string) (int, time.Month, int, bool) {
			year, month, day, ok := atoi3(g[1], g[2], g[3])
			return day, time.Month(month), year, ok
		},
	},
}

func atoi3(a, b, c string) (int, int, int, bool) {
	x, err1 := strconv.Atoi(a)
	y, err2 := strconv.Atoi(b)
	z, err3 := strconv.Atoi(c)
	return x, y, z, err1 == nil && err2 == nil && err3 == nil
}

// findDate tries each date pattern in order and returns the first match
// that yields a valid date. Malformed dates (month 13, day 32) are
// skipped silently and the scan continues.
func (e *Extractor) findDate(text string) (*time.Time, int) {
	for _, pattern := range datePatterns {
		for _, groups := range pattern.re.FindAllStringSubmatch(text, -1) {
			day, month, year, ok := pattern.parse(groups)
			if !ok {
				continue
			}
			date, valid := e.validDate(day, month, year)
			if valid {
				return &date, pattern.confidence
			}
		}
	}
	return nil, 0
}

// validDate builds a calendar date and checks it is real, not in the
// future, and not more than 10 years old.
func (e *Extractor) validDate(day int, month time.Month, year int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day || date.Month() != month || date.Year() != year {
		return time.Time{}, false
	}
	now := e.timeSource.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date.After(today) || date.Before(today.AddDate(-10, 0, 0)) {
		return time.Time{}, false
	}
	return date, true
}

// amountPattern pairs a currency regex with its confidence tier.
type amountPattern struct {
	re         *regexp.Regexp
	confidence int
}

const currencyValue = `(\d+(?:,\d{3})*\.\d{2})`

var amountPatterns = []amountPattern{
	// keyword-anchored totals
	{regexp.MustCompile(`\b(?:GRAND\s+TOTAL|TOTAL|BALANCE|AMOUNT\s+DUE|TO\s+PAY)\b[\s:]*£?\s*` + currencyValue), 100},
	// bare currency code
	{regexp.MustCompile(`\bGBP\s*` + currencyValue), 80},
	// bare currency symbol, no keyword context
	{regexp.MustCompile(`£\s*` + currencyValue), 70},
}

type amountCandidate struct {
	amount     decimal.Decimal
	confidence int
}

// findAmount collects every monetary value near a keyword context and
// returns the best one: highest confidence first, and among equally
// confident matches the largest amount, so a grand total beats
// subtotals and line items.
func findAmount(text string) (*decimal.Decimal, int) {
	var candidates []amountCandidate
	for _, pattern := range amountPatterns {
		for _, groups := range pattern.re.FindAllStringSubmatch(text, -1) {
			amount, err := parseCurrency(groups[1])
			if err != nil {
				// OCR noise captured as a non-numeric group
				continue
			}
			candidates = append(candidates, amountCandidate{amount, pattern.confidence})
		}
	}
	if len(candidates) == 0 {
		return nil, 0
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].confidence != candidates[j].confidence {
			return candidates[i].confidence > candidates[j].confidence
		}
		return candidates[i].amount.GreaterThan(candidates[j].amount)
	})
	best := candidates[0]
	return &best.amount, best.confidence
}

var taxPattern = regexp.MustCompile(`(?:\bVAT\b|\bTAX\b|20%)[\s:]*£?\s*` + currencyValue)

// findTax returns the first VAT/tax value found, or nil. No confidence
// is tracked; the field is supplementary.
func findTax(text string) *decimal.Decimal {
	groups := taxPattern.FindStringSubmatch(text)
	if groups == nil {
		return nil
	}
	amount, err := parseCurrency(groups[1])
	if err != nil {
		return nil
	}
	return &amount
}

var lineItemPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9 .,'&/%*-]*?)\s+£?(\d+\.\d{2})\s*$`)

// Lines whose description contains one of these are payment or summary
// lines, not purchased goods.
var lineItemStopWords = []string{"TOTAL", "BALANCE", "CHANGE", "CASH", "CARD"}

// extractLineItems captures "description followed by trailing price"
// lines, filtering out summary and payment rows.
func extractLineItems(lines []string) []LineItem {
	items := []LineItem{}
	for _, line := range lines {
		groups := lineItemPattern.FindStringSubmatch(strings.TrimSpace(line))
		if groups == nil {
			continue
		}
		description := strings.TrimSpace(groups[1])
		if containsStopWord(description) {
			continue
		}
		amount, err := parseCurrency(groups[2])
		if err != nil {
			continue
		}
		items = append(items, LineItem{Description: description, Amount: amount})
	}
	return items
}

func containsStopWord(description string) bool {
	upper := strings.ToUpper(description)
	for _, word := range lineItemStopWords {
		if strings.Contains(upper, word) {
			return true
		}
	}
	return false
}

// parseCurrency parses a captured currency group, tolerating thousands
// separators.
func parseCurrency(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}
