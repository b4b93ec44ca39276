package extraction

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is a single purchased item captured from a receipt.
type LineItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Confidence holds the per-field extraction confidence (0-100).
// Every field is always present; 0 means the field was not found.
type Confidence struct {
	Merchant int `json:"merchant"`
	Date     int `json:"date"`
	Amount   int `json:"amount"`
}

// Receipt is the structured result of extracting one receipt's OCR text.
// Nil pointers / empty strings mean the field could not be extracted.
type Receipt struct {
	Merchant   string           `json:"merchant,omitempty"`
	Date       *time.Time       `json:"date,omitempty"`
	Total      *decimal.Decimal `json:"total,omitempty"`
	Tax        *decimal.Decimal `json:"tax,omitempty"`
	LineItems  []LineItem       `json:"line_items"`
	Confidence Confidence       `json:"confidence"`
	RawText    string           `json:"raw_text"`
}

// IsComplete reports whether merchant, date and amount were all found
// with at least the given confidence. Used to decide whether a receipt
// can be accepted automatically or needs manual review.
func (r *Receipt) IsComplete(threshold int) bool {
	if r.Merchant == "" || r.Date == nil || r.Total == nil {
		return false
	}
	return r.Confidence.Merchant >= threshold &&
		r.Confidence.Date >= threshold &&
		r.Confidence.Amount >= threshold
}
