package receipt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/HairyGair/taxhelper/internal/extraction"
)

// Receipt represents a stored receipt: the extracted fields plus the
// original file and OCR transcript kept for audit. Once matched,
// TransactionID links it to the bank transaction it was paid with.
type Receipt struct {
	ID              string                `json:"id"`
	Merchant        string                `json:"merchant,omitempty"`
	Date            *time.Time            `json:"date,omitempty"`
	Total           *decimal.Decimal      `json:"total,omitempty"`
	Tax             *decimal.Decimal      `json:"tax,omitempty"`
	LineItems       []extraction.LineItem `json:"line_items"`
	Confidence      extraction.Confidence `json:"confidence"`
	RawText         string                `json:"raw_text"`
	Filename        string                `json:"filename"`
	ContentType     string                `json:"content_type"`
	TransactionID   string                `json:"transaction_id,omitempty"`
	MatchConfidence int                   `json:"match_confidence,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// Transaction represents an imported bank transaction, the candidate
// pool for receipt matching. Amounts keep the sign the bank export
// used; matching compares absolute values.
type Transaction struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}
