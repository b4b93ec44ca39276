package matching

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HairyGair/taxhelper/internal/extraction"
)

// Transaction is a candidate bank transaction. The matcher only reads;
// amounts may be signed (bank exports usually report debits as
// negative) and are compared by absolute value.
type Transaction struct {
	ID          string
	Date        time.Time
	Amount      decimal.Decimal
	Description string
}

// Result is the verdict of matching one receipt against a candidate
// pool.
type Result struct {
	Matched       bool     `json:"matched"`
	TransactionID string   `json:"transaction_id,omitempty"`
	Confidence    int      `json:"confidence"`
	Reasons       []string `json:"reasons"`
}

// Config tunes the matching behavior. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	// DateWindowDays is how many days apart a candidate may be and
	// still earn date points.
	DateWindowDays int
	// AmountTolerance is the maximum absolute difference for the
	// near-amount tier.
	AmountTolerance decimal.Decimal
	// AcceptScore is the minimum combined score for an automatic match.
	AcceptScore int
	// DateWeight and AmountWeight are the points for an exact date and
	// an exact amount. MerchantWeight is the points for a strong
	// merchant similarity; weak similarity earns half.
	DateWeight     int
	AmountWeight   int
	MerchantWeight int
}

// DefaultConfig returns the standard weights: date and amount are the
// high-precision signals at 40 each, merchant text is noisy and capped
// at 20, and the 60-point floor means an exact date plus an
// in-tolerance amount qualifies on its own.
func DefaultConfig() Config {
	return Config{
		DateWindowDays:  3,
		AmountTolerance: decimal.NewFromFloat(0.10),
		AcceptScore:     60,
		DateWeight:      40,
		AmountWeight:    40,
		MerchantWeight:  20,
	}
}

// Match scores every candidate on date proximity, amount proximity and
// merchant similarity, and returns the best one with a combined
// confidence and the reasons it won. Date and amount are mandatory
// matching keys on the receipt; merchant is advisory only. Never
// errors: any "can't match" case comes back as Matched=false with an
// explanatory reason.
func Match(receipt *extraction.Receipt, candidates []Transaction, cfg Config) Result {
	if len(candidates) == 0 {
		return Result{Reasons: []string{"No transactions available to match"}}
	}
	if receipt.Date == nil || receipt.Total == nil {
		return Result{Reasons: []string{"Incomplete receipt data"}}
	}

	var best *Transaction
	bestScore := 0
	var bestReasons []string

	for i := range candidates {
		candidate := &candidates[i]
		score, reasons := scoreCandidate(receipt, candidate, cfg)
		// strict comparison: the earliest-seen candidate wins ties
		if score > bestScore {
			best = candidate
			bestScore = score
			bestReasons = reasons
		}
	}

	if best == nil {
		return Result{Reasons: []string{"No matching transaction found"}}
	}

	if len(bestReasons) == 0 {
		bestReasons = []string{"No strong match"}
	}
	confidence := bestScore
	if confidence > 100 {
		confidence = 100
	}
	result := Result{
		Matched:    bestScore >= cfg.AcceptScore,
		Confidence: confidence,
		Reasons:    bestReasons,
	}
	// the transaction ID is only reported for accepted matches; a
	// below-floor best candidate is a suggestion, not a link
	if result.Matched {
		result.TransactionID = best.ID
	}
	return result
}

// scoreCandidate computes the additive score for one candidate. Reasons
// accumulate in date, amount, merchant order.
func scoreCandidate(receipt *extraction.Receipt, candidate *Transaction, cfg Config) (int, []string) {
	score := 0
	var reasons []string

	days := daysBetween(candidate.Date, *receipt.Date)
	switch {
	case days == 0:
		score += cfg.DateWeight
		reasons = append(reasons, "exact date match")
	case days <= cfg.DateWindowDays:
		score += 30 - 5*days
		reasons = append(reasons, fmt.Sprintf("date within %d days", days))
	}

	diff := candidate.Amount.Abs().Sub(*receipt.Total).Abs()
	switch {
	case diff.IsZero():
		score += cfg.AmountWeight
		reasons = append(reasons, "exact amount match")
	case diff.LessThanOrEqual(cfg.AmountTolerance):
		score += 30
		reasons = append(reasons, fmt.Sprintf("amount within £%s", diff.StringFixed(2)))
	}

	similarity := SimilarityRatio(receipt.Merchant, candidate.Description)
	switch {
	case similarity > 80:
		score += cfg.MerchantWeight
		reasons = append(reasons, fmt.Sprintf("merchant match (%.0f%%)", similarity))
	case similarity > 50:
		score += cfg.MerchantWeight / 2
		reasons = append(reasons, fmt.Sprintf("merchant similar (%.0f%%)", similarity))
	}

	return score, reasons
}

// daysBetween returns the absolute whole-day distance between two
// dates, ignoring any time-of-day component.
func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(a.Sub(b).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}
