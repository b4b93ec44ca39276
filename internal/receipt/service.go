package receipt

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/HairyGair/taxhelper/internal/extraction"
	"github.com/HairyGair/taxhelper/internal/matching"
	"github.com/HairyGair/taxhelper/internal/ocr"
)

// IDGenerator generates unique IDs for receipts and transactions
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// systemTimeSource provides the current time
type systemTimeSource struct{}

func (t *systemTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles receipt and transaction operations
type Service struct {
	db          DB
	engine      ocr.Engine
	storage     Storage
	extractor   *extraction.Extractor
	matchConfig matching.Config
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with the default extractor, match
// configuration, ID generator and time source
func NewService(db DB, engine ocr.Engine, storage Storage) *Service {
	return &Service{
		db:          db,
		engine:      engine,
		storage:     storage,
		extractor:   extraction.NewExtractor(),
		matchConfig: matching.DefaultConfig(),
		idGenerator: &uuidGenerator{},
		timeSource:  &systemTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for
// testing
func NewServiceWithDeps(db DB, engine ocr.Engine, storage Storage, extractor *extraction.Extractor, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		engine:      engine,
		storage:     storage,
		extractor:   extractor,
		matchConfig: matching.DefaultConfig(),
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// sanitizeFilename cleans up a filename by removing special characters
// and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	// Keep only alphanumeric, spaces, hyphens, and underscores
	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	// Phone-generated filenames can be absurdly long
	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// ProcessReceipt stores an uploaded receipt image, runs text
// recognition over it, extracts the structured fields and persists the
// result. A failed recognition is the one hard error here; a receipt
// the extractor can't make sense of still comes back, just with empty
// fields and zero confidence for manual review.
func (s *Service) ProcessReceipt(filename string, data []byte, contentType string) (*Receipt, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	cleanFilename := sanitizeFilename(filename)
	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	rawText, err := s.engine.RecognizeText(data, contentType)
	if err != nil {
		slog.Error("Failed to recognize receipt text",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		// Clean up the saved file since recognition failed
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("recognizing receipt text: %w", err)
	}

	extracted := s.extractor.Extract(rawText)

	receipt := &Receipt{
		ID:          id,
		Merchant:    extracted.Merchant,
		Date:        extracted.Date,
		Total:       extracted.Total,
		Tax:         extracted.Tax,
		LineItems:   extracted.LineItems,
		Confidence:  extracted.Confidence,
		RawText:     extracted.RawText,
		Filename:    savedPath,
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		// Clean up file if database save fails
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	return receipt, nil
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt and its file
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if err := s.storage.Delete(receipt.Filename); err != nil {
		// Log error but continue with database deletion
		slog.Warn("Failed to delete file", "filename", receipt.Filename, "error", err)
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the original image data for a receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, receipt.ContentType, nil
}

// Correction carries manually verified field values. Only non-nil
// fields are applied.
type Correction struct {
	Merchant *string
	Date     *time.Time
	Total    *decimal.Decimal
	Tax      *decimal.Decimal
}

// CorrectReceipt applies manual corrections to a receipt. A corrected
// field is ground truth, so its confidence moves to 100.
func (s *Service) CorrectReceipt(id string, correction Correction) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt for correction: %w", err)
	}

	if correction.Merchant != nil {
		receipt.Merchant = *correction.Merchant
		receipt.Confidence.Merchant = 100
	}
	if correction.Date != nil {
		receipt.Date = correction.Date
		receipt.Confidence.Date = 100
	}
	if correction.Total != nil {
		receipt.Total = correction.Total
		receipt.Confidence.Amount = 100
	}
	if correction.Tax != nil {
		receipt.Tax = correction.Tax
	}
	receipt.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveReceipt(receipt); err != nil {
		return nil, fmt.Errorf("saving corrected receipt: %w", err)
	}
	return receipt, nil
}

// ImportTransactions saves a batch of bank transactions. Transactions
// without an ID get one assigned.
func (s *Service) ImportTransactions(transactions []Transaction) ([]*Transaction, error) {
	if len(transactions) == 0 {
		return nil, fmt.Errorf("at least one transaction is required")
	}

	now := s.timeSource.Now()
	saved := make([]*Transaction, 0, len(transactions))
	for i := range transactions {
		transaction := transactions[i]
		if transaction.ID == "" {
			transaction.ID = s.idGenerator.Generate()
		}
		transaction.CreatedAt = now
		if err := s.db.SaveTransaction(&transaction); err != nil {
			return nil, fmt.Errorf("saving transaction %s: %w", transaction.ID, err)
		}
		saved = append(saved, &transaction)
	}
	return saved, nil
}

// ListTransactions returns all imported transactions
func (s *Service) ListTransactions() ([]*Transaction, error) {
	transactions, err := s.db.ListTransactions()
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return transactions, nil
}

// MatchReceipt runs the matcher for one receipt against all imported
// transactions and, on an accepted match, links the receipt to the
// winning transaction.
func (s *Service) MatchReceipt(id string) (*matching.Result, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt for matching: %w", err)
	}

	transactions, err := s.db.ListTransactions()
	if err != nil {
		return nil, fmt.Errorf("listing transactions for matching: %w", err)
	}

	result := matching.Match(extractedView(receipt), candidates(transactions), s.matchConfig)
	if result.Matched {
		receipt.TransactionID = result.TransactionID
		receipt.MatchConfidence = result.Confidence
		receipt.UpdatedAt = s.timeSource.Now()
		if err := s.db.SaveReceipt(receipt); err != nil {
			return nil, fmt.Errorf("saving matched receipt: %w", err)
		}
	}
	return &result, nil
}

// MatchAllReceipts runs the matcher over every unlinked receipt.
// Receipts are independent, so one failing to match never affects the
// rest. Returns the per-receipt results keyed by receipt ID.
func (s *Service) MatchAllReceipts() (map[string]matching.Result, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts for matching: %w", err)
	}
	transactions, err := s.db.ListTransactions()
	if err != nil {
		return nil, fmt.Errorf("listing transactions for matching: %w", err)
	}

	pool := candidates(transactions)
	results := make(map[string]matching.Result)
	for _, receipt := range receipts {
		if receipt.TransactionID != "" {
			continue
		}
		result := matching.Match(extractedView(receipt), pool, s.matchConfig)
		results[receipt.ID] = result
		if !result.Matched {
			continue
		}
		receipt.TransactionID = result.TransactionID
		receipt.MatchConfidence = result.Confidence
		receipt.UpdatedAt = s.timeSource.Now()
		if err := s.db.SaveReceipt(receipt); err != nil {
			return nil, fmt.Errorf("saving matched receipt %s: %w", receipt.ID, err)
		}
	}
	return results, nil
}

// extractedView projects a stored receipt back into the shape the
// matcher consumes.
func extractedView(r *Receipt) *extraction.Receipt {
	return &extraction.Receipt{
		Merchant:   r.Merchant,
		Date:       r.Date,
		Total:      r.Total,
		Tax:        r.Tax,
		LineItems:  r.LineItems,
		Confidence: r.Confidence,
		RawText:    r.RawText,
	}
}

// candidates converts stored transactions into matcher candidates,
// preserving order so tie-breaking stays deterministic.
func candidates(transactions []*Transaction) []matching.Transaction {
	out := make([]matching.Transaction, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, matching.Transaction{
			ID:          t.ID,
			Date:        t.Date,
			Amount:      t.Amount,
			Description: t.Description,
		})
	}
	return out
}
