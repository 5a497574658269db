package receipt

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-ocr/internal/logger"
	"github.com/zombor/receipt-ocr/internal/ocr"
	"github.com/zombor/receipt-ocr/internal/scanning"
)

var (
	// ErrNoScanner is returned for image uploads when no OCR engine is configured
	ErrNoScanner = errors.New("no OCR scanner configured")
	// ErrEmptyFile is returned for uploads with no content
	ErrEmptyFile = errors.New("file is empty")
)

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// Recorder receives parse and OCR outcomes
type Recorder interface {
	RecordParse(result ocr.Result, elapsed time.Duration)
	RecordOCRFailure(scanner string)
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

type nopRecorder struct{}

func (nopRecorder) RecordParse(ocr.Result, time.Duration) {}
func (nopRecorder) RecordOCRFailure(string) {}

// Service parses receipts and keeps a history of the results
type Service struct {
	db          DB
	scanner     scanning.Scanner
	pipeline    *ocr.Pipeline
	metrics     Recorder
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with a UUID generator and the system clock.
// scanner and metrics may be nil.
func NewService(db DB, scanner scanning.Scanner, pipeline *ocr.Pipeline, metrics Recorder) *Service {
	return NewServiceWithDeps(db, scanner, pipeline, metrics, uuidGenerator{}, defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, pipeline *ocr.Pipeline, metrics Recorder, idGen IDGenerator, timeSrc TimeSource) *Service {
	if pipeline == nil {
		pipeline = ocr.NewPipeline(nil, nil)
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Service{
		db:          db,
		scanner:     scanner,
		pipeline:    pipeline,
		metrics:     metrics,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up phone-generated names: special characters
// removed, whitespace collapsed and the base truncated to 50 characters
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(whitespaceRun.ReplaceAllString(base, " "))

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// ParseText parses OCR text that was produced elsewhere and stores the result
func (s *Service) ParseText(ctx context.Context, text string) (*Receipt, error) {
	return s.parseAndSave(ctx, &Receipt{OCRText: text})
}

// ProcessReceipt runs OCR over an uploaded image or PDF, parses the text and
// stores the result
func (s *Service) ProcessReceipt(ctx context.Context, filename string, data []byte, contentType string) (*Receipt, error) {
	if s.scanner == nil {
		return nil, ErrNoScanner
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	text, err := s.scanner.ExtractText(ctx, data, contentType)
	if err != nil {
		s.metrics.RecordOCRFailure(scanning.Name(s.scanner))
		logger.FromContext(ctx).Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	return s.parseAndSave(ctx, &Receipt{
		Filename:    sanitizeFilename(filename),
		ContentType: contentType,
		OCRText:     text,
	})
}

// ReparseReceipt runs the pipeline again over a stored receipt's OCR text
func (s *Service) ReparseReceipt(ctx context.Context, id string) (*Receipt, error) {
	existing, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return s.parseAndSave(ctx, existing)
}

func (s *Service) parseAndSave(ctx context.Context, receipt *Receipt) (*Receipt, error) {
	start := s.timeSource.Now()
	result := s.pipeline.Parse(ctx, receipt.OCRText)
	now := s.timeSource.Now()
	s.metrics.RecordParse(result, now.Sub(start))

	if receipt.ID == "" {
		receipt.ID = s.idGenerator.Generate()
		receipt.CreatedAt = now
	}
	receipt.UpdatedAt = now
	receipt.Source = result.Source
	receipt.Parsed = result.Receipt
	receipt.AssistError = ""
	if result.AssistErr != nil {
		receipt.AssistError = result.AssistErr.Error()
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	logger.FromContext(ctx).Info("Parsed receipt",
		"id", receipt.ID,
		"source", receipt.Source,
		"merchant", receipt.Parsed.Merchant,
		"total", receipt.Parsed.Total.StringFixed(2),
		"confidence", receipt.Parsed.Confidence,
	)
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

// ListReceipts returns all receipts, newest first
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt
func (s *Service) DeleteReceipt(id string) error {
	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

var csvHeader = []string{
	"id", "created_at", "source", "merchant", "date", "time", "category",
	"subtotal", "tax", "tip", "discount", "total", "payment_method",
	"card_brand", "last_four_digits", "item_count", "confidence",
}

// ExportCSV writes one row per stored receipt, newest first
func (s *Service) ExportCSV(w io.Writer) error {
	receipts, err := s.ListReceipts()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range receipts {
		if r.Parsed == nil {
			continue
		}
		p := r.Parsed
		row := []string{
			r.ID,
			r.CreatedAt.UTC().Format(time.RFC3339),
			string(r.Source),
			p.Merchant,
			p.Date,
			p.Time,
			string(p.Category),
			csvAmount(p.Subtotal),
			csvAmount(p.Tax),
			csvAmount(p.Tip),
			csvAmount(p.Discount),
			p.Total.StringFixed(2),
			string(p.PaymentMethod.Method),
			p.PaymentMethod.CardBrand,
			p.PaymentMethod.LastFourDigits,
			strconv.Itoa(len(p.Items)),
			strconv.FormatFloat(p.Confidence, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// csvAmount leaves unset amounts blank
func csvAmount(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}
