package receipt

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/recipify/internal/detection"
	"github.com/zombor/recipify/internal/extraction"
	"github.com/zombor/recipify/internal/scanning"
)

// IDGenerator generates unique IDs for receipts
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

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles receipt operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	parser      *extraction.Parser
	detector    detection.Detector
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with a lenient parser, UUIDs and the wall clock
func NewService(db DB, scanner scanning.Scanner, storage Storage) *Service {
	return NewServiceWithDeps(db, scanner, storage, extraction.NewParser(), &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, parser *extraction.Parser, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		parser:      parser,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// SetParser replaces the extraction parser
func (s *Service) SetParser(parser *extraction.Parser) {
	s.parser = parser
}

// SetDetector enables object detection on scanned images
func (s *Service) SetDetector(detector detection.Detector) {
	s.detector = detector
}

var (
	filenameSpecialChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	filenameSpaces       = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)

	base = filenameSpecialChars.ReplaceAllString(base, "")
	base = filenameSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	// Truncate to reasonable length (50 chars for base, plus extension)
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}

	ext = filenameSpecialChars.ReplaceAllString(ext, "")
	if ext != "" {
		ext = "." + ext
	}
	return base + ext
}

// ParseText classifies and extracts raw receipt text without storing anything
func (s *Service) ParseText(text string) (*extraction.Result, error) {
	result, err := s.parser.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt text: %w", err)
	}
	return result, nil
}

// ProcessText parses raw receipt text and saves it as a receipt without a file
func (s *Service) ProcessText(text string) (*Receipt, error) {
	result, err := s.ParseText(text)
	if err != nil {
		return nil, err
	}

	now := s.timeSource.Now()
	receipt := &Receipt{
		ID:        s.idGenerator.Generate(),
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	receipt.applyResult(result)

	if err := s.db.SaveReceipt(receipt); err != nil {
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}
	return receipt, nil
}

// ScanReceipt stores the upload, runs OCR and detection, and parses the text.
// The receipt is not saved to the database.
func (s *Service) ScanReceipt(filename string, data []byte, contentType string) (*Receipt, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	text, err := s.scanner.ScanText(data, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	result, err := s.ParseText(text)
	if err != nil {
		slog.Warn("OCR text could not be parsed", "filename", filename, "error", err)
		s.storage.Delete(savedPath)
		return nil, err
	}

	receipt := &Receipt{
		ID:          id,
		Filename:    savedPath,
		ContentType: contentType,
		Text:        text,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	receipt.applyResult(result)

	if s.detector != nil {
		// Detection runs alongside OCR; a failure only loses the detections
		detections, err := s.detector.Detect(data, contentType)
		if err != nil {
			slog.Warn("Failed to run detection", "filename", filename, "error", err)
		} else {
			receipt.Detections = detections
		}
	}

	return receipt, nil
}

// ProcessReceipt scans an upload and saves the resulting receipt
func (s *Service) ProcessReceipt(filename string, data []byte, contentType string) (*Receipt, error) {
	receipt, err := s.ScanReceipt(filename, data, contentType)
	if err != nil {
		return nil, err
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		// Clean up file if database save fails
		s.storage.Delete(receipt.Filename)
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}
	return receipt, nil
}

// SaveReceipt saves a receipt, typically one returned by ScanReceipt and
// reviewed by the caller
func (s *Service) SaveReceipt(receipt *Receipt) (*Receipt, error) {
	now := s.timeSource.Now()
	if receipt.ID == "" {
		receipt.ID = s.idGenerator.Generate()
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = now
	}
	receipt.UpdatedAt = now
	if strings.TrimSpace(receipt.Vendor) == "" {
		receipt.Vendor = extraction.UnknownVendor
	}
	if receipt.Total.IsNegative() {
		return nil, fmt.Errorf("total must not be negative")
	}
	for _, item := range receipt.Items {
		if _, err := extraction.NewLineItem(item.Name, item.Price); err != nil {
			return nil, fmt.Errorf("validating receipt: %w", err)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("validating receipt: item %q has quantity %d", item.Name, item.Quantity)
		}
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
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

// ListReceipts returns all receipts, oldest first
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	sort.SliceStable(receipts, func(i, j int) bool {
		return receipts[i].CreatedAt.Before(receipts[j].CreatedAt)
	})
	return receipts, nil
}

// DeleteReceipt removes a receipt and its file
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if receipt.Filename != "" {
		if err := s.storage.Delete(receipt.Filename); err != nil {
			// Log error but continue with database deletion
			slog.Warn("Failed to delete file", "filename", receipt.Filename, "error", err)
		}
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the file data for a receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}
	if receipt.Filename == "" {
		return nil, "", fmt.Errorf("%w: receipt %s has no file", ErrNotFound, id)
	}

	data, err := s.storage.Get(receipt.Filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("%w: file for receipt %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, receipt.ContentType, nil
}
