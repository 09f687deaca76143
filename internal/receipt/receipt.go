package receipt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/recipify/internal/detection"
	"github.com/zombor/recipify/internal/extraction"
)

// Receipt represents a scanned receipt with its extracted data
type Receipt struct {
	ID          string                `json:"id"`
	Filename    string                `json:"filename,omitempty"`
	ContentType string                `json:"content_type,omitempty"`
	Text        string                `json:"text"` // Raw OCR text
	Kind        extraction.VendorKind `json:"kind"`
	Vendor      string                `json:"vendor"`
	Total       decimal.Decimal       `json:"total"`
	Date        *time.Time            `json:"date,omitempty"`
	Time        string                `json:"time,omitempty"`
	Items       []extraction.LineItem `json:"items"`
	Metadata    map[string]string     `json:"metadata,omitempty"`
	Warnings    []extraction.Warning  `json:"warnings,omitempty"`
	ParseError  string                `json:"parse_error,omitempty"` // Soft error from extraction
	Detections  []detection.Detection `json:"detections,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// FromResult builds an unsaved receipt from OCR text and its extraction result
func FromResult(text string, result *extraction.Result) *Receipt {
	r := &Receipt{Text: text}
	r.applyResult(result)
	return r
}

// applyResult copies an extraction result onto the receipt
func (r *Receipt) applyResult(result *extraction.Result) {
	r.Kind = result.Kind
	r.Warnings = result.Warnings
	r.ParseError = result.Error

	if result.Receipt == nil {
		r.Vendor = extraction.UnknownVendor
		r.Total = decimal.Zero
		r.Items = []extraction.LineItem{}
		return
	}

	rec := result.Receipt
	r.Vendor = rec.Vendor
	r.Total = rec.Total
	r.Date = rec.Date
	r.Time = rec.Time
	r.Items = rec.Items
	r.Metadata = rec.Metadata
}
