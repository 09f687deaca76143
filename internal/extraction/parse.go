package extraction

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Warning flags a recoverable problem found while extracting a receipt
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of parsing one receipt text. Unrecognized receipts
// carry Error instead of a record.
type Result struct {
	Kind     VendorKind `json:"kind,omitempty"`
	Receipt  *Record    `json:"receipt,omitempty"`
	Error    string     `json:"error,omitempty"`
	Warnings []Warning  `json:"warnings,omitempty"`
}

// Failed reports whether the result is a soft error payload
func (r *Result) Failed() bool {
	return r.Error != ""
}

// Err returns ErrUnknownFormat for soft error payloads and nil otherwise
func (r *Result) Err() error {
	if r.Failed() {
		return ErrUnknownFormat
	}
	return nil
}

// Parser classifies receipt text and extracts a record from it
type Parser struct {
	logger *slog.Logger
	strict bool
}

// Option configures a Parser
type Option func(*Parser)

// WithLogger sets the logger used for extraction warnings
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithStrict makes an invalid line item fail the whole parse instead of
// being dropped
func WithStrict(strict bool) Option {
	return func(p *Parser) {
		p.strict = strict
	}
}

// NewParser creates a new Parser
func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// ParseReceiptData parses text with a lenient parser logging to slog.Default
func ParseReceiptData(text string) (*Result, error) {
	return defaultParser.Parse(text)
}

func (p *Parser) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}

// Parse classifies the text and applies the matching rule set. Only invalid
// input and strict-mode item failures return an error; missing fields are
// reported as warnings on the result.
func (p *Parser) Parse(text string) (*Result, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", ErrInvalidInput)
	}

	text = Normalize(text)
	kind := Classify(text)
	p.log().Debug("Classified receipt", "kind", kind)

	rec, warnings, err := ruleSets[kind].extract(text, p.strict)
	if err != nil {
		return nil, fmt.Errorf("parsing %s receipt: %w", kind, err)
	}

	if kind == Unknown && !rec.hasData() {
		p.log().Warn("Unknown receipt format", "length", len(text))
		return &Result{Kind: kind, Error: UnknownFormatMessage}, nil
	}

	warnings = validate(rec, warnings)
	for _, w := range warnings {
		p.log().Warn("Receipt extraction warning", "vendor", rec.Vendor, "field", w.Field, "message", w.Message)
	}

	return &Result{Kind: kind, Receipt: rec, Warnings: warnings}, nil
}

// validate flags a non-positive total and an empty item list
func validate(rec *Record, warnings []Warning) []Warning {
	if !rec.Total.IsPositive() && !hasWarning(warnings, FieldTotal) {
		warnings = append(warnings, Warning{Field: FieldTotal, Message: "total is not positive"})
	}
	if len(rec.Items) == 0 {
		warnings = append(warnings, Warning{Field: FieldItems, Message: "no line items found"})
	}
	return warnings
}

func hasWarning(warnings []Warning, field string) bool {
	for _, w := range warnings {
		if w.Field == field {
			return true
		}
	}
	return false
}
