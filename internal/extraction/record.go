package extraction

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxItemPrice is the upper sanity bound for a single line item price
var MaxItemPrice = decimal.NewFromInt(10000)

// Record holds the structured data extracted from a single receipt
type Record struct {
	Vendor   string            `json:"vendor"`
	Total    decimal.Decimal   `json:"total"`
	Date     *time.Time        `json:"date,omitempty"`
	Time     string            `json:"time,omitempty"` // HH:MM
	Items    []LineItem        `json:"items"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// LineItem is one purchased product on a receipt
type LineItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// NewLineItem validates and creates a line item with a quantity of 1
func NewLineItem(name string, price decimal.Decimal) (LineItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return LineItem{}, &ItemValidationError{Name: name, Price: price, Reason: "name is empty"}
	}
	if !price.IsPositive() {
		return LineItem{}, &ItemValidationError{Name: name, Price: price, Reason: "price must be positive"}
	}
	if price.GreaterThan(MaxItemPrice) {
		return LineItem{}, &ItemValidationError{
			Name:   name,
			Price:  price,
			Reason: fmt.Sprintf("price exceeds %s", MaxItemPrice),
		}
	}
	return LineItem{Name: name, Price: price, Quantity: 1}, nil
}

// WithQuantity returns a copy of the item with the given quantity
func (i LineItem) WithQuantity(quantity int) (LineItem, error) {
	if quantity <= 0 {
		return LineItem{}, &ItemValidationError{
			Name:   i.Name,
			Price:  i.Price,
			Reason: fmt.Sprintf("quantity must be positive, got %d", quantity),
		}
	}
	i.Quantity = quantity
	return i, nil
}

// newRecord creates an empty record for the given vendor label
func newRecord(vendor string) *Record {
	if vendor == "" {
		vendor = UnknownVendor
	}
	return &Record{
		Vendor:   vendor,
		Total:    decimal.Zero,
		Items:    make([]LineItem, 0),
		Metadata: make(map[string]string),
	}
}

// hasData reports whether any field was populated by extraction
func (r *Record) hasData() bool {
	return !r.Total.IsZero() || r.Date != nil || r.Time != "" || len(r.Items) > 0 || len(r.Metadata) > 0
}
