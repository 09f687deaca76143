package extraction

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// UnknownFormatMessage is the soft error payload for receipts no rule set recognizes
const UnknownFormatMessage = "Unknown receipt format"

var (
	// ErrInvalidInput is returned when the text is empty, whitespace only or not valid UTF-8
	ErrInvalidInput = errors.New("invalid receipt text")

	// ErrUnknownFormat is returned by Result.Err for unrecognized receipts
	ErrUnknownFormat = errors.New("unknown receipt format")
)

// ItemValidationError reports a line item rejected at construction
type ItemValidationError struct {
	Name   string
	Price  decimal.Decimal
	Reason string
}

func (e *ItemValidationError) Error() string {
	return fmt.Sprintf("invalid line item %q (price %s): %s", e.Name, e.Price, e.Reason)
}
