package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field names used in rules and warnings
const (
	FieldTotal       = "total"
	FieldDate        = "date"
	FieldTime        = "time"
	FieldItems       = "items"
	FieldOrderType   = "order_type"
	FieldOrderStatus = "order_status"
	FieldOutlet      = "outlet"
)

// OCR output is noisy, so every pattern tolerates optional separators and
// look-alike glyphs instead of enforcing a strict layout.
var (
	totalPattern          = regexp.MustCompile(`(?i)\bTOTAL\s*[:\-]?\s*\$?\s*(\d+(?:\.\d+)?)`)
	cafeteriaTotalPattern = regexp.MustCompile(`(?i)\bTotal\s*\(IN[RK]\)\s*=\s*(\d+(?:\.\d+)?)`)
	monthFirstDatePattern = regexp.MustCompile(`\b(\d{2}/\d{2}/(?:\d{4}|\d{2}))\b`)
	dayFirstDatePattern   = regexp.MustCompile(`\b(\d{2}-\d{2}-\d{4})\b`)
	timePattern           = regexp.MustCompile(`\b(\d{2}:\d{2})\b`)
	orderTypePattern      = regexp.MustCompile(`(?im)\bOrder[ \t]*Type[ \t]*:[ \t]*(.*?)[ \t]*$`)
	orderStatusPattern    = regexp.MustCompile(`(?im)\bOrder[ \t]*Status[ \t]*:[ \t]*(.*?)[ \t]*$`)
	outletPattern         = regexp.MustCompile(`(?im)\bCafeteria\b[ \t]*[:\-]?[ \t]*(.*?)[ \t]*(?:\bOrder[ \t]*(?:Type|Status)[ \t]*:.*)?$`)

	// lineItemPattern matches one "name price" pair per line, optionally
	// followed by a tax flag such as "N" or "TX". Names containing digits are
	// ambiguous and may swallow part of the price column.
	lineItemPattern      = regexp.MustCompile(`(?m)^[ \t]*([\p{L}\p{N} ]*?\p{L}[\p{L}\p{N} ]*?)[ \t]+\$?(\d+\.\d{1,2})(?:[ \t]+[A-Z]{1,2})?[ \t]*$`)
	cafeteriaItemPattern = regexp.MustCompile(`([\p{L}\p{N}_]+)[ \t]+(\d+)[ \t]+[Xx][ \t]+(\d+(?:\.\d+)?)`)

	// summaryLinePattern marks names that are only a totals or tender label,
	// with an optional register number ("TAX 1")
	summaryLinePattern = regexp.MustCompile(`(?i)^[ \t]*(?:sub\s*total|total|tax|change(?:\s+due)?|cash|balance(?:\s+due)?|amount\s+due|tender(?:ed)?)(?:[ \t]+\d+)?[ \t]*$`)
)

// fieldRule extracts one record field from the first match of its pattern
type fieldRule struct {
	field      string
	pattern    *regexp.Regexp
	apply      func(r *Record, value string) error
	warnOnMiss bool
}

// itemRule extracts every line item its pattern matches
type itemRule struct {
	pattern *regexp.Regexp
	skip    *regexp.Regexp
	build   func(match []string) (LineItem, error)
}

// ruleSet is the full set of extraction rules for one receipt format
type ruleSet struct {
	vendor string
	fields []fieldRule
	items  []itemRule
}

var (
	totalRule = fieldRule{
		field:      FieldTotal,
		pattern:    totalPattern,
		apply:      setTotal,
		warnOnMiss: true,
	}
	cafeteriaTotalRule = fieldRule{
		field:   FieldTotal,
		pattern: cafeteriaTotalPattern,
		apply:   setTotal,
	}
	monthFirstDateRule = fieldRule{
		field:   FieldDate,
		pattern: monthFirstDatePattern,
		apply:   setDate("01/02/06", "01/02/2006"),
	}
	dayFirstDateRule = fieldRule{
		field:   FieldDate,
		pattern: dayFirstDatePattern,
		apply:   setDate("02-01-2006"),
	}
	timeRule = fieldRule{
		field:   FieldTime,
		pattern: timePattern,
		apply:   setTime,
	}
	orderTypeRule = fieldRule{
		field:   FieldOrderType,
		pattern: orderTypePattern,
		apply:   setMetadata(FieldOrderType),
	}
	orderStatusRule = fieldRule{
		field:   FieldOrderStatus,
		pattern: orderStatusPattern,
		apply:   setMetadata(FieldOrderStatus),
	}
	outletRule = fieldRule{
		field:   FieldOutlet,
		pattern: outletPattern,
		apply:   setMetadata(FieldOutlet),
	}

	lineItemRule = itemRule{
		pattern: lineItemPattern,
		skip:    summaryLinePattern,
		build:   buildLineItem,
	}
	cafeteriaItemRule = itemRule{
		pattern: cafeteriaItemPattern,
		build:   buildCafeteriaItem,
	}
)

// ruleSets is built once at startup and only read afterwards
var ruleSets = map[VendorKind]ruleSet{
	Walmart: {
		vendor: "Walmart",
		fields: []fieldRule{totalRule, monthFirstDateRule, timeRule},
		items:  []itemRule{lineItemRule},
	},
	TraderJoes: {
		vendor: "Trader Joe's",
		fields: []fieldRule{totalRule, monthFirstDateRule, timeRule},
		items:  []itemRule{lineItemRule},
	},
	Cafeteria: {
		vendor: "Cafeteria",
		fields: []fieldRule{
			cafeteriaTotalRule,
			dayFirstDateRule,
			timeRule,
			orderTypeRule,
			orderStatusRule,
			outletRule,
		},
		items: []itemRule{cafeteriaItemRule},
	},
	Unknown: {
		vendor: UnknownVendor,
		fields: []fieldRule{
			cafeteriaTotalRule,
			{field: FieldTotal, pattern: totalPattern, apply: setTotal},
			monthFirstDateRule,
			dayFirstDateRule,
			timeRule,
			orderTypeRule,
			orderStatusRule,
		},
		items: []itemRule{cafeteriaItemRule, lineItemRule},
	},
}

// extract applies the rule set to normalized text. In strict mode the first
// invalid line item aborts extraction.
func (rs ruleSet) extract(text string, strict bool) (*Record, []Warning, error) {
	rec := newRecord(rs.vendor)
	var warnings []Warning
	matched := make(map[string]bool)
	warned := make(map[string]bool)

	for _, rule := range rs.fields {
		if matched[rule.field] {
			continue
		}
		m := rule.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if err := rule.apply(rec, m[1]); err != nil {
			warnings = append(warnings, Warning{Field: rule.field, Message: err.Error()})
			warned[rule.field] = true
			continue
		}
		matched[rule.field] = true
	}

	for _, rule := range rs.fields {
		if !rule.warnOnMiss || matched[rule.field] || warned[rule.field] {
			continue
		}
		warnings = append(warnings, Warning{
			Field:   rule.field,
			Message: fmt.Sprintf("could not extract %s", rule.field),
		})
		warned[rule.field] = true
	}

	for _, ir := range rs.items {
		candidates := 0
		for _, m := range ir.pattern.FindAllStringSubmatch(text, -1) {
			if ir.skip != nil && ir.skip.MatchString(m[1]) {
				continue
			}
			candidates++
			item, err := ir.build(m)
			if err != nil {
				if strict {
					return nil, nil, fmt.Errorf("extracting items: %w", err)
				}
				warnings = append(warnings, Warning{Field: FieldItems, Message: err.Error()})
				continue
			}
			rec.Items = append(rec.Items, item)
		}
		if candidates > 0 {
			break
		}
	}

	return rec, warnings, nil
}

func setTotal(r *Record, value string) error {
	total, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Errorf("parsing total %q: %w", value, err)
	}
	r.Total = total
	return nil
}

// setDate returns an apply func trying each layout in order
func setDate(layouts ...string) func(*Record, string) error {
	return func(r *Record, value string) error {
		for _, layout := range layouts {
			if len(layout) != len(value) {
				continue
			}
			d, err := time.Parse(layout, value)
			if err != nil {
				return fmt.Errorf("parsing date %q: %w", value, err)
			}
			r.Date = &d
			return nil
		}
		return fmt.Errorf("parsing date %q: unsupported layout", value)
	}
}

func setTime(r *Record, value string) error {
	if _, err := time.Parse("15:04", value); err != nil {
		return fmt.Errorf("parsing time %q: %w", value, err)
	}
	r.Time = value
	return nil
}

// setMetadata stores a non-empty capture under key
func setMetadata(key string) func(*Record, string) error {
	return func(r *Record, value string) error {
		value = strings.TrimSpace(value)
		if value != "" {
			r.Metadata[key] = value
		}
		return nil
	}
}

func buildLineItem(m []string) (LineItem, error) {
	price, err := decimal.NewFromString(m[2])
	if err != nil {
		return LineItem{}, &ItemValidationError{Name: strings.TrimSpace(m[1]), Reason: "price is not a number"}
	}
	return NewLineItem(m[1], price)
}

func buildCafeteriaItem(m []string) (LineItem, error) {
	price, err := decimal.NewFromString(m[3])
	if err != nil {
		return LineItem{}, &ItemValidationError{Name: m[1], Reason: "price is not a number"}
	}
	item, err := NewLineItem(m[1], price)
	if err != nil {
		return LineItem{}, err
	}
	quantity, err := strconv.Atoi(m[2])
	if err != nil {
		return LineItem{}, &ItemValidationError{Name: m[1], Price: price, Reason: "quantity is not a number"}
	}
	return item.WithQuantity(quantity)
}
