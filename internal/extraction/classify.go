package extraction

import "regexp"

// VendorKind is the receipt format a text was classified as
type VendorKind string

const (
	Walmart    VendorKind = "Walmart"
	Cafeteria  VendorKind = "Cafeteria"
	TraderJoes VendorKind = "TraderJoes"
	Unknown    VendorKind = "Unknown"
)

// UnknownVendor is the vendor label used when no format matched
const UnknownVendor = "Unknown"

type vendorKeyword struct {
	kind    VendorKind
	pattern *regexp.Regexp
}

// vendorKeywords is checked in order; the first match wins
var vendorKeywords = []vendorKeyword{
	{kind: Walmart, pattern: regexp.MustCompile(`(?i)\bWalmart\b`)},
	{kind: Cafeteria, pattern: regexp.MustCompile(`(?i)\bCafeteria\b`)},
	{kind: TraderJoes, pattern: regexp.MustCompile(`(?i)\bTrader Joe\b`)},
}

// Classify returns the vendor format of the receipt text, or Unknown
func Classify(text string) VendorKind {
	for _, kw := range vendorKeywords {
		if kw.pattern.MatchString(text) {
			return kw.kind
		}
	}
	return Unknown
}
