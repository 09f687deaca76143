package receipt

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

var exportHeader = []string{
	"receipt_id", "vendor", "date", "time", "total", "metadata",
	"item_name", "item_quantity", "item_price",
}

// WriteCSV writes one row per line item; receipts without items get a
// single row with empty item columns
func WriteCSV(w io.Writer, receipts []*Receipt) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, r := range receipts {
		date := ""
		if r.Date != nil {
			date = r.Date.Format("2006-01-02")
		}
		base := []string{r.ID, r.Vendor, date, r.Time, r.Total.StringFixed(2), formatMetadata(r.Metadata)}

		if len(r.Items) == 0 {
			if err := cw.Write(append(base, "", "", "")); err != nil {
				return fmt.Errorf("writing csv row: %w", err)
			}
			continue
		}
		for _, item := range r.Items {
			row := append(append([]string{}, base...), item.Name, strconv.Itoa(item.Quantity), item.Price.StringFixed(2))
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing csv row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatMetadata joins metadata as sorted key=value pairs
func formatMetadata(m map[string]string) string {
	pairs := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		pairs = append(pairs, k+"="+m[k])
	}
	return strings.Join(pairs, ";")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ExportCSV writes every stored receipt as CSV
func (s *Service) ExportCSV(w io.Writer) error {
	receipts, err := s.ListReceipts()
	if err != nil {
		return err
	}
	return WriteCSV(w, receipts)
}
