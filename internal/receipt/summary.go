package receipt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// escapeCell keeps a value from breaking a Markdown table row
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderSummary writes a Markdown summary of a receipt
func RenderSummary(r *Receipt) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", escapeCell(r.Vendor))
	if r.ParseError != "" {
		fmt.Fprintf(&b, "> %s\n\n", r.ParseError)
	}

	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total | %s |\n", r.Total.StringFixed(2))
	if r.Date != nil {
		fmt.Fprintf(&b, "| Date | %s |\n", r.Date.Format("2006-01-02"))
	}
	if r.Time != "" {
		fmt.Fprintf(&b, "| Time | %s |\n", r.Time)
	}
	for _, key := range sortedKeys(r.Metadata) {
		fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(key), escapeCell(r.Metadata[key]))
	}

	b.WriteString("\n## Items\n\n")
	if len(r.Items) == 0 {
		b.WriteString("No items detected.\n")
	} else {
		b.WriteString("| Item | Qty | Price |\n|---|---:|---:|\n")
		for _, item := range r.Items {
			fmt.Fprintf(&b, "| %s | %d | %s |\n", escapeCell(item.Name), item.Quantity, item.Price.StringFixed(2))
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- **%s**: %s\n", w.Field, w.Message)
		}
	}

	if len(r.Detections) > 0 {
		b.WriteString("\n## Detections\n\n")
		for _, d := range r.Detections {
			fmt.Fprintf(&b, "- %s (%.0f%%)\n", escapeCell(d.Label), d.Confidence*100)
		}
	}

	return b.String()
}

// RenderSummaryHTML renders the Markdown summary as an HTML fragment
func RenderSummaryHTML(r *Receipt) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(RenderSummary(r)), &buf); err != nil {
		return nil, fmt.Errorf("rendering summary: %w", err)
	}
	return buf.Bytes(), nil
}

// Summary returns the Markdown summary of a stored receipt
func (s *Service) Summary(id string) (string, error) {
	receipt, err := s.GetReceipt(id)
	if err != nil {
		return "", err
	}
	return RenderSummary(receipt), nil
}

// SummaryHTML returns the HTML summary of a stored receipt
func (s *Service) SummaryHTML(id string) ([]byte, error) {
	receipt, err := s.GetReceipt(id)
	if err != nil {
		return nil, err
	}
	return RenderSummaryHTML(receipt)
}
