package receipt

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zombor/recipify/internal/detection"
	"github.com/zombor/recipify/internal/extraction"
)

var _ = Describe("RenderSummary", func() {
	var receipt *Receipt

	BeforeEach(func() {
		date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
		receipt = &Receipt{
			Vendor: "Cafeteria",
			Total:  decimal.RequireFromString("22.96"),
			Date:   &date,
			Time:   "12:30",
			Items: []extraction.LineItem{
				{Name: "Burger", Price: decimal.RequireFromString("8.99"), Quantity: 2},
			},
			Metadata: map[string]string{"order_type": "Dine-in", "outlet": "A|B"},
		}
	})

	It("renders the fields as a table", func() {
		md := RenderSummary(receipt)
		Expect(md).To(HavePrefix("# Cafeteria\n"))
		Expect(md).To(ContainSubstring("| Total | 22.96 |"))
		Expect(md).To(ContainSubstring("| Date | 2024-03-15 |"))
		Expect(md).To(ContainSubstring("| Time | 12:30 |"))
		Expect(md).To(ContainSubstring("| order_type | Dine-in |"))
	})

	It("escapes pipes in cells", func() {
		Expect(RenderSummary(receipt)).To(ContainSubstring(`| outlet | A\|B |`))
	})

	It("lists items with quantity", func() {
		Expect(RenderSummary(receipt)).To(ContainSubstring("| Burger | 2 | 8.99 |"))
	})

	It("notes when there are no items", func() {
		receipt.Items = nil
		Expect(RenderSummary(receipt)).To(ContainSubstring("No items detected."))
	})

	It("includes warnings, detections and the parse error", func() {
		receipt.ParseError = extraction.UnknownFormatMessage
		receipt.Warnings = []extraction.Warning{{Field: "total", Message: "total is not positive"}}
		receipt.Detections = []detection.Detection{{Label: "logo", Confidence: 0.87}}

		md := RenderSummary(receipt)
		Expect(md).To(ContainSubstring("> Unknown receipt format"))
		Expect(md).To(ContainSubstring("- **total**: total is not positive"))
		Expect(md).To(ContainSubstring("- logo (87%)"))
	})

	Describe("RenderSummaryHTML", func() {
		It("renders tables as HTML", func() {
			html, err := RenderSummaryHTML(receipt)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(html)).To(ContainSubstring("<h1>Cafeteria</h1>"))
			Expect(string(html)).To(ContainSubstring("<table>"))
			Expect(string(html)).To(ContainSubstring("<td>22.96</td>"))
		})
	})
})

var _ = Describe("FromResult", func() {
	It("renders an unknown receipt", func() {
		result, err := extraction.ParseReceiptData("hello world")
		Expect(err).NotTo(HaveOccurred())

		r := FromResult("hello world", result)
		Expect(r.Text).To(Equal("hello world"))
		Expect(r.Vendor).To(Equal(extraction.UnknownVendor))
		Expect(RenderSummary(r)).To(ContainSubstring("> Unknown receipt format"))
	})
})
