package receipt

import (
	"bytes"
	"encoding/csv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zombor/recipify/internal/extraction"
)

var _ = Describe("WriteCSV", func() {
	var (
		receipts []*Receipt
		rows     [][]string
		err      error
	)

	BeforeEach(func() {
		date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
		receipts = []*Receipt{
			{
				ID:     "r1",
				Vendor: "Cafeteria",
				Total:  decimal.RequireFromString("22.96"),
				Date:   &date,
				Time:   "12:30",
				Items: []extraction.LineItem{
					{Name: "Burger", Price: decimal.RequireFromString("8.99"), Quantity: 2},
					{Name: "Fries", Price: decimal.RequireFromString("2.99"), Quantity: 1},
				},
				Metadata: map[string]string{"order_type": "Dine-in", "order_status": "Completed"},
			},
			{
				ID:     "r2",
				Vendor: "Unknown",
				Total:  decimal.Zero,
			},
		}
	})

	JustBeforeEach(func() {
		var buf bytes.Buffer
		err = WriteCSV(&buf, receipts)
		Expect(err).NotTo(HaveOccurred())
		rows, err = csv.NewReader(&buf).ReadAll()
	})

	It("writes the header", func() {
		Expect(err).NotTo(HaveOccurred())
		Expect(rows[0]).To(Equal(exportHeader))
	})

	It("writes one row per item", func() {
		Expect(rows).To(HaveLen(4))
		Expect(rows[1]).To(Equal([]string{
			"r1", "Cafeteria", "2024-03-15", "12:30", "22.96",
			"order_status=Completed;order_type=Dine-in",
			"Burger", "2", "8.99",
		}))
		Expect(rows[2][6:]).To(Equal([]string{"Fries", "1", "2.99"}))
	})

	It("writes a single row for receipts without items", func() {
		Expect(rows[3]).To(Equal([]string{"r2", "Unknown", "", "", "0.00", "", "", "", ""}))
	})
})
