package receipt

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zombor/recipify/internal/extraction"
)

// describeDB runs the shared DB behaviour against a concrete implementation
func describeDB(open func() DB) {
	var db DB

	BeforeEach(func() {
		db = open()
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newReceipt := func(id string, created time.Time) *Receipt {
		date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
		return &Receipt{
			ID:          id,
			Filename:    id + "_receipt.jpg",
			ContentType: "image/jpeg",
			Text:        walmartText,
			Kind:        extraction.Walmart,
			Vendor:      "Walmart",
			Total:       decimal.RequireFromString("6.47"),
			Date:        &date,
			Time:        "14:30",
			Items: []extraction.LineItem{
				{Name: "Apple", Price: decimal.RequireFromString("1.99"), Quantity: 1},
			},
			Metadata:  map[string]string{"order_type": "Dine-in"},
			Warnings:  []extraction.Warning{{Field: extraction.FieldItems, Message: "no line items found"}},
			CreatedAt: created,
			UpdatedAt: created,
		}
	}

	Describe("SaveReceipt and GetReceipt", func() {
		It("round-trips the extracted fields", func() {
			Expect(db.SaveReceipt(newReceipt("test-id", time.Now().UTC()))).To(Succeed())

			saved, err := db.GetReceipt("test-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Vendor).To(Equal("Walmart"))
			Expect(saved.Kind).To(Equal(extraction.Walmart))
			Expect(saved.Total.Equal(decimal.RequireFromString("6.47"))).To(BeTrue())
			Expect(saved.Date.Format("2006-01-02")).To(Equal("2024-03-15"))
			Expect(saved.Items).To(HaveLen(1))
			Expect(saved.Items[0].Price.StringFixed(2)).To(Equal("1.99"))
			Expect(saved.Metadata).To(HaveKeyWithValue("order_type", "Dine-in"))
			Expect(saved.Warnings).To(HaveLen(1))
		})

		It("replaces an existing receipt", func() {
			receipt := newReceipt("test-id", time.Now().UTC())
			Expect(db.SaveReceipt(receipt)).To(Succeed())
			receipt.Vendor = "Trader Joe's"
			Expect(db.SaveReceipt(receipt)).To(Succeed())

			saved, err := db.GetReceipt("test-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Vendor).To(Equal("Trader Joe's"))
		})
	})

	Describe("GetReceipt", func() {
		When("receipt does not exist", func() {
			It("returns ErrNotFound", func() {
				_, err := db.GetReceipt("nonexistent")
				Expect(err).To(MatchError(ErrNotFound))
				Expect(err).To(MatchError(ContainSubstring("nonexistent")))
			})
		})
	})

	Describe("ListReceipts", func() {
		When("receipts exist", func() {
			BeforeEach(func() {
				now := time.Now().UTC()
				Expect(db.SaveReceipt(newReceipt("id1", now))).To(Succeed())
				Expect(db.SaveReceipt(newReceipt("id2", now.Add(time.Minute)))).To(Succeed())
			})

			It("should return all receipts", func() {
				receipts, err := db.ListReceipts()
				Expect(err).NotTo(HaveOccurred())
				Expect(receipts).To(HaveLen(2))
			})
		})

		When("no receipts exist", func() {
			It("should return an empty list", func() {
				receipts, err := db.ListReceipts()
				Expect(err).NotTo(HaveOccurred())
				Expect(receipts).NotTo(BeNil())
				Expect(receipts).To(BeEmpty())
			})
		})
	})

	Describe("DeleteReceipt", func() {
		When("receipt exists", func() {
			BeforeEach(func() {
				Expect(db.SaveReceipt(newReceipt("test-id", time.Now().UTC()))).To(Succeed())
			})

			It("should remove the receipt from the database", func() {
				Expect(db.DeleteReceipt("test-id")).To(Succeed())
				_, err := db.GetReceipt("test-id")
				Expect(err).To(MatchError(ErrNotFound))
			})
		})

		When("receipt does not exist", func() {
			It("should not return an error", func() {
				Expect(db.DeleteReceipt("nonexistent")).To(Succeed())
			})
		})
	})
}

var _ = Describe("BoltDB", func() {
	describeDB(func() DB {
		db, err := NewBoltDB(filepath.Join(GinkgoT().TempDir(), "test.db"))
		Expect(err).NotTo(HaveOccurred())
		return db
	})

	It("fails to open a path in a missing directory", func() {
		_, err := NewBoltDB(filepath.Join(GinkgoT().TempDir(), "missing", "test.db"))
		Expect(err).To(MatchError(ContainSubstring("opening boltdb")))
	})
})

var _ = Describe("PostgresDB", func() {
	var dsn string

	BeforeEach(func() {
		dsn = os.Getenv("RECIPIFY_TEST_POSTGRES_DSN")
		if dsn == "" {
			Skip("RECIPIFY_TEST_POSTGRES_DSN is not set")
		}
	})

	describeDB(func() DB {
		db, err := NewPostgresDB(dsn)
		Expect(err).NotTo(HaveOccurred())
		_, err = db.db.Exec(`TRUNCATE receipts`)
		Expect(err).NotTo(HaveOccurred())
		return db
	})

	It("rejects an unreachable server", func() {
		_, err := NewPostgresDB("postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
		Expect(err).To(HaveOccurred())
	})
})
