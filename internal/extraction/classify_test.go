package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Classify", func() {
	DescribeTable("vendor keywords",
		func(text string, expected VendorKind) {
			Expect(Classify(text)).To(Equal(expected))
		},
		Entry("Walmart", "Walmart Supercenter\nTOTAL 1.00", Walmart),
		Entry("Walmart in lower case", "thanks for shopping at walmart", Walmart),
		Entry("Walmart in upper case", "WALMART", Walmart),
		Entry("Cafeteria", "Campus Cafeteria\nBurger 1 X 2.00", Cafeteria),
		Entry("Trader Joe's", "TRADER JOE'S\nBananas 0.19", TraderJoes),
		Entry("Trader Joe", "trader joe\n", TraderJoes),
		Entry("no keyword", "random unrelated text", Unknown),
		Entry("keyword inside a word", "Walmartian goods", Unknown),
		Entry("empty text", "", Unknown),
	)

	When("text mentions several vendors", func() {
		It("should prefer Walmart over Cafeteria", func() {
			Expect(Classify("Cafeteria inside Walmart")).To(Equal(Walmart))
		})

		It("should prefer Walmart over Trader Joe", func() {
			Expect(Classify("Trader Joe\nWalmart")).To(Equal(Walmart))
		})

		It("should prefer Cafeteria over Trader Joe", func() {
			Expect(Classify("Trader Joe cafeteria")).To(Equal(Cafeteria))
		})
	})
})
