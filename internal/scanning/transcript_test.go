package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("cleanTranscript", func() {
	var (
		input string
		text  string
		err   error
	)

	JustBeforeEach(func() {
		text, err = cleanTranscript(input)
	})

	When("transcription is plain text", func() {
		BeforeEach(func() {
			input = "  Walmart\nTOTAL 6.47\n"
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should trim surrounding whitespace", func() {
			Expect(text).To(Equal("Walmart\nTOTAL 6.47"))
		})
	})

	When("transcription is wrapped in a code block", func() {
		BeforeEach(func() {
			input = "```text\nWalmart\nTOTAL 6.47\n```"
		})

		It("should strip the fences", func() {
			Expect(text).To(Equal("Walmart\nTOTAL 6.47"))
		})
	})

	When("transcription is wrapped in a bare code block", func() {
		BeforeEach(func() {
			input = "```\nCafeteria\n```"
		})

		It("should strip the fences", func() {
			Expect(text).To(Equal("Cafeteria"))
		})
	})

	When("transcription is empty", func() {
		BeforeEach(func() {
			input = "```\n```"
		})

		It("returns the error", func() {
			Expect(err).To(MatchError("empty transcription"))
		})
	})
})
