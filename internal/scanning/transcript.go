package scanning

import (
	"fmt"
	"strings"
)

// receiptTranscribePrompt is the shared prompt used by all LLM providers for
// transcribing receipts
const receiptTranscribePrompt = `You are transcribing a receipt or invoice document. Read all text in the image from top to bottom and reproduce it exactly as printed.

Rules:
- Keep one printed line per output line, in the original order
- Keep item names, quantities and prices on the same line, separated by spaces
- Keep totals, dates (as printed, e.g. 03/15/24 or 15-03-2024) and times (HH:MM) exactly as printed
- Do not summarize, translate, correct spelling or add any commentary
- Do not use markdown code blocks
- If the image contains no readable text, return an empty response`

// cleanTranscript strips markdown fences and surrounding chatter from an LLM
// transcription
func cleanTranscript(text string) (string, error) {
	text = strings.TrimSpace(text)

	// Remove opening markdown code blocks
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```plaintext")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if text == "" {
		return "", fmt.Errorf("empty transcription")
	}
	return text, nil
}
