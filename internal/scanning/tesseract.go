package scanning

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements the Scanner interface using a local Tesseract install
type Tesseract struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewTesseract creates a new Tesseract Scanner instance
func NewTesseract(languages ...string) (*Tesseract, error) {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Tesseract{
		languages:     languages,
		clientFactory: gosseract.NewClient,
	}, nil
}

// ScanText preprocesses the image and runs Tesseract over it
func (t *Tesseract) ScanText(imageData []byte, contentType string) (string, error) {
	pngData, err := prepareImageData(imageData, contentType, true)
	if err != nil {
		return "", err
	}

	// One client per scan; gosseract clients are not safe for concurrent use
	client := t.clientFactory()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("setting languages: %w", err)
	}
	// Receipts are a single column of variably sized text
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_COLUMN); err != nil {
		return "", fmt.Errorf("setting page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(pngData); err != nil {
		return "", fmt.Errorf("setting image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognizing text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Close is a no-op; clients are created per scan
func (t *Tesseract) Close() error {
	return nil
}
