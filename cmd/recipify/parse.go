package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/peterbourgon/ff/v4"

	"github.com/zombor/recipify/internal/receipt"
)

func newParseCommand(cfg *rootConfig, parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("parse").SetParent(parent)
	var (
		textPath  = fs.StringLong("text", "", "OCR text file to parse ('-' or empty reads stdin)")
		imagePath = fs.StringLong("image", "", "Receipt image or PDF to scan before parsing")
		asJSON    = fs.BoolLong("json", "Print the extraction result as JSON")
	)

	return &ff.Command{
		Name:      "parse",
		Usage:     "recipify parse [FLAGS]",
		ShortHelp: "Classify and extract a single receipt",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if *textPath != "" && *imagePath != "" {
				return errors.New("--text and --image are mutually exclusive")
			}

			var (
				text string
				err  error
			)
			if *imagePath != "" {
				text, err = scanImage(cfg, *imagePath)
			} else {
				text, err = readText(*textPath)
			}
			if err != nil {
				return err
			}

			result, err := cfg.newParser().Parse(text)
			if err != nil {
				return fmt.Errorf("parsing receipt: %w", err)
			}

			if *asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Print(receipt.RenderSummary(receipt.FromResult(text, result)))
			return nil
		},
	}
}

// readText reads OCR text from a file, or stdin for "" and "-"
func readText(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading text file: %w", err)
	}
	return string(data), nil
}

// scanImage runs the configured scanner over an image file
func scanImage(cfg *rootConfig, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	scanner, err := cfg.newScanner()
	if err != nil {
		return "", fmt.Errorf("initializing scanner: %w", err)
	}
	defer scanner.Close()

	slog.Info("Running OCR...", "file", path, "content_type", contentType)
	text, err := scanner.ScanText(data, contentType)
	if err != nil {
		return "", fmt.Errorf("scanning image: %w", err)
	}
	slog.Debug("Raw OCR text", "text", text)
	return text, nil
}
