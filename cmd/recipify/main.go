package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/recipify/internal/extraction"
	"github.com/zombor/recipify/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// rootConfig holds the flags shared by every subcommand
type rootConfig struct {
	logLevel       *string
	logFormat      *string
	strict         *bool
	scannerType    *string
	tesseractLangs *string
	geminiKey      *string
	geminiModel    *string
	ollamaURL      *string
	ollamaModel    *string
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	rootFlags := ff.NewFlagSet("recipify")
	cfg := &rootConfig{
		logLevel:       rootFlags.StringLong("log-level", "info", "Log level: debug, info, warn or error"),
		logFormat:      rootFlags.StringLong("log-format", "text", "Log format: text or json"),
		strict:         rootFlags.BoolLong("strict", "Fail the whole parse on an invalid line item instead of dropping it"),
		scannerType:    rootFlags.StringLong("scanner", "tesseract", "Scanner type: 'tesseract', 'gemini' or 'ollama'"),
		tesseractLangs: rootFlags.StringLong("tesseract-langs", "eng", "Comma separated Tesseract languages"),
		geminiKey:      rootFlags.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)"),
		geminiModel:    rootFlags.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name"),
		ollamaURL:      rootFlags.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL"),
		ollamaModel:    rootFlags.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)"),
	}
	rootFlags.BoolLong("version", "Show version information")

	root := &ff.Command{
		Name:      "recipify",
		Usage:     "recipify [FLAGS] <SUBCOMMAND>",
		ShortHelp: "Extract structured data from receipt OCR text",
		Flags:     rootFlags,
		Subcommands: []*ff.Command{
			newServeCommand(cfg, rootFlags),
			newParseCommand(cfg, rootFlags),
		},
		Exec: func(ctx context.Context, args []string) error {
			return ff.ErrHelp
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.Parse(os.Args[1:], ff.WithEnvVarPrefix("RECIPIFY")); err != nil {
		exitWithHelp(root, err)
	}

	if err := configureLogging(*cfg.logLevel, *cfg.logFormat); err != nil {
		exitWithHelp(root, err)
	}

	if err := root.Run(ctx); err != nil {
		if errors.Is(err, ff.ErrHelp) {
			exitWithHelp(root, err)
		}
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func exitWithHelp(root *ff.Command, err error) {
	fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root.GetSelected()))
	if errors.Is(err, ff.ErrHelp) {
		os.Exit(0)
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// configureLogging installs the default slog logger
func configureLogging(level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
	case "json":
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	return nil
}

// newParser builds the extraction parser from the shared flags
func (c *rootConfig) newParser() *extraction.Parser {
	return extraction.NewParser(
		extraction.WithLogger(slog.Default()),
		extraction.WithStrict(*c.strict),
	)
}

// newScanner initializes the configured OCR scanner
func (c *rootConfig) newScanner() (scanning.Scanner, error) {
	switch *c.scannerType {
	case "tesseract":
		langs := strings.Split(*c.tesseractLangs, ",")
		slog.Info("Initializing Tesseract scanner...", "languages", langs)
		return scanning.NewTesseract(langs...)
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *c.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini API key is required: set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini scanner...", "model", *c.geminiModel)
		return scanning.NewGemini(apiKey, *c.geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *c.ollamaURL, "model", *c.ollamaModel)
		return scanning.NewOllama(*c.ollamaURL, *c.ollamaModel)
	default:
		return nil, fmt.Errorf("invalid scanner type %q: valid types are tesseract, gemini or ollama", *c.scannerType)
	}
}
