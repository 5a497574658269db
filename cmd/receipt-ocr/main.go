package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zombor/receipt-ocr/internal/logger"
	"github.com/zombor/receipt-ocr/internal/metrics"
	"github.com/zombor/receipt-ocr/internal/ocr"
	"github.com/zombor/receipt-ocr/internal/receipt"
	"github.com/zombor/receipt-ocr/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A missing .env is fine; flags and the environment still apply
	_ = godotenv.Load()

	fs := ff.NewFlagSet("receipt-ocr")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "receipts.db", "Database file path")
		scannerType   = fs.StringEnumLong("scanner", "OCR engine for image uploads: tesseract, gemini, ollama or none", "tesseract", "gemini", "ollama", "none")
		assistType    = fs.StringEnumLong("assist", "AI parser tried before the heuristics: none, gemini or ollama", "none", "gemini", "ollama")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name (a vision model if used as the scanner)")
		tesseractBin  = fs.StringLong("tesseract-bin", "tesseract", "Path to the tesseract binary")
		tesseractLang = fs.StringLong("tesseract-lang", "eng", "Tesseract language")
		labelOffset   = fs.IntLong("label-offset", ocr.DefaultLabelOffset, "Lines between a Subtotal/Tax/Total label and its amount")
		assistTimeout = fs.DurationLong("assist-timeout", defaultAssistTimeout, "Timeout for each AI parse call (0 for none)")
		assistRate    = fs.Float64Long("assist-rate", 1, "Maximum AI parse calls per second (0 for unlimited)")
		assistBurst   = fs.IntLong("assist-burst", 5, "AI parse calls allowed in a burst")
		logLevel      = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logFormat     = fs.StringLong("log-format", "text", "Log format: text or json")
		_             = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_OCR"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(os.Stderr, *logLevel, *logFormat); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	p := &providers{
		geminiKey:     *geminiKey,
		geminiModel:   *geminiModel,
		ollamaURL:     *ollamaURL,
		ollamaModel:   *ollamaModel,
		tesseractBin:  *tesseractBin,
		tesseractLang: *tesseractLang,
	}
	defer p.Close()

	scanner, err := p.scanner(*scannerType)
	if err != nil {
		slog.Error("Failed to initialize scanner", "scanner", *scannerType, "error", err)
		os.Exit(1)
	}

	assisted, err := p.assisted(*assistType)
	if err != nil {
		slog.Error("Failed to initialize assisted parser", "assist", *assistType, "error", err)
		os.Exit(1)
	}
	if assisted != nil {
		assisted = scanning.WithTimeout(
			scanning.NewRateLimitedParser(assisted, *assistRate, *assistBurst),
			*assistTimeout,
		)
	}

	slog.Info("Initializing database...", "path", *dbPath)
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	pipeline := ocr.NewPipeline(ocr.NewParser(ocr.WithLabelOffset(*labelOffset)), assisted)
	service := receipt.NewService(db, scanner, pipeline, metrics.New(reg))
	server := receipt.NewServer(service, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Server started",
		"address", fmt.Sprintf("http://localhost%s", addr),
		"version", version,
		"scanner", *scannerType,
		"assist", *assistType,
	)
	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shut down cleanly")
}
