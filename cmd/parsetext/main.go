package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-ocr/internal/logger"
	"github.com/zombor/receipt-ocr/internal/ocr"
)

// parsetext runs the heuristic parser over OCR text from a file or stdin
// and prints the result as JSON.
func main() {
	fs := ff.NewFlagSet("parsetext")
	var (
		offset   = fs.IntLong("offset", ocr.DefaultLabelOffset, "Lines between a Subtotal/Tax/Total label and its amount")
		logLevel = fs.StringLong("log-level", "warn", "Log level: debug, info, warn or error")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("RECEIPT_OCR")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(os.Stderr, *logLevel, "text"); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	text, err := readInput(fs.GetArgs())
	if err != nil {
		slog.Error("Failed to read input", "error", err)
		os.Exit(1)
	}

	parsed := ocr.NewParser(ocr.WithLabelOffset(*offset)).Parse(text)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(parsed); err != nil {
		slog.Error("Failed to encode result", "error", err)
		os.Exit(1)
	}
}

// readInput reads the named file, or stdin when there is none or it is "-"
func readInput(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}
