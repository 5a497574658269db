package scanning

import (
	"context"

	"github.com/zombor/receipt-ocr/internal/ocr"
)

// Scanner turns a receipt image or PDF into raw OCR text
type Scanner interface {
	// ExtractText reads all text on the receipt, top to bottom, one line per line
	ExtractText(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Close closes the scanner and releases resources
	Close() error
}

var (
	_ Scanner = (*Gemini)(nil)
	_ Scanner = (*Ollama)(nil)
	_ Scanner = (*Tesseract)(nil)

	_ ocr.AssistedParser = (*Gemini)(nil)
	_ ocr.AssistedParser = (*Ollama)(nil)
)

// Name is a short label for the scanner, used in logs and metrics
func Name(s Scanner) string {
	switch s.(type) {
	case *Gemini:
		return "gemini"
	case *Ollama:
		return "ollama"
	case *Tesseract:
		return "tesseract"
	case nil:
		return "none"
	}
	return "other"
}
