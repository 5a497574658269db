package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/zombor/receipt-ocr/internal/ocr"
	"github.com/zombor/receipt-ocr/internal/scanning"
)

const defaultAssistTimeout = 20 * time.Second

// providers builds each remote client at most once, so one Gemini client
// can serve as both the scanner and the assisted parser
type providers struct {
	geminiKey     string
	geminiModel   string
	ollamaURL     string
	ollamaModel   string
	tesseractBin  string
	tesseractLang string

	gemini *scanning.Gemini
	ollama *scanning.Ollama
}

func (p *providers) getGemini() (*scanning.Gemini, error) {
	if p.gemini != nil {
		return p.gemini, nil
	}
	apiKey := p.geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("gemini API key is required: set --gemini-key or GEMINI_API_KEY")
	}
	slog.Info("Initializing Gemini...", "model", p.geminiModel)
	g, err := scanning.NewGemini(apiKey, p.geminiModel)
	if err != nil {
		return nil, err
	}
	p.gemini = g
	return g, nil
}

func (p *providers) getOllama() (*scanning.Ollama, error) {
	if p.ollama != nil {
		return p.ollama, nil
	}
	slog.Info("Initializing Ollama...", "url", p.ollamaURL, "model", p.ollamaModel)
	o, err := scanning.NewOllama(p.ollamaURL, p.ollamaModel)
	if err != nil {
		return nil, err
	}
	p.ollama = o
	return o, nil
}

// scanner returns nil for "none"; uploads are then rejected
func (p *providers) scanner(kind string) (scanning.Scanner, error) {
	switch kind {
	case "none":
		return nil, nil
	case "tesseract":
		slog.Info("Initializing Tesseract...", "bin", p.tesseractBin, "lang", p.tesseractLang)
		return scanning.NewTesseract(p.tesseractBin, p.tesseractLang)
	case "gemini":
		return p.getGemini()
	case "ollama":
		return p.getOllama()
	}
	return nil, fmt.Errorf("invalid scanner type %q", kind)
}

// assisted returns nil for "none"; only the heuristic parser runs then
func (p *providers) assisted(kind string) (ocr.AssistedParser, error) {
	switch kind {
	case "none":
		return nil, nil
	case "gemini":
		return p.getGemini()
	case "ollama":
		return p.getOllama()
	}
	return nil, fmt.Errorf("invalid assist type %q", kind)
}

// Close releases whichever clients were created
func (p *providers) Close() {
	if p.gemini != nil {
		if err := p.gemini.Close(); err != nil {
			slog.Warn("Failed to close Gemini client", "error", err)
		}
	}
}
