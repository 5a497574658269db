package scanning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/zombor/receipt-ocr/internal/ocr"
)

const geminiTimeout = 30 * time.Second

// Gemini reads receipts with a Gemini vision model and parses OCR text into
// receipts with the same model in JSON mode
type Gemini struct {
	client *genai.Client
	vision *genai.GenerativeModel
	parser *genai.GenerativeModel
}

// NewGemini creates a new Gemini instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	vision := client.GenerativeModel(modelName)
	vision.SetTemperature(0)

	parser := client.GenerativeModel(modelName)
	parser.SetTemperature(0)

	return &Gemini{
		client: client,
		vision: vision,
		parser: parser,
	}, nil
}

// ExtractText transcribes the receipt image
func (g *Gemini) ExtractText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, geminiTimeout)
	defer cancel()

	pngData, err := preparePNG(imageData, contentType)
	if err != nil {
		return "", err
	}

	// genai.ImageData expects just the format suffix, not the full MIME type
	resp, err := g.vision.GenerateContent(ctx, genai.ImageData("png", pngData), genai.Text(receiptOCRPrompt))
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	return stripCodeFence(text), nil
}

// ParseText asks the model for a structured receipt
func (g *Gemini) ParseText(ctx context.Context, text string) (*ocr.ParsedReceipt, error) {
	resp, err := g.parser.GenerateContent(ctx, genai.Text(parsePrompt(text)))
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	body, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	receipt, err := parseReceiptJSON(body, time.Now())
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}
	return receipt, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response from gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errors.New("empty response from gemini")
	}
	return text, nil
}
