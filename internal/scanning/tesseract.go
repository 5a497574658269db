package scanning

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Tesseract runs the tesseract CLI locally. No network, no API key.
type Tesseract struct {
	bin  string
	lang string
}

// NewTesseract checks that the binary is on the PATH (or at bin) and returns a scanner for it
func NewTesseract(bin string, lang string) (*Tesseract, error) {
	if bin == "" {
		bin = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("finding tesseract binary: %w", err)
	}
	return &Tesseract{bin: path, lang: lang}, nil
}

// ExtractText writes the receipt to a temporary PNG and reads tesseract's stdout
func (t *Tesseract) ExtractText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	pngData, err := preparePNG(imageData, contentType)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", "receipt-*.png")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(pngData); err != nil {
		f.Close()
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	// --psm 4 treats the image as a single column of variable-size text
	cmd := exec.CommandContext(ctx, t.bin, f.Name(), "stdout", "-l", t.lang, "--psm", "4")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("running tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(string(out)), nil
}

// Close is a no-op
func (t *Tesseract) Close() error {
	return nil
}
