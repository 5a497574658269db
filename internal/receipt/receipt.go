package receipt

import (
	"errors"
	"time"

	"github.com/zombor/receipt-ocr/internal/ocr"
)

// ErrNotFound is returned when no receipt has the requested ID
var ErrNotFound = errors.New("receipt not found")

// Receipt is one stored parse: the OCR text, where it came from and the
// structured result
type Receipt struct {
	ID          string             `json:"id"`
	Source      ocr.Source         `json:"source"`
	Filename    string             `json:"filename,omitempty"`
	ContentType string             `json:"content_type,omitempty"`
	OCRText     string             `json:"ocr_text"`
	Parsed      *ocr.ParsedReceipt `json:"parsed"`
	AssistError string             `json:"assist_error,omitempty"` // why the assisted parser was not used
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}
