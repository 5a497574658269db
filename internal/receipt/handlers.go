package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/zombor/receipt-ocr/internal/logger"
	"github.com/zombor/receipt-ocr/internal/scanning"
)

// maxUploadSize is large enough for high-resolution phone photos
const maxUploadSize = int64(50 << 20)

// maxTextSize bounds the JSON body of a text parse request
const maxTextSize = int64(1 << 20)

// parseTextRequest is the body of POST /api/receipts/parse
type parseTextRequest struct {
	Text string `json:"text" validate:"required,max=200000"`
}

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).Error("Error encoding response", "error", err)
	}
}

// writeError writes an {"error": message} response
func writeError(w http.ResponseWriter, r *http.Request, code int, message string) {
	writeJSON(w, r, code, map[string]string{"error": message})
}

// validationMessage turns validator errors into a short client-facing message
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

// handleParseText parses OCR text sent as JSON
func (s *Server) handleParseText(w http.ResponseWriter, r *http.Request) {
	var req parseTextRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTextSize)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}

	receipt, err := s.service.ParseText(r.Context(), req.Text)
	if err != nil {
		logger.FromContext(r.Context()).Error("Error parsing receipt text", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, r, http.StatusCreated, receipt)
}

// handleUploadReceipt runs OCR over an uploaded file and parses the result
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		log.Warn("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 50MB. Please compress or resize your image.")
			return
		}
		writeError(w, r, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		log.Warn("Error getting file from form", "error", err)
		writeError(w, r, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		log.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, r, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := uploadContentType(header.Header.Get("Content-Type"), header.Filename)

	receipt, err := s.service.ProcessReceipt(r.Context(), header.Filename, data, contentType)
	switch {
	case errors.Is(err, ErrNoScanner):
		writeError(w, r, http.StatusNotImplemented, "Image uploads are disabled: no OCR scanner is configured")
		return
	case errors.Is(err, ErrEmptyFile), errors.Is(err, scanning.ErrUnsupportedFormat):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Error("Error processing receipt", "filename", header.Filename, "error", err)
		writeError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, r, http.StatusCreated, receipt)
}

// uploadContentType falls back to the file extension when the part has no type
func uploadContentType(declared string, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(declared))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	return "application/octet-stream"
}

// handleListReceipts returns all receipts, newest first
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		logger.FromContext(r.Context()).Error("Error listing receipts", "error", err)
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, r, http.StatusOK, receipts)
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.PathValue("id"))
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, receipt)
}

// handleReparseReceipt runs the pipeline again over the stored OCR text
func (s *Server) handleReparseReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.ReparseReceipt(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, receipt)
}

// handleDeleteReceipt deletes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "Receipt not found")
		return
	}
	logger.FromContext(r.Context()).Error("Error loading receipt", "id", r.PathValue("id"), "error", err)
	writeError(w, r, http.StatusInternalServerError, "Internal server error")
}

// handleExportCSV streams all receipts as CSV
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="receipts.csv"`)
	if err := s.service.ExportCSV(w); err != nil {
		// Headers may already be sent; all that is left is to log
		logger.FromContext(r.Context()).Error("Error exporting receipts", "error", err)
	}
}

// handleHealth reports that the process is serving
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
