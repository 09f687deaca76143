package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/recipify/internal/extraction"
)

const (
	// maxUploadSize handles high-resolution phone photos
	maxUploadSize = int64(50 << 20)

	// maxTextSize bounds raw OCR text bodies
	maxTextSize = int64(1 << 20)
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a JSON {"error": ...} body
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeJSON encodes v with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// mediaType returns the request media type without parameters
func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

// readText reads receipt text from a text/plain body or a JSON {"text": ...} body
func readText(w http.ResponseWriter, r *http.Request) (string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTextSize))
	if err != nil {
		return "", err
	}
	if mediaType(r) == "application/json" {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return "", err
		}
		return req.Text, nil
	}
	return string(body), nil
}

// handleParse parses raw OCR text and returns the extraction result
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	text, err := readText(w, r)
	if err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.service.ParseText(text)
	if err != nil {
		var itemErr *extraction.ItemValidationError
		switch {
		case errors.Is(err, extraction.ErrInvalidInput):
			jsonError(w, err.Error(), http.StatusBadRequest)
		case errors.As(err, &itemErr):
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			slog.Error("Error parsing receipt text", "error", err)
			jsonError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	// Unknown formats are a soft error: the payload carries the error
	writeJSON(w, http.StatusOK, result)
}

// readUpload reads the "file" field of a multipart upload
func readUpload(w http.ResponseWriter, r *http.Request) (filename string, data []byte, contentType string, ok bool) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return "", nil, "", false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return "", nil, "", false
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		jsonError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusBadRequest)
		return "", nil, "", false
	}

	data, err = io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return "", nil, "", false
	}

	return header.Filename, data, uploadContentType(header.Header.Get("Content-Type"), header.Filename), true
}

// uploadContentType falls back to the file extension when no type was sent
func uploadContentType(contentType, filename string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
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
	default:
		return "application/octet-stream"
	}
}

// writeProcessError maps a scan/process error to a response
func writeProcessError(w http.ResponseWriter, filename string, err error) {
	slog.Error("Error processing receipt", "filename", filename, "error", err)
	code := http.StatusBadRequest
	var itemErr *extraction.ItemValidationError
	if errors.As(err, &itemErr) {
		code = http.StatusUnprocessableEntity
	}
	jsonError(w, err.Error(), code)
}

// handleScanReceipt runs OCR and extraction on an upload without saving it
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	filename, data, contentType, ok := readUpload(w, r)
	if !ok {
		return
	}

	receipt, err := s.service.ScanReceipt(filename, data, contentType)
	if err != nil {
		writeProcessError(w, filename, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleCreateReceipt saves a receipt from an upload, raw text or a reviewed
// JSON receipt, depending on the content type
func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	switch mediaType(r) {
	case "multipart/form-data":
		filename, data, contentType, ok := readUpload(w, r)
		if !ok {
			return
		}
		receipt, err := s.service.ProcessReceipt(filename, data, contentType)
		if err != nil {
			writeProcessError(w, filename, err)
			return
		}
		writeJSON(w, http.StatusCreated, receipt)

	case "application/json":
		var receipt Receipt
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTextSize)).Decode(&receipt); err != nil {
			jsonError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		saved, err := s.service.SaveReceipt(&receipt)
		if err != nil {
			slog.Error("Error saving receipt", "error", err)
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, saved)

	case "text/plain":
		text, err := readText(w, r)
		if err != nil {
			jsonError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		receipt, err := s.service.ProcessText(text)
		if err != nil {
			writeProcessError(w, "", err)
			return
		}
		writeJSON(w, http.StatusCreated, receipt)

	default:
		jsonError(w, "Unsupported content type", http.StatusUnsupportedMediaType)
	}
}

// handleListReceipts returns a list of all receipts
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

// notFoundOr writes 404 for missing receipts and 500 otherwise
func notFoundOr(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, ErrNotFound) {
		corsError(w, notFound, http.StatusNotFound)
		return
	}
	slog.Error("Error loading receipt", "error", err)
	corsError(w, "Internal server error", http.StatusInternalServerError)
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	receipt, err := s.service.GetReceipt(id)
	if err != nil {
		notFoundOr(w, err, "Receipt not found")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleGetReceiptFile returns the file for a receipt
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, contentType, err := s.service.GetReceiptFile(id)
	if err != nil {
		notFoundOr(w, err, "File not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleGetReceiptSummary returns an HTML summary of a receipt
func (s *Server) handleGetReceiptSummary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	html, err := s.service.SummaryHTML(id)
	if err != nil {
		notFoundOr(w, err, "Receipt not found")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}

// handleDeleteReceipt deletes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.service.DeleteReceipt(id); err != nil {
		notFoundOr(w, err, "Receipt not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleExportCSV streams all receipts as CSV
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="receipts.csv"`)
	if err := s.service.ExportCSV(w); err != nil {
		slog.Error("Error exporting receipts", "error", err)
	}
}
