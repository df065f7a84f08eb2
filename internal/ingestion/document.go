package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nguyenthenguyen/docx"

	"github.com/faseelanwar-cpu/interview-coach/internal/models"
)

const (
	// MinExtractedTextLength is the minimum text length required for successful extraction
	MinExtractedTextLength = 50
	// BinarySampleSize is the number of bytes to sample for binary detection
	BinarySampleSize = 1000
	// BinaryThreshold is the proportion of non-printable characters that indicates binary data
	BinaryThreshold = 0.3
)

var (
	// ErrUnsupportedType is returned for files the model cannot read
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge is returned when an upload exceeds the size limit
	ErrTooLarge = errors.New("file exceeds upload limit")
)

// LoadDocument reads an uploaded CV into a document the model can consume.
// PDFs are passed through as bytes; text formats and DOCX become text.
func LoadDocument(name string, r io.Reader, maxBytes int64) (models.Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if int64(len(data)) > maxBytes {
		return models.Document{}, fmt.Errorf("%w: %s is larger than %d bytes", ErrTooLarge, name, maxBytes)
	}
	if len(data) == 0 {
		return models.Document{}, fmt.Errorf("%s is empty", name)
	}

	doc := models.Document{Name: filepath.Base(name), MIMEType: DetectMIMEType(name, data)}

	switch doc.MIMEType {
	case "application/pdf":
		doc.Data = data
	case "text/plain", "text/markdown":
		if IsBinaryData(string(data)) {
			return models.Document{}, fmt.Errorf("%s looks like a binary file, not text", name)
		}
		doc.Text = sanitizeUTF8(string(data))
		doc.MIMEType = "text/plain"
	case docxMIMEType:
		text, err := extractDOCX(data)
		if err != nil {
			return models.Document{}, fmt.Errorf("failed to extract %s: %w", name, err)
		}
		doc.Text = text
		doc.MIMEType = "text/plain"
	default:
		return models.Document{}, fmt.Errorf("%w: %s (%s); upload a PDF, DOCX or TXT file", ErrUnsupportedType, name, doc.MIMEType)
	}

	return doc, nil
}

const docxMIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// DetectMIMEType picks a type from the extension, falling back to content sniffing
func DetectMIMEType(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".md", ".markdown":
		return "text/markdown"
	case ".docx":
		return docxMIMEType
	case ".doc":
		return "application/msword"
	}

	detected := http.DetectContentType(data)
	base, _, _ := strings.Cut(detected, ";")
	return strings.TrimSpace(base)
}

// IsBinaryData checks if content appears to be binary (PDF/ZIP markers)
func IsBinaryData(content string) bool {
	if len(content) == 0 {
		return false
	}

	if strings.HasPrefix(content, "%PDF-") {
		return true
	}

	// ZIP magic number (DOCX files)
	if len(content) >= 2 && content[:2] == "PK" {
		return true
	}

	sampleSize := min(BinarySampleSize, len(content))
	nonPrintable := 0
	for i := 0; i < sampleSize; i++ {
		ch := content[i]
		if ch < 32 && ch != '\n' && ch != '\r' && ch != '\t' {
			nonPrintable++
		}
	}

	return float64(nonPrintable)/float64(sampleSize) > BinaryThreshold
}

// sanitizeUTF8 replaces invalid byte sequences with the replacement character
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}

var (
	docxBreaks = strings.NewReplacer("</w:p>", "\n", "<w:br/>", "\n", "<w:cr/>", "\n", "<w:tab/>", "\t")
	xmlTag     = regexp.MustCompile(`<[^>]*>`)
)

// extractDOCX returns the body text of a DOCX file, one paragraph per line
func extractDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("not a valid DOCX archive: %w", err)
	}
	defer r.Close()

	body := docxBreaks.Replace(r.Editable().GetContent())
	text := strings.TrimSpace(html.UnescapeString(xmlTag.ReplaceAllString(body, "")))
	if len(text) < MinExtractedTextLength {
		return "", fmt.Errorf("extracted text is too short (likely failed extraction)")
	}
	return sanitizeUTF8(text), nil
}
