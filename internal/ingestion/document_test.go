package ingestion

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestIsBinaryData_PlainText(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "Simple text",
			content: "This is a plain text CV with normal content.",
		},
		{
			name:    "Multi-line text",
			content: "John Doe\nSoftware Engineer\n5 years experience",
		},
		{
			name:    "Empty string",
			content: "",
		},
		{
			name:    "Text with tabs and newlines",
			content: "Name:\tJohn\nTitle:\tEngineer\nYears:\t5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if IsBinaryData(tt.content) {
				t.Errorf("IsBinaryData() returned true for plain text: %q", tt.content)
			}
		})
	}
}

func TestIsBinaryData_Binary(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"PDF header", "%PDF-1.7\n1 0 obj\n"},
		{"ZIP header", "PK\x03\x04rest"},
		{"Control characters", strings.Repeat("\x01\x02\x03", 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !IsBinaryData(tt.content) {
				t.Errorf("IsBinaryData() returned false for %s", tt.name)
			}
		})
	}
}

func TestSanitizeUTF8(t *testing.T) {
	valid := "José González - 软件工程师 🚀"
	if got := sanitizeUTF8(valid); got != valid {
		t.Errorf("sanitizeUTF8() changed valid UTF-8 string: got %q", got)
	}

	got := sanitizeUTF8("Before" + string([]byte{0xFF}) + "After")
	if !utf8.ValidString(got) {
		t.Errorf("sanitizeUTF8() returned invalid UTF-8 string: %q", got)
	}
	if got != "Before�After" {
		t.Errorf("sanitizeUTF8() = %q, want replacement character", got)
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{"pdf extension", "cv.PDF", nil, "application/pdf"},
		{"markdown", "cv.md", nil, "text/markdown"},
		{"docx", "cv.docx", nil, docxMIMEType},
		{"sniffed pdf", "upload", []byte("%PDF-1.4\n"), "application/pdf"},
		{"sniffed text", "upload", []byte("plain words"), "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMIMEType(tt.file, tt.data); got != tt.want {
				t.Errorf("DetectMIMEType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadDocument(t *testing.T) {
	t.Run("pdf kept as bytes", func(t *testing.T) {
		doc, err := LoadDocument("cv.pdf", strings.NewReader("%PDF-1.4 body"), 1024)
		if err != nil {
			t.Fatalf("LoadDocument failed: %v", err)
		}
		if doc.IsText() || doc.MIMEType != "application/pdf" || len(doc.Data) == 0 {
			t.Errorf("Unexpected document %+v", doc)
		}
	})

	t.Run("text becomes text", func(t *testing.T) {
		doc, err := LoadDocument("/tmp/uploads/cv.txt", strings.NewReader("Jane Doe\nGo developer"), 1024)
		if err != nil {
			t.Fatalf("LoadDocument failed: %v", err)
		}
		if doc.Name != "cv.txt" || doc.Text != "Jane Doe\nGo developer" {
			t.Errorf("Unexpected document %+v", doc)
		}
	})

	t.Run("binary disguised as text", func(t *testing.T) {
		if _, err := LoadDocument("cv.txt", strings.NewReader("%PDF-1.4"), 1024); err == nil {
			t.Error("Expected error for binary .txt")
		}
	})

	t.Run("too large", func(t *testing.T) {
		_, err := LoadDocument("cv.txt", strings.NewReader(strings.Repeat("a", 11)), 10)
		if !errors.Is(err, ErrTooLarge) {
			t.Errorf("Expected ErrTooLarge, got %v", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := LoadDocument("cv.pdf", strings.NewReader(""), 10); err == nil {
			t.Error("Expected error for empty file")
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := LoadDocument("photo.png", strings.NewReader("\x89PNG\r\n\x1a\n"), 1024)
		if !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("Expected ErrUnsupportedType, got %v", err)
		}
		_, err = LoadDocument("cv.doc", strings.NewReader("\xd0\xcf\x11\xe0"), 1024)
		if !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("Expected ErrUnsupportedType for .doc, got %v", err)
		}
		if err != nil && !strings.Contains(err.Error(), "DOCX") {
			t.Errorf("Expected the .doc rejection to suggest DOCX, got %v", err)
		}
	})
}

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)
	w.Write([]byte(body.String()))
	rels, err := zw.Create("word/_rels/document.xml.rels")
	if err != nil {
		t.Fatal(err)
	}
	rels.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoadDocumentDOCX(t *testing.T) {
	data := buildDOCX(t, "Jane Doe, Senior Go Engineer", "Built payment systems handling 10k requests per second &amp; on-call")

	doc, err := LoadDocument("cv.docx", bytes.NewReader(data), 1<<20)
	if err != nil {
		t.Fatalf("LoadDocument failed: %v", err)
	}
	if !doc.IsText() {
		t.Fatal("Expected DOCX to be converted to text")
	}
	if !strings.Contains(doc.Text, "Jane Doe, Senior Go Engineer\nBuilt payment systems") || !strings.Contains(doc.Text, "second & on-call") {
		t.Errorf("Unexpected text %q", doc.Text)
	}

	short := buildDOCX(t, "Hi")
	if _, err := LoadDocument("cv.docx", bytes.NewReader(short), 1<<20); err == nil {
		t.Error("Expected error for near-empty DOCX")
	}

	if _, err := LoadDocument("cv.docx", strings.NewReader("not a zip"), 1<<20); err == nil {
		t.Error("Expected error for invalid DOCX")
	}
}
