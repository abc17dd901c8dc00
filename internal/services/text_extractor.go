package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Format is a document container the extractor understands.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeTXT  = "text/plain"
)

var contentTypes = map[string]Format{
	ContentTypePDF:  FormatPDF,
	ContentTypeDOCX: FormatDOCX,
	ContentTypeTXT:  FormatTXT,
}

var extensions = map[string]Format{
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".txt":  FormatTXT,
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return ContentTypePDF
	case FormatDOCX:
		return ContentTypeDOCX
	default:
		return ContentTypeTXT + "; charset=utf-8"
	}
}

// DetectFormat resolves the declared content type, falling back to the
// file extension when the client sent a generic or empty type.
func DetectFormat(contentType, filename string) (Format, error) {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if f, ok := contentTypes[mt]; ok {
			return f, nil
		}
		if mt != "application/octet-stream" {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mt)
		}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	if contentType == "" {
		contentType = ext
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, contentType)
}

type TextExtractor interface {
	Extract(r io.ReaderAt, size int64, format Format) (string, error)
	ExtractFile(path string, format Format) (string, error)
}

type textExtractor struct{}

func NewTextExtractor() TextExtractor {
	return &textExtractor{}
}

func (e *textExtractor) ExtractFile(path string, format Format) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	return e.Extract(f, info.Size(), format)
}

// Extract pulls plain text out of one document. Empty results are
// reported as ErrExtractionFailure.
func (e *textExtractor) Extract(r io.ReaderAt, size int64, format Format) (string, error) {
	var (
		text string
		err  error
	)

	switch format {
	case FormatPDF:
		text, err = extractPDF(r, size)
	case FormatDOCX:
		text, err = extractDOCX(r, size)
	case FormatTXT:
		text, err = extractTXT(r, size)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailure, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: no text content found in %s", ErrExtractionFailure, format)
	}
	return text, nil
}

func extractPDF(r io.ReaderAt, size int64) (text string, err error) {
	// the pdf package panics on some malformed cross-reference tables
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed PDF: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var textBuilder strings.Builder
	totalPage := reader.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Keep the pages that do decode
			continue
		}

		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n\n")
	}

	return textBuilder.String(), nil
}

// extractDOCX reads word/document.xml and keeps paragraph breaks.
func extractDOCX(r io.ReaderAt, size int64) (string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("word/document.xml not found")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open document body: %w", err)
	}
	defer rc.Close()

	var b strings.Builder
	dec := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

func extractTXT(r io.ReaderAt, size int64) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.NewSectionReader(r, 0, size)); err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return strings.ToValidUTF8(buf.String(), ""), nil
}
