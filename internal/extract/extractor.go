// Package extract pulls plain text out of uploaded documents so the AI
// pipeline has something to analyze. Only textual formats are supported;
// everything else is reported as unsupported and skipped upstream.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxReadBytes caps how much of a blob is read for extraction.
const maxReadBytes = 16 << 20

// Extractor is the text-extraction collaborator consumed by the enrichment
// pipeline.
type Extractor interface {
	Supports(contentType, fileName string) bool
	Extract(r io.Reader, fileName, contentType string) (string, error)
}

// DocumentExtractor handles plain text, PDF and DOCX.
type DocumentExtractor struct{}

func NewDocumentExtractor() *DocumentExtractor {
	return &DocumentExtractor{}
}

func (e *DocumentExtractor) Supports(contentType, fileName string) bool {
	switch kind(contentType, fileName) {
	case kindText, kindPDF, kindDocx:
		return true
	}
	return false
}

func (e *DocumentExtractor) Extract(r io.Reader, fileName, contentType string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxReadBytes))
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}

	switch kind(contentType, fileName) {
	case kindPDF:
		return extractPDF(data)
	case kindDocx:
		return extractDocx(data)
	case kindText:
		return string(data), nil
	}
	return "", fmt.Errorf("unsupported document type %q", contentType)
}

type docKind int

const (
	kindUnsupported docKind = iota
	kindText
	kindPDF
	kindDocx
)

func kind(contentType, fileName string) docKind {
	ct := strings.ToLower(contentType)
	ext := strings.ToLower(filepath.Ext(fileName))

	switch {
	case strings.Contains(ct, "pdf") || ext == ".pdf":
		return kindPDF
	case strings.Contains(ct, "officedocument.wordprocessingml") || ext == ".docx":
		return kindDocx
	case strings.HasPrefix(ct, "text/"),
		strings.Contains(ct, "json"),
		strings.Contains(ct, "xml"):
		return kindText
	}
	switch ext {
	case ".txt", ".md", ".csv", ".log", ".json", ".xml", ".yaml", ".yml":
		return kindText
	}
	return kindUnsupported
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, textReader); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// extractDocx reads word/document.xml out of the OOXML zip and collects the
// character data of the <w:t> runs, one line per paragraph.
func extractDocx(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("docx has no word/document.xml")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	var (
		text   strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		}
	}
	return text.String(), nil
}
