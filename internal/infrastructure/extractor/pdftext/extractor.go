// Package pdftext pulls plain text out of stored documents. PDF files go
// through the pdf reader; anything else is accepted as-is when it is valid
// UTF-8 text.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/academica/gradeflow/internal/core/domain"
	"github.com/academica/gradeflow/internal/core/ports"
)

var pdfMagic = []byte("%PDF-")

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (ports.ExtractedText, error) {
	reader, err := e.storage.Open(ctx, doc.FilePath)
	if err != nil {
		return ports.ExtractedText{}, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return ports.ExtractedText{}, fmt.Errorf("read source document: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return ports.ExtractedText{}, err
	}

	if bytes.HasPrefix(raw, pdfMagic) {
		return extractPDF(raw)
	}

	if !utf8.Valid(raw) {
		return ports.ExtractedText{}, fmt.Errorf("unsupported binary format: %s", doc.FilePath)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return ports.ExtractedText{}, fmt.Errorf("document %s is empty", doc.FilePath)
	}
	return ports.ExtractedText{Text: text, PageCount: 1}, nil
}

func extractPDF(raw []byte) (ports.ExtractedText, error) {
	doc, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return ports.ExtractedText{}, fmt.Errorf("parse pdf: %w", err)
	}

	var sb strings.Builder
	pages := doc.NumPage()
	for i := 1; i <= pages; i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// A single broken page should not sink the whole document.
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return ports.ExtractedText{}, fmt.Errorf("pdf contains no extractable text")
	}
	return ports.ExtractedText{Text: text, PageCount: pages}, nil
}
