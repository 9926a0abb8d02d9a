// Package extract supplies source documents to the pipeline: per-page text
// pulled out of an uploaded PDF, or flat text wrapped for budget chunking.
package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/lingodoc/translation-engine/internal/domain"
	"github.com/lingodoc/translation-engine/internal/observability"
)

// PDFExtractor reads page text from PDF files using go-fitz.
type PDFExtractor struct {
	logger *observability.Logger
}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor(logger *observability.Logger) *PDFExtractor {
	return &PDFExtractor{logger: logger.WithComponent("extract")}
}

// Extract opens the PDF at path and returns one text per page plus the page
// count. Missing files map to NotFound, unparseable files to Unreadable.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (*domain.SourceDocument, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, domain.NotFoundError("source document not found", err)
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, domain.UnreadableError("open PDF", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, domain.InputError("PDF has no pages", nil)
	}

	pages := make([]string, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		text, err := doc.Text(pageNum)
		if err != nil {
			return nil, domain.UnreadableError(fmt.Sprintf("extract text from page %d", pageNum+1), err)
		}
		pages = append(pages, text)
	}

	e.logger.Debug().
		Str("path", path).
		Int("pages", pageCount).
		Msg("Extracted PDF text")

	return &domain.SourceDocument{Pages: pages, PageCount: pageCount}, nil
}

// FromText wraps flat text as a source document with an unknown page count,
// for collaborators that supply text without page structure.
func FromText(text string) (*domain.SourceDocument, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.InputError("empty extracted text", nil)
	}
	return &domain.SourceDocument{Pages: []string{text}}, nil
}
