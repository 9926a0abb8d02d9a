// Package render persists the assembled translation as a downloadable
// document. Rendering fidelity is intentionally minimal: a UTF-8 text file
// with one blank line between paragraphs.
package render

import (
	"context"
	"strings"

	"github.com/lingodoc/translation-engine/internal/domain"
	"github.com/lingodoc/translation-engine/internal/observability"
	"github.com/lingodoc/translation-engine/internal/storage"
)

// TextRenderer writes paragraph sequences to the output file store.
type TextRenderer struct {
	store  *storage.FileStore
	logger *observability.Logger
}

// NewTextRenderer creates a renderer over the given store.
func NewTextRenderer(store *storage.FileStore, logger *observability.Logger) *TextRenderer {
	return &TextRenderer{store: store, logger: logger.WithComponent("render")}
}

// Render writes the paragraphs as one document and returns its download ref.
func (r *TextRenderer) Render(ctx context.Context, paragraphs []string) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	body := strings.Join(paragraphs, "\n\n")
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}

	ref, err := r.store.SaveBytes([]byte(body), ".txt")
	if err != nil {
		return "", domain.StorageError("persist rendered document", err)
	}

	r.logger.Debug().
		Str("ref", ref).
		Int("paragraphs", len(paragraphs)).
		Int("bytes", len(body)).
		Msg("Rendered document")

	return ref, nil
}
