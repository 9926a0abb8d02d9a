package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingodoc/translation-engine/internal/domain"
	"github.com/lingodoc/translation-engine/internal/observability"
)

func TestExtract_MissingFile(t *testing.T) {
	e := NewPDFExtractor(observability.Nop())

	_, err := e.Extract(context.Background(), "/nonexistent/file.pdf")

	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeNotFound, domain.TypeOf(err))
}

func TestFromText_WrapsFlatText(t *testing.T) {
	doc, err := FromText("some extracted body")

	require.NoError(t, err)
	assert.Equal(t, []string{"some extracted body"}, doc.Pages)
	assert.Zero(t, doc.PageCount)
	assert.Equal(t, "some extracted body", doc.Text())
}

func TestFromText_RejectsBlank(t *testing.T) {
	_, err := FromText("   \n\t ")

	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeInput, domain.TypeOf(err))
}
