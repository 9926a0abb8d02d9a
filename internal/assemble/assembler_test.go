package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingodoc/translation-engine/internal/domain"
)

func okResult(i int, text string) domain.TaskResult {
	return domain.TaskResult{Index: i, Text: text, OK: true}
}

func TestAssemble_AllSuccessful(t *testing.T) {
	results := map[int]domain.TaskResult{
		0: okResult(0, "first"),
		1: okResult(1, "second"),
		2: okResult(2, "third"),
	}

	out, err := Assemble(results, 3)

	require.NoError(t, err)
	assert.Equal(t, "first\n\nsecond\n\nthird", out.Body)
	assert.False(t, out.Partial)
	assert.Equal(t, 3, out.SuccessfulUnits)
	assert.Empty(t, out.FailedIndices)
}

func TestAssemble_OrderedByIndexNotSettlement(t *testing.T) {
	// map iteration order must not matter
	results := map[int]domain.TaskResult{
		2: okResult(2, "c"),
		0: okResult(0, "a"),
		1: okResult(1, "b"),
	}

	out, err := Assemble(results, 3)

	require.NoError(t, err)
	assert.Equal(t, "a\n\nb\n\nc", out.Body)
}

func TestAssemble_FailedUnitOmitted(t *testing.T) {
	results := map[int]domain.TaskResult{
		0: okResult(0, "a"),
		1: {Index: 1, OK: false, ErrMsg: "upstream rejected"},
		2: okResult(2, "c"),
	}

	out, err := Assemble(results, 3)

	require.NoError(t, err)
	assert.Equal(t, "a\n\nc", out.Body)
	assert.True(t, out.Partial)
	assert.Equal(t, 2, out.SuccessfulUnits)
	assert.Equal(t, []int{1}, out.FailedIndices)
}

func TestAssemble_MissingUnitTreatedAsFailed(t *testing.T) {
	// unit 1 never settled (deadline cut the run short)
	results := map[int]domain.TaskResult{
		0: okResult(0, "a"),
	}

	out, err := Assemble(results, 3)

	require.NoError(t, err)
	assert.Equal(t, "a", out.Body)
	assert.True(t, out.Partial)
	assert.Equal(t, []int{1, 2}, out.FailedIndices)
}

func TestAssemble_ZeroSuccessesIsError(t *testing.T) {
	results := map[int]domain.TaskResult{
		0: {Index: 0, OK: false},
		1: {Index: 1, OK: false},
	}

	out, err := Assemble(results, 2)

	require.Error(t, err)
	assert.Nil(t, out)
	assert.Equal(t, domain.ErrorTypeAssembly, domain.TypeOf(err))
}
