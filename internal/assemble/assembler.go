// Package assemble reorders settled task results into the final text body.
package assemble

import (
	"strings"

	"github.com/lingodoc/translation-engine/internal/domain"
)

// Assembly is the ordered reassembly of a run's results.
type Assembly struct {
	Body            string
	Partial         bool
	SuccessfulUnits int
	FailedIndices   []int
}

// Assemble concatenates successful results in original index order. Failed
// or missing units contribute nothing to the body (omission over placeholder
// corruption) and are recorded in FailedIndices. A run with zero successful
// units is a hard failure, not a partial success.
func Assemble(results map[int]domain.TaskResult, totalUnits int) (*Assembly, error) {
	out := &Assembly{}

	var parts []string
	for i := 0; i < totalUnits; i++ {
		result, ok := results[i]
		if !ok || !result.OK {
			out.FailedIndices = append(out.FailedIndices, i)
			continue
		}
		parts = append(parts, result.Text)
		out.SuccessfulUnits++
	}

	if out.SuccessfulUnits == 0 {
		return nil, domain.AssemblyError("no units translated successfully", nil)
	}

	out.Body = strings.Join(parts, "\n\n")
	out.Partial = out.SuccessfulUnits < totalUnits

	return out, nil
}
