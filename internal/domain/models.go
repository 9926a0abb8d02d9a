// Package domain holds the data model shared across the translation pipeline.
package domain

import "time"

// SourceDocument is the extracted text of an uploaded document: one string
// per page, plus the declared page count. PageCount may be 0 when the
// extraction collaborator could not determine it. Immutable once produced.
type SourceDocument struct {
	Pages     []string
	PageCount int
}

// Text returns the document's full text with pages joined by blank lines.
func (d *SourceDocument) Text() string {
	switch len(d.Pages) {
	case 0:
		return ""
	case 1:
		return d.Pages[0]
	}
	n := 0
	for _, p := range d.Pages {
		n += len(p) + 2
	}
	buf := make([]byte, 0, n)
	for i, p := range d.Pages {
		if i > 0 {
			buf = append(buf, '\n', '\n')
		}
		buf = append(buf, p...)
	}
	return string(buf)
}

// WorkUnit is one bounded slice of source text scheduled as a single
// translation call. Indices are contiguous from 0 in source order and never
// change after creation.
type WorkUnit struct {
	Index     int
	Text      string
	PageStart int
	PageEnd   int
}

// Usage is the token accounting reported by the remote translation model,
// when available.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// TaskResult is the outcome of executing one WorkUnit. Produced exactly once
// per unit; Text is empty when OK is false.
type TaskResult struct {
	Index    int
	Text     string
	OK       bool
	Attempts int
	Duration time.Duration
	ErrMsg   string
	Usage    *Usage
}

// Pages returns the number of source pages the unit spans. Zero when the
// unit carries no page range.
func (u WorkUnit) Pages() int {
	if u.PageStart < 1 || u.PageEnd < u.PageStart {
		return 0
	}
	return u.PageEnd - u.PageStart + 1
}
