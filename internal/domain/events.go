package domain

import "time"

// EventType identifies a pipeline lifecycle event.
type EventType string

const (
	EventInit      EventType = "init"
	EventProgress  EventType = "progress"
	EventChunk     EventType = "chunk"
	EventMetrics   EventType = "metrics"
	EventBuilding  EventType = "building"
	EventCompleted EventType = "completed"
	EventError     EventType = "error"
	EventHeartbeat EventType = "heartbeat"
)

// Event is one entry in a run's progress stream. Events are delivered to the
// subscriber in emission order; Data holds the payload struct matching Type.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// InitData announces the total number of work units before execution starts.
type InitData struct {
	TotalChunks int `json:"totalChunks"`
}

// ProgressData reports one settled unit, in true completion order.
type ProgressData struct {
	CurrentChunk int    `json:"currentChunk"`
	TotalChunks  int    `json:"totalChunks"`
	Message      string `json:"message,omitempty"`
}

// ChunkData carries per-unit execution metrics, emitted by the executor
// before the unit's result is returned.
type ChunkData struct {
	Index      int    `json:"index"`
	DurationMs int64  `json:"durationMs"`
	OK         bool   `json:"ok"`
	TextLength int    `json:"textLength"`
	Attempts   int    `json:"attempts"`
	Usage      *Usage `json:"usage,omitempty"`
}

// MetricsData summarizes the run once all admitted units have settled.
type MetricsData struct {
	AverageLatencyMs int64 `json:"averageLatencyMs"`
	CompletedChunks  int   `json:"completedChunks"`
	FailedChunks     int   `json:"failedChunks"`
}

// CompletedData is the terminal payload of a successful (possibly partial)
// run. PagesProcessed is estimated from unit sizes when the extraction
// collaborator reported no page count; Estimated flags that case.
type CompletedData struct {
	DownloadRef     string `json:"downloadRef"`
	PagesProcessed  int    `json:"pagesProcessed"`
	Estimated       bool   `json:"estimated,omitempty"`
	Partial         bool   `json:"partial"`
	FailedChunks    []int  `json:"failedChunks"`
	SuccessfulUnits int    `json:"successfulUnits"`
}

// ErrorData is the terminal payload of a fatally failed run.
type ErrorData struct {
	Message string `json:"message"`
}

// HeartbeatData keeps a long-lived subscriber alive during slow remote calls.
type HeartbeatData struct {
	Timestamp time.Time `json:"timestamp"`
}
