package models

import "time"

type SyncMode string

const (
	ModeFull        SyncMode = "full"
	ModeIncremental SyncMode = "incremental"
)

// ExportBatch is the unit handed to the export writer. It exists only for
// the duration of one run.
type ExportBatch struct {
	Records     []CanonicalRecord
	GeneratedAt time.Time
	Scope       SyncMode
}

// SyncSummary is the report returned by a completed run.
type SyncSummary struct {
	Count           int       `json:"count"`
	Scope           SyncMode  `json:"scope"`
	OutputPath      string    `json:"output_path,omitempty"`
	SizeBytes       int64     `json:"size_bytes"`
	GeneratedAt     time.Time `json:"generated_at"`
	OversizeWarning bool      `json:"oversize_warning"`
}

// EngineStatus is a point-in-time view of the engine for the API layer.
type EngineStatus struct {
	Running   bool         `json:"running"`
	Phase     string       `json:"phase"`
	Watermark time.Time    `json:"watermark,omitempty"`
	LastRun   *SyncSummary `json:"last_run,omitempty"`
	LastError string       `json:"last_error,omitempty"`
}

// ExportInfo describes one file in the exports directory.
type ExportInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	Compressed bool      `json:"compressed"`
}
