package ingest

import (
	"time"
)

const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Run is the trace of one pipeline execution.
type Run struct {
	ID             string         `json:"id"`
	Pipeline       string         `json:"pipeline"`
	Source         string         `json:"source"`
	Destination    string         `json:"destination"`
	Dataset        string         `json:"dataset"`
	LoadID         string         `json:"load_id,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
	Status         string         `json:"status"` // RUNNING, COMPLETED, FAILED
	RecordsFetched int            `json:"records_fetched"`
	RowCounts      map[string]int `json:"row_counts,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// StateEngineVersion is the layout version of State.
const StateEngineVersion = 4

// State is the pipeline state kept in the working directory and mirrored into
// _dlt_pipeline_state. A full refresh starts it over.
type State struct {
	Version           int        `json:"_state_version"`
	EngineVersion     int        `json:"_state_engine_version"`
	VersionHash       string     `json:"_version_hash,omitempty"`
	PipelineName      string     `json:"pipeline_name"`
	DatasetName       string     `json:"dataset_name"`
	DefaultSchemaName string     `json:"default_schema_name"`
	SchemaNames       []string   `json:"schema_names"`
	DestinationType   string     `json:"destination_type"`
	Local             LocalState `json:"_local"`
}

type LocalState struct {
	FirstRun        bool      `json:"first_run"`
	LastExtractedAt time.Time `json:"_last_extracted_at"`
	LastLoadID      string    `json:"last_load_id"`
}
