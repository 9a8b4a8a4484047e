package domain

import "time"

// SyncStats holds statistics about a sync run.
type SyncStats struct {
	RunID     string
	Countries int
	Created   int
	Updated   int
	Unchanged int
	Deleted   int
	Charts    int
	Errors    int
	Duration  time.Duration
}

// SyncRun is the audit record of one sync run.
type SyncRun struct {
	ID         string      `db:"id"`
	StartedAt  time.Time   `db:"started_at"`
	FinishedAt time.Time   `db:"finished_at"`
	Countries  int         `db:"countries"`
	Created    int         `db:"created"`
	Updated    int         `db:"updated"`
	Unchanged  int         `db:"unchanged"`
	Deleted    int         `db:"deleted"`
	Errors     int         `db:"errors"`
	DryRun     bool        `db:"dry_run"`
	Actions    []ActionLog `db:"-"`
}

// ActionLog records what happened to one dataset in a run.
type ActionLog struct {
	DatasetID string `db:"dataset_id"`
	Action    string `db:"action"`
	Error     string `db:"error"`
}

// DatasetEvent announces a change made to a portal dataset.
type DatasetEvent struct {
	RunID     string    `json:"run_id"`
	DatasetID string    `json:"dataset_id"`
	Action    string    `json:"action"`
	Resources int       `json:"resources"`
	Timestamp time.Time `json:"timestamp"`
}

// MaintenanceStats counts the outcome of a walk over existing datasets.
type MaintenanceStats struct {
	Seen      int
	Updated   int
	Unchanged int
	Errors    int
}
