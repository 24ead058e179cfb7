// Package models defines data structures for the Stockroom ingestion pipeline.
package models

// JobStatus is the state of a multi-chunk ingestion job.
type JobStatus string

const (
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusError      JobStatus = "error"
)

// ErrorEntry is a single violation recorded against one unit.
// Field is nil for violations that are not tied to a specific field
// (e.g. oversized file).
type ErrorEntry struct {
	Field   *string `json:"field,omitempty"`
	Message string  `json:"message"`
}

// UnitError collects every violation for one unit of a job.
// UnitNumber is the 1-based position of the unit across the whole job,
// stable across chunk boundaries.
type UnitError struct {
	UnitNumber int            `json:"unitNumber"`
	Identifier string         `json:"identifier"`
	Entries    []ErrorEntry   `json:"entries"`
	Snapshot   map[string]any `json:"snapshot,omitempty"`
}

// Stats is the running state of an ingestion job. The driving client is
// the sole owner between chunk calls: it receives the updated value in
// every response and must send it back verbatim with the next chunk.
// Nothing is persisted server-side.
type Stats struct {
	Total     int         `json:"total"`
	Completed int         `json:"completed"`
	Progress  float64     `json:"progress"`
	Status    JobStatus   `json:"status"`
	Errors    []UnitError `json:"errors"`

	// AcceptedKeys are the natural keys committed so far in this job.
	// Upload jobs upsert by key, so the store cannot tell a replace from
	// a repeat; this list is what rejects a file name already accepted in
	// an earlier chunk. Import jobs leave it empty because the store
	// lookup already sees keys committed by previous chunks.
	AcceptedKeys []string `json:"acceptedKeys,omitempty"`
}

// NewStats returns the initial stats for a job of the given size.
func NewStats(total int) Stats {
	return Stats{
		Total:  total,
		Status: StatusProcessing,
		Errors: []UnitError{},
	}
}

// Processed is the number of units accounted for so far. Every unit is
// either counted in Completed or present in Errors, so the sum is the
// job-wide offset for numbering the next chunk's units.
func (s Stats) Processed() int {
	return s.Completed + len(s.Errors)
}
