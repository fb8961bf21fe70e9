package jobstore

import (
	"strings"
	"time"
)

// Status mirrors the remote job service lifecycle plus the local
// downloaded state.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusRunning    Status = "running"
	StatusDone       Status = "done"
	StatusError      Status = "error"
	StatusDownloaded Status = "downloaded"
)

// ParseStatus normalizes a status string reported by the service. Unknown
// values are kept verbatim so newer service builds do not break the store.
func ParseStatus(raw string) Status {
	return Status(strings.ToLower(strings.TrimSpace(raw)))
}

// Terminal reports whether polling should stop at s.
func (s Status) Terminal() bool {
	switch s {
	case StatusDone, StatusError, StatusDownloaded:
		return true
	default:
		return false
	}
}

// Job is the locally tracked pending job.
type Job struct {
	JobID    string
	Filename string
	Status   Status
	Message  string
	// ETAs are seconds; negative means the service has not estimated yet.
	R2ETETASeconds    int
	StudentETASeconds int
	ResultDir         string
	ModelPath         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
