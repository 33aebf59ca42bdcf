package domain

import (
	"errors"
	"time"
)

type TaskID string

// DownloadTask tracks one transfer attempt for a movie. There is at most one
// live task per movie; the orchestrator reuses and resets it on retries.
type DownloadTask struct {
	ID              TaskID     `json:"id"`
	MovieID         MovieID    `json:"movieId"`
	Status          TaskStatus `json:"status"`
	BytesDownloaded int64      `json:"bytesDownloaded"`
	TotalBytes      int64      `json:"totalBytes"` // 0 = unknown
	ProgressPercent int        `json:"progressPercent"`
	ErrorMessage    string     `json:"errorMessage,omitempty"`
	StartedAt       time.Time  `json:"startedAt"`
	CompletedAt     time.Time  `json:"completedAt,omitzero"`
}

func (t DownloadTask) Validate() error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	if t.MovieID == "" {
		return errors.New("task movieId is required")
	}
	if t.BytesDownloaded < 0 {
		return errors.New("bytesDownloaded must not be negative")
	}
	if t.TotalBytes > 0 && t.BytesDownloaded > t.TotalBytes {
		return errors.New("bytesDownloaded must not exceed totalBytes")
	}
	if t.ProgressPercent < 0 || t.ProgressPercent > 100 {
		return errors.New("progressPercent must be within 0-100")
	}
	switch t.Status {
	case TaskQueued, TaskInProgress, TaskCompleted, TaskFailed, TaskCancelled:
		// valid
	case "":
		return errors.New("status is required")
	default:
		return errors.New("invalid status: " + string(t.Status))
	}
	return nil
}

// TaskProgress holds fields for one progress tick written by the transfer.
// Bytes come from the HTTP transport, percent from the CLI transport; a tick
// carries whichever figure was actually observed and never fabricates the other.
type TaskProgress struct {
	BytesDownloaded int64
	TotalBytes      int64
	ProgressPercent int
}
