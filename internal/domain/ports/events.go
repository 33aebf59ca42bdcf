package ports

import "mediavault/internal/domain"

// ProgressSink receives download task snapshots as a transfer proceeds.
// Publish is fire-and-forget: implementations must never block the transfer
// and delivery is not guaranteed.
type ProgressSink interface {
	Publish(task domain.DownloadTask)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Publish(domain.DownloadTask) {}
