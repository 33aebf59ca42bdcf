package domain

type MovieStatus string

const (
	MoviePending     MovieStatus = "pending"
	MovieDownloading MovieStatus = "downloading"
	MovieReady       MovieStatus = "ready"
	MovieError       MovieStatus = "error"
)

type TaskStatus string

const (
	TaskQueued     TaskStatus = "queued"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)
