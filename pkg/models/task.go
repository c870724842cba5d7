package models

import "time"

// TaskStatus is the lifecycle state of one download task.
type TaskStatus string

const (
	TaskStarting    TaskStatus = "starting"
	TaskDownloading TaskStatus = "downloading"
	TaskCompleted   TaskStatus = "completed"
	TaskFailed      TaskStatus = "failed"
)

// DownloadTask is one tracked download. Progress is monotonically
// non-decreasing and reaches 100 only on success; on failure it stays at
// the last reported value.
type DownloadTask struct {
	ID         string     `json:"id"`
	Input      string     `json:"input"`
	Quality    Quality    `json:"quality"`
	OutputDir  string     `json:"output_dir"`
	Status     TaskStatus `json:"status"`
	Percentage float64    `json:"percentage"`
	FileName   string     `json:"file_name,omitempty"`
	FilePath   string     `json:"file_path,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// Task event routing keys on the message exchange.
const (
	TaskProgressKey  = "task.progress"
	TaskCompletedKey = "task.completed"
	TaskFailedKey    = "task.failed"
)

// TaskEvent is broadcast to websocket clients and published to the
// message exchange for downstream consumers.
type TaskEvent struct {
	Type       string     `json:"type"`
	TaskID     string     `json:"task_id"`
	Status     TaskStatus `json:"status"`
	Percentage float64    `json:"percentage"`
	FilePath   string     `json:"file_path,omitempty"`
	Error      string     `json:"error,omitempty"`
}
