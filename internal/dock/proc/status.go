package proc

// Status represents the current state of a spawned job.
type Status int

const (
	// StatusPending indicates the process has not yet started.
	StatusPending Status = iota
	// StatusRunning indicates the process is actively running.
	StatusRunning
	// StatusCompleted indicates the process exited zero.
	StatusCompleted
	// StatusFailed indicates the process exited non-zero or errored.
	StatusFailed
	// StatusCancelled indicates the job was stopped by its owner.
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}
