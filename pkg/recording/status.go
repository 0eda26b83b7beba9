package recording

// Status — состояние клиентской машины записи.
type Status string

const (
	StatusNotStarted      Status = "NOT_STARTED"
	StatusStarting        Status = "STARTING"
	StatusStarted         Status = "STARTED"
	StatusStopping        Status = "STOPPING"
	StatusStopped         Status = "STOPPED"
	StatusStartingFailed  Status = "STARTING_FAILED"
	StatusStoppingFailed  Status = "STOPPING_FAILED"
	StatusStoppingUnknown Status = "STOPPING_UNKNOWN"
	StatusRequestRejected Status = "REQUEST_REJECTED"
)

// Startable — из этих состояний разрешен запуск записи.
func (s Status) Startable() bool {
	switch s {
	case StatusNotStarted, StatusStopped, StatusStartingFailed:
		return true
	}
	return false
}

// Stoppable — из этих состояний разрешена остановка записи.
func (s Status) Stoppable() bool {
	switch s {
	case StatusStarted, StatusStoppingFailed, StatusStoppingUnknown:
		return true
	}
	return false
}
