package recording

// Severity — важность уведомления пользователю.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification — то, что показывается пользователю после перехода.
// Sticky-уведомления требуют явного закрытия, остальные гаснут сами.
type Notification struct {
	Status   Status
	Severity Severity
	Message  string
	Sticky   bool
}

// NotificationForStatus выводит уведомление из одного лишь состояния.
// История переходов на текст не влияет: одинаковое состояние — одинаковое
// уведомление. Ошибки всегда sticky и никогда не подавляются.
func NotificationForStatus(status Status) Notification {
	switch status {
	case StatusStarting:
		return Notification{Status: status, Severity: SeverityInfo, Message: "Recording is starting"}
	case StatusStarted:
		return Notification{Status: status, Severity: SeverityInfo, Message: "Recording started"}
	case StatusStopping:
		return Notification{Status: status, Severity: SeverityInfo, Message: "Recording is stopping"}
	case StatusStopped:
		return Notification{Status: status, Severity: SeverityInfo, Message: "Recording stopped"}
	case StatusStartingFailed:
		return Notification{Status: status, Severity: SeverityError, Message: "Failed to start recording", Sticky: true}
	case StatusStoppingFailed:
		return Notification{Status: status, Severity: SeverityError, Message: "Failed to stop recording", Sticky: true}
	case StatusStoppingUnknown:
		return Notification{Status: status, Severity: SeverityError, Message: "Some recordings may not have stopped", Sticky: true}
	case StatusRequestRejected:
		return Notification{Status: status, Severity: SeverityWarning, Message: "Recording request was rejected"}
	}
	return Notification{Status: status, Severity: SeverityInfo, Message: ""}
}
