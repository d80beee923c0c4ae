package history

import "time"

// Event statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Event is one recorded configure run or lifecycle action.
type Event struct {
	ID              int64      `json:"id"`
	Action          string     `json:"action"` // configure, start, stop, restart, kill
	Target          string     `json:"target"` // web, queue, config
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationSeconds *float64   `json:"duration_seconds,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
}

// Finish sets the completion time, duration and status from err.
func (e *Event) Finish(err error) {
	now := time.Now().UTC()
	e.CompletedAt = &now
	if !e.StartedAt.IsZero() {
		d := now.Sub(e.StartedAt).Seconds()
		e.DurationSeconds = &d
	}
	if err != nil {
		msg := err.Error()
		e.Status = StatusFailed
		e.ErrorMessage = &msg
		return
	}
	if e.Status == "" {
		e.Status = StatusSuccess
	}
}
