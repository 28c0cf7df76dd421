package stats

import "time"

const (
	EventResponse = "response"
	EventError    = "error"
	EventTimeout  = "timeout"
)

// StatusUpdate records one finished invocation.
type StatusUpdate struct {
	Event      string        `json:"event"`
	Status     int           `json:"status"`
	DurationMs float64       `json:"duration_ms"`
	Error      string        `json:"error,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
	duration   time.Duration
}

func Event() *StatusUpdate {
	return &StatusUpdate{Timestamp: time.Now()}
}

func (su *StatusUpdate) Response() *StatusUpdate {
	su.Event = EventResponse
	return su
}

func (su *StatusUpdate) Failure(err error) *StatusUpdate {
	su.Event = EventError
	if err != nil {
		su.Error = err.Error()
	}
	return su
}

func (su *StatusUpdate) Timeout() *StatusUpdate {
	su.Event = EventTimeout
	return su
}

func (su *StatusUpdate) WithStatus(status int) *StatusUpdate {
	su.Status = status
	return su
}

func (su *StatusUpdate) Took(d time.Duration) *StatusUpdate {
	su.duration = d
	su.DurationMs = float64(d.Microseconds()) / 1000
	return su
}
