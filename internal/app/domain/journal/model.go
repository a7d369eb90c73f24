package journal

import "time"

// Record is the persisted settlement record for a single pipeline run. Payload
// holds the serialized run outcome.
type Record struct {
	ID        string
	RunID     string
	Pipeline  string
	State     string
	Payload   []byte
	Error     string
	StartedAt time.Time
	SettledAt time.Time
	CreatedAt time.Time
}
