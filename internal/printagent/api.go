package printagent

import (
	"encoding/json"
	"time"
)

// Job is a pending print job as served by the relay.
type Job struct {
	ID        int64           `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// pendingResponse models the relay's reply to a pending poll.
type pendingResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Data  []Job  `json:"data"`
}

// statusResponse models the relay's reply to ack and purge calls.
type statusResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
