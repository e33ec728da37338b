package amqp

import (
	"encoding/json"
	"time"

	"github.com/dontoisme/zeroed/internal/core"
)

// SnapshotRequest asks the worker to export one month's budget view.
// Deliberately tiny: the worker recomputes the view from the database so a
// stale message can never export stale numbers.
type SnapshotRequest struct {
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSnapshotRequest builds a request for the given month.
func NewSnapshotRequest(month core.Month) *SnapshotRequest {
	return &SnapshotRequest{
		Year:      month.Year,
		Month:     int(month.Mon),
		Timestamp: time.Now(),
	}
}

// BudgetMonth reconstructs the month the request targets.
func (m *SnapshotRequest) BudgetMonth() core.Month {
	return core.NewMonth(m.Year, time.Month(m.Month))
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotRequestFromJSON creates a message from JSON bytes
func SnapshotRequestFromJSON(data []byte) (*SnapshotRequest, error) {
	var msg SnapshotRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
