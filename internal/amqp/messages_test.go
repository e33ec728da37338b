package amqp

import (
	"testing"
	"time"

	"github.com/dontoisme/zeroed/internal/core"
)

func TestSnapshotRequest_RoundTrip(t *testing.T) {
	month := core.NewMonth(2026, time.March)
	msg := NewSnapshotRequest(month)

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON error = %v", err)
	}
	decoded, err := SnapshotRequestFromJSON(data)
	if err != nil {
		t.Fatalf("SnapshotRequestFromJSON error = %v", err)
	}

	if decoded.Year != 2026 || decoded.Month != 3 {
		t.Errorf("decoded = %d-%d, want 2026-3", decoded.Year, decoded.Month)
	}
	if decoded.BudgetMonth() != month {
		t.Errorf("BudgetMonth = %v, want %v", decoded.BudgetMonth(), month)
	}
	if decoded.Timestamp.IsZero() {
		t.Error("timestamp should survive the round trip")
	}
}

func TestSnapshotRequestFromJSON_Invalid(t *testing.T) {
	if _, err := SnapshotRequestFromJSON([]byte("not json")); err == nil {
		t.Error("invalid JSON should fail")
	}
}
