// Package runlog persists one audit record per dispatched request. Stores
// are created from configuration through a factory registry; JSONL, rotating
// JSONL and SQLite backends are built in.
package runlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kilianp07/gridbalance/core/model"
)

// StatusRejected marks runs refused before any strategy produced a result.
const StatusRejected model.Status = "rejected"

// Record captures one request, its result and how the run ended.
type Record struct {
	RunID         string              `json:"run_id"`
	Timestamp     time.Time           `json:"timestamp"`
	RequestID     string              `json:"request_id"`
	ControlLogic  model.ControlLogic  `json:"control_logic"`
	OperationMode model.OperationMode `json:"operation_mode"`
	Status        model.Status        `json:"status"`
	DurationMS    int64               `json:"duration_ms"`
	Error         string              `json:"error,omitempty"`
	Request       json.RawMessage     `json:"request,omitempty"`
	Result        json.RawMessage     `json:"result,omitempty"`
}

// Query filters records. Zero values do not filter. Limit keeps only the
// most recent matches; results are always in chronological order.
type Query struct {
	Start     time.Time
	End       time.Time
	RequestID string
	Status    model.Status
	Limit     int
}

// Match reports whether r passes the time, request and status filters.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.RequestID != "" && r.RequestID != q.RequestID {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	return true
}

func (q Query) limit(recs []Record) []Record {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
