package events

import (
	"time"

	"github.com/kilianp07/gridbalance/core/model"
)

// Event is implemented by every value published on the run bus.
type Event interface {
	RunKey() string
}

// RunStarted is emitted before the selected strategy is invoked.
type RunStarted struct {
	RunID         string
	RequestID     string
	ControlLogic  model.ControlLogic
	OperationMode model.OperationMode
	Batteries     int
	Time          time.Time
}

// RunKey implements Event.
func (e RunStarted) RunKey() string { return e.RunID }

// RunCompleted is emitted once per run. Err is set when the request was
// rejected before a result could be produced; solver statuses are carried
// in Status.
type RunCompleted struct {
	RunID         string
	RequestID     string
	ControlLogic  model.ControlLogic
	OperationMode model.OperationMode
	Status        model.Status
	Duration      time.Duration
	Err           error
	Result        *model.Result
	Time          time.Time
}

// RunKey implements Event.
func (e RunCompleted) RunKey() string { return e.RunID }

// Failed reports whether the run ended without rows.
func (e RunCompleted) Failed() bool {
	return e.Err != nil || !e.Status.HasSolution()
}
