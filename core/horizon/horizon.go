// Package horizon derives the evenly spaced timestep grid a request is
// dispatched over, together with the per-step limitations, the bulk window
// and the day end used by household batteries.
package horizon

import (
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/gridbalance/core/model"
)

// BulkWindow is the bulk obligation projected onto row indices.
type BulkWindow struct {
	From      int
	To        int
	EnergyKWh float64
}

// Contains reports whether row i lies inside the window.
func (w BulkWindow) Contains(i int) bool { return i >= w.From && i <= w.To }

// Horizon is the ordered forecast window [uc_start, uc_end].
type Horizon struct {
	Points []model.ForecastPoint
	Step   time.Duration
	// Upper and Lower hold the net exchange bounds per row. Nil means no
	// bound at that row.
	Upper []*float64
	Lower []*float64
	// DayEnd is day_end snapped to the nearest row timestamp and
	// DayEndIndex is that row.
	DayEnd      time.Time
	DayEndIndex int
	Bulk        *BulkWindow
}

// Len returns the number of rows.
func (h *Horizon) Len() int { return len(h.Points) }

// StepSeconds returns the timestep length in seconds.
func (h *Horizon) StepSeconds() float64 { return h.Step.Seconds() }

// Build derives the horizon for a scheduling request. The request must have
// passed model.Request.Validate.
func Build(req model.Request, loc Location) (*Horizon, error) {
	if req.GenerationAndLoad == nil {
		return nil, &model.ValidationError{Field: "generation_and_load", Reason: "required in scheduling mode"}
	}
	all := req.GenerationAndLoad.Values
	step, err := inferStep(all)
	if err != nil {
		return nil, err
	}

	h := &Horizon{Step: step}
	for _, p := range all {
		if p.Timestamp.Before(req.UCStart) || p.Timestamp.After(req.UCEnd) {
			continue
		}
		h.Points = append(h.Points, p)
	}
	if len(h.Points) == 0 {
		return nil, &model.ValidationError{Field: "generation_and_load", Reason: "no samples inside [uc_start, uc_end]"}
	}

	h.alignLimitations(req.Limitations)

	dayEnd := req.DayEnd
	if dayEnd == nil {
		s := sunsetFunc(req.UCStart, loc)
		dayEnd = &s
	}
	h.DayEndIndex = h.nearest(*dayEnd)
	h.DayEnd = h.Points[h.DayEndIndex].Timestamp

	if req.Bulk != nil {
		w, err := h.bulkWindow(*req.Bulk)
		if err != nil {
			return nil, err
		}
		h.Bulk = w
	}
	return h, nil
}

func inferStep(points []model.ForecastPoint) (time.Duration, error) {
	if len(points) < 2 {
		return 0, &model.ValidationError{Field: "generation_and_load", Reason: "at least two samples are needed to infer the timestep"}
	}
	step := points[1].Timestamp.Sub(points[0].Timestamp)
	if step <= 0 {
		return 0, &model.ValidationError{Field: "generation_and_load", Reason: "timestamps must be strictly increasing"}
	}
	for i := 2; i < len(points); i++ {
		if d := points[i].Timestamp.Sub(points[i-1].Timestamp); d != step {
			return 0, &model.ValidationError{
				Field:  "generation_and_load",
				Reason: fmt.Sprintf("irregular spacing at %s: %s instead of %s", points[i].Timestamp.Format(time.RFC3339), d, step),
			}
		}
	}
	return step, nil
}

func (h *Horizon) alignLimitations(lims []model.Limitation) {
	h.Upper = make([]*float64, len(h.Points))
	h.Lower = make([]*float64, len(h.Points))
	if len(lims) == 0 {
		return
	}
	byTime := make(map[int64]model.Limitation, len(lims))
	for _, l := range lims {
		byTime[l.Timestamp.UnixNano()] = l
	}
	for i, p := range h.Points {
		l, ok := byTime[p.Timestamp.UnixNano()]
		if !ok {
			continue
		}
		h.Upper[i] = l.UpperBound
		h.Lower[i] = l.LowerBound
	}
}

// nearest returns the row whose timestamp is closest to t. Ties go to the
// earlier row.
func (h *Horizon) nearest(t time.Time) int {
	best, bestDist := 0, math.Inf(1)
	for i, p := range h.Points {
		d := math.Abs(float64(p.Timestamp.Sub(t)))
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func (h *Horizon) bulkWindow(b model.Bulk) (*BulkWindow, error) {
	w := &BulkWindow{From: -1, To: -1, EnergyKWh: b.EnergyKWh}
	for i, p := range h.Points {
		if p.Timestamp.Before(b.Start) || p.Timestamp.After(b.End) {
			continue
		}
		if w.From < 0 {
			w.From = i
		}
		w.To = i
	}
	if w.From < 0 {
		return nil, &model.ValidationError{Field: "bulk", Reason: "bulk window does not overlap the horizon"}
	}
	return w, nil
}
