package horizon

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridbalance/core/model"
)

var t0 = time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

func flatRequest(n int, step time.Duration) model.Request {
	vals := make([]model.ForecastPoint, n)
	for i := range vals {
		vals[i] = model.ForecastPoint{Timestamp: t0.Add(time.Duration(i) * step), PGenKW: 1, PLoadKW: 2}
	}
	return model.Request{
		ControlLogic:      model.OptimizationBased,
		OperationMode:     model.Scheduling,
		UCStart:           t0,
		UCEnd:             vals[n-1].Timestamp,
		GenerationAndLoad: &model.GenerationAndLoad{Values: vals},
	}
}

func TestBuild_InfersStepAndWindow(t *testing.T) {
	req := flatRequest(8, 15*time.Minute)
	req.UCStart = t0.Add(30 * time.Minute)
	req.UCEnd = t0.Add(75 * time.Minute)
	end := t0.Add(time.Hour)
	req.DayEnd = &end

	h, err := Build(req, DefaultLocation)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, h.Step)
	assert.Equal(t, 900.0, h.StepSeconds())
	require.Equal(t, 4, h.Len())
	assert.Equal(t, req.UCStart, h.Points[0].Timestamp)
	assert.Equal(t, req.UCEnd, h.Points[3].Timestamp)
	assert.Equal(t, 2, h.DayEndIndex)
	assert.Equal(t, end, h.DayEnd)
}

func TestBuild_IrregularSpacing(t *testing.T) {
	req := flatRequest(4, 15*time.Minute)
	req.GenerationAndLoad.Values[2].Timestamp = req.GenerationAndLoad.Values[2].Timestamp.Add(time.Minute)
	_, err := Build(req, DefaultLocation)
	var verr *model.ValidationError
	require.Error(t, err)
	assert.True(t, errors.As(err, &verr))
	assert.Contains(t, err.Error(), "irregular spacing")
}

func TestBuild_AlignsLimitationsWithPresence(t *testing.T) {
	req := flatRequest(4, 15*time.Minute)
	zero := 0.0
	two := 2.0
	req.Limitations = []model.Limitation{
		{Timestamp: t0.Add(15 * time.Minute), UpperBound: &zero},
		{Timestamp: t0.Add(45 * time.Minute), LowerBound: &two},
		{Timestamp: t0.Add(5 * time.Hour), UpperBound: &two},
	}
	h, err := Build(req, DefaultLocation)
	require.NoError(t, err)
	assert.Nil(t, h.Upper[0])
	require.NotNil(t, h.Upper[1])
	assert.Equal(t, 0.0, *h.Upper[1])
	assert.Nil(t, h.Lower[1])
	require.NotNil(t, h.Lower[3])
	assert.Equal(t, 2.0, *h.Lower[3])
}

func TestBuild_BulkWindow(t *testing.T) {
	req := flatRequest(6, 15*time.Minute)
	req.Bulk = &model.Bulk{Start: t0.Add(20 * time.Minute), End: t0.Add(45 * time.Minute), EnergyKWh: 1}
	h, err := Build(req, DefaultLocation)
	require.NoError(t, err)
	require.NotNil(t, h.Bulk)
	assert.Equal(t, 2, h.Bulk.From)
	assert.Equal(t, 3, h.Bulk.To)
	assert.False(t, h.Bulk.Contains(1))
	assert.True(t, h.Bulk.Contains(3))

	req.Bulk = &model.Bulk{Start: t0.Add(10 * time.Hour), End: t0.Add(11 * time.Hour)}
	_, err = Build(req, DefaultLocation)
	assert.Error(t, err)
}

func TestBuild_DefaultDayEndUsesSunset(t *testing.T) {
	orig := sunsetFunc
	defer func() { sunsetFunc = orig }()
	var gotLoc Location
	sunsetFunc = func(day time.Time, loc Location) time.Time {
		gotLoc = loc
		return t0.Add(44 * time.Minute)
	}
	h, err := Build(flatRequest(6, 15*time.Minute), Location{Latitude: 48.1, Longitude: 11.6})
	require.NoError(t, err)
	assert.Equal(t, 48.1, gotLoc.Latitude)
	assert.Equal(t, 3, h.DayEndIndex)
}

func TestSunset_BerlinSummer(t *testing.T) {
	s := Sunset(t0, DefaultLocation)
	assert.Equal(t, 2023, s.Year())
	assert.Equal(t, time.June, s.Month())
	assert.Equal(t, 1, s.Day())
	assert.True(t, s.Hour() >= 18 && s.Hour() <= 20, "unexpected sunset %s", s)
}
