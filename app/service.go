// Package app wires configuration, control, run logging, metrics and
// monitoring into a Service used by the CLI and the HTTP API.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/gridbalance/config"
	"github.com/kilianp07/gridbalance/core/control"
	"github.com/kilianp07/gridbalance/core/events"
	coremetrics "github.com/kilianp07/gridbalance/core/metrics"
	"github.com/kilianp07/gridbalance/core/milp"
	"github.com/kilianp07/gridbalance/core/model"
	coremon "github.com/kilianp07/gridbalance/core/monitoring"
	"github.com/kilianp07/gridbalance/core/optimizer"
	"github.com/kilianp07/gridbalance/core/runlog"
	"github.com/kilianp07/gridbalance/infra/logger"
	"github.com/kilianp07/gridbalance/infra/metrics"
	"github.com/kilianp07/gridbalance/infra/monitoring"
	"github.com/kilianp07/gridbalance/internal/eventbus"
)

// Service runs control requests and records every run.
type Service struct {
	cfg        *config.Config
	dispatcher *control.Dispatcher
	store      runlog.Store
	bus        *eventbus.Bus[events.Event]
	log        logger.Logger

	stopCollector context.CancelFunc
	collectorDone <-chan struct{}

	newID func() string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	store, err := runlog.NewStore(cfg.Logging.Module())
	if err != nil {
		return nil, err
	}

	solver := milp.NewBranchAndBound(cfg.Solver.Options())
	opt := optimizer.New(solver, logger.New("optimizer"))
	disp := control.NewDispatcher(opt, cfg.Location.Horizon(), logger.New("control"))

	bus := eventbus.New[events.Event]()
	ctx, cancel := context.WithCancel(context.Background())
	done := metrics.StartEventCollector(ctx, bus, sink)

	return &Service{
		cfg:           cfg,
		dispatcher:    disp,
		store:         store,
		bus:           bus,
		log:           logg,
		stopCollector: cancel,
		collectorDone: done,
		newID:         uuid.NewString,
	}, nil
}

// Run dispatches req, publishes the run events and appends a run log
// record. The returned error is non-nil only when the request was rejected;
// solver outcomes are carried in the result status.
func (s *Service) Run(ctx context.Context, req model.Request) (model.Result, error) {
	runID := s.newID()
	start := time.Now()
	tags := map[string]string{
		"run_id":         runID,
		"request_id":     req.ID,
		"control_logic":  string(req.ControlLogic),
		"operation_mode": string(req.OperationMode),
	}
	s.bus.Publish(events.RunStarted{
		RunID:         runID,
		RequestID:     req.ID,
		ControlLogic:  req.ControlLogic,
		OperationMode: req.OperationMode,
		Batteries:     len(req.Batteries),
		Time:          start,
	})

	if limit := s.cfg.Solver.TimeLimit; limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	var res model.Result
	err := coremon.Guard(tags, func() error {
		var derr error
		res, derr = s.dispatcher.Dispatch(ctx, req)
		return derr
	})
	elapsed := time.Since(start)
	s.report(err, res, tags)

	s.bus.Publish(events.RunCompleted{
		RunID:         runID,
		RequestID:     req.ID,
		ControlLogic:  req.ControlLogic,
		OperationMode: req.OperationMode,
		Status:        res.Status,
		Duration:      elapsed,
		Err:           err,
		Result:        &res,
		Time:          time.Now(),
	})
	s.record(runID, start, elapsed, req, res, err)
	return res, err
}

// report forwards unexpected failures to the monitor. Rejected input is the
// caller's problem and is not reported.
func (s *Service) report(err error, res model.Result, tags map[string]string) {
	var verr *model.ValidationError
	var cerr *control.ConfigurationError
	var perr *coremon.PanicError
	switch {
	case errors.As(err, &perr):
		// Guard already captured it.
	case err != nil && !errors.As(err, &verr) && !errors.As(err, &cerr):
		coremon.CaptureException(err, tags)
	case err == nil && res.Status == model.StatusError:
		coremon.CaptureException(fmt.Errorf("solver: %s", res.StatusDetail), tags)
	}
}

func (s *Service) record(runID string, start time.Time, elapsed time.Duration, req model.Request, res model.Result, runErr error) {
	rec := runlog.Record{
		RunID:         runID,
		Timestamp:     start,
		RequestID:     req.ID,
		ControlLogic:  req.ControlLogic,
		OperationMode: req.OperationMode,
		Status:        res.Status,
		DurationMS:    elapsed.Milliseconds(),
	}
	if runErr != nil {
		rec.Status = runlog.StatusRejected
		rec.Error = runErr.Error()
	}
	var err error
	if rec.Request, err = json.Marshal(req); err != nil {
		s.log.Warnf("run %s: encode request: %v", runID, err)
	}
	if runErr == nil {
		if rec.Result, err = json.Marshal(res); err != nil {
			s.log.Warnf("run %s: encode result: %v", runID, err)
		}
	}
	// The caller's context may already be cancelled; the record is still
	// written.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Append(ctx, rec); err != nil {
		s.log.Errorf("run %s: append run log: %v", runID, err)
	}
}

// History returns run log records matching q.
func (s *Service) History(ctx context.Context, q runlog.Query) ([]runlog.Record, error) {
	return s.store.Query(ctx, q)
}

// Close stops the event collector and releases the run log. Buffered
// monitoring events are flushed.
func (s *Service) Close() error {
	s.bus.Close()
	<-s.collectorDone
	s.stopCollector()
	coremon.Flush(2 * time.Second)
	return s.store.Close()
}
