package metrics

// MultiSink fans out records to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the run to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRun(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordRunStart forwards run starts to sinks that record them.
func (m *MultiSink) RecordRunStart(ev RunStartEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RunStartRecorder); ok {
			if err := rec.RecordRunStart(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordBatterySamples forwards samples to sinks that record them.
func (m *MultiSink) RecordBatterySamples(samples []BatterySample) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(BatteryRecorder); ok {
			if err := rec.RecordBatterySamples(samples); err != nil {
				return err
			}
		}
	}
	return nil
}
