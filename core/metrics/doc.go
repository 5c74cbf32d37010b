// Package metrics defines interfaces and implementations for collecting
// control run metrics. Sinks like PromSink and InfluxSink record completed
// runs and per-battery samples and can be combined with NewMultiSink. The
// factory helpers return a MultiSink automatically when multiple sinks are
// configured. Optional recorder interfaces let a sink opt into run starts
// or battery samples.
package metrics
