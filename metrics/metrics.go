// Package metrics defines the recorder interface used by agentpay and its
// Prometheus implementation.
package metrics

import "time"

// Recorder receives operation counters and latencies.
// Labels carry at least "chain"; missing labels are recorded as "".
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// OrNoop returns r, or a NoopRecorder when r is nil
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
