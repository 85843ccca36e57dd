package processor

import "github.com/tatolab/streamlib/internal/metrics"

// State is the coarse lifecycle state of a processor node.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateComponent pairs a State with the reason recorded when it is Failed.
type StateComponent struct {
	State  State
	Reason string
}

// InstanceComponent holds the live processor object. It is present in a
// node's component map only while the node is materialized (between
// Create and the matching RemoveProcessor's teardown).
type InstanceComponent struct {
	Element Element
}

// MetricsComponent accumulates the per-processor counters and latency
// samples the compiler and registry expose through describe/metrics
// queries. Percentile computation is delegated to internal/metrics.Window.
type MetricsComponent struct {
	FramesProduced uint64
	FramesDropped  uint64
	Latency        *metrics.Window
}

// NewMetricsComponent creates a MetricsComponent with the given rolling
// latency window size (samples beyond this are discarded oldest-first).
func NewMetricsComponent(windowSize int) *MetricsComponent {
	return &MetricsComponent{Latency: metrics.NewWindow(windowSize)}
}
