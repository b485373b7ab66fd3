package measure

import "time"

// Measure holds one Metric per node of a pipeline.
type Measure interface {
	AddMetric(name string) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
}

// Metric accumulates the durations observed for one node.
type Metric interface {
	AddDuration(elapsed time.Duration)
	AddFailure(elapsed time.Duration)
	AddTransportDuration(inputNodeName string, elapsed time.Duration)
	AVGDuration() time.Duration
	AVGTransportDuration() map[string]*TransportInfo
	AllTransports() map[string]*TransportInfo
	Total() int64
	Failures() int64
}
