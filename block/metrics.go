package block

import "github.com/rcrowley/go-metrics"

// Metrics counts entity activity. The zero registry yields no-op metrics.
type Metrics struct {
	CompileFailures metrics.Counter
	LinksPruned     metrics.Counter
	Recompiles      metrics.Counter
	Instructions    metrics.Meter
}

// NewMetrics registers the entity metrics in r. Entities sharing a
// registry share the metrics. A nil r returns no-op metrics.
func NewMetrics(r metrics.Registry) *Metrics {
	if r == nil {
		return &Metrics{
			CompileFailures: new(metrics.NilCounter),
			LinksPruned:     new(metrics.NilCounter),
			Recompiles:      new(metrics.NilCounter),
			Instructions:    new(metrics.NilMeter),
		}
	}
	return &Metrics{
		CompileFailures: metrics.GetOrRegisterCounter("logic.compile.failures", r),
		LinksPruned:     metrics.GetOrRegisterCounter("logic.links.pruned", r),
		Recompiles:      metrics.GetOrRegisterCounter("logic.recompiles", r),
		Instructions:    metrics.GetOrRegisterMeter("logic.instructions", r),
	}
}
