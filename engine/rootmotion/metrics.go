package rootmotion

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Skip reasons used as the "reason" label of rootmotion_nodes_skipped_total.
const (
	ReasonMissingGraph     = "missing_graph"
	ReasonMissingClip      = "missing_clip"
	ReasonZeroMass         = "zero_mass"
	ReasonUnimplemented    = "unimplemented_bake_type"
	ReasonMissingTransform = "missing_transform"
	ReasonInvalidOwner     = "invalid_owner"
	ReasonOther            = "other"
)

// Metrics holds the prometheus collectors updated by the bake driver.
type Metrics struct {
	NodesBaked   prometheus.Counter
	NodesSkipped *prometheus.CounterVec
	Samples      prometheus.Counter
	BakeDuration prometheus.Histogram
}

// NewMetrics creates the bake collectors and registers them on reg.
//
// Parameters:
//   - reg: the registerer, or nil to leave the collectors unregistered
//
// Returns:
//   - *Metrics: the collectors
//   - error: if registration fails
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		NodesBaked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rootmotion_nodes_baked_total",
			Help: "Total number of animation graph nodes baked into root motion curves",
		}),
		NodesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rootmotion_nodes_skipped_total",
			Help: "Total number of root motion nodes skipped during a bake pass",
		}, []string{"reason"}),
		Samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rootmotion_samples_total",
			Help: "Total number of center of gravity samples taken",
		}),
		BakeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rootmotion_bake_duration_seconds",
			Help:    "Duration of bake passes",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.NodesBaked, m.NodesSkipped, m.Samples, m.BakeDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingGraph):
		return ReasonMissingGraph
	case errors.Is(err, ErrMissingClip):
		return ReasonMissingClip
	case errors.Is(err, ErrZeroMassNodes):
		return ReasonZeroMass
	case errors.Is(err, ErrUnimplementedBakeType):
		return ReasonUnimplemented
	case errors.Is(err, ErrMissingTransform):
		return ReasonMissingTransform
	case errors.Is(err, ErrInvalidOwner):
		return ReasonInvalidOwner
	default:
		return ReasonOther
	}
}
