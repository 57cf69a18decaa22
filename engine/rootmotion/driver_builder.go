package rootmotion

import "log/slog"

// DriverBuilderOption is a functional option for configuring a Driver during construction.
type DriverBuilderOption func(*driver)

// WithSampleRate sets the number of samples per second of clip time. Non-positive values are ignored.
//
// Parameters:
//   - rate: samples per second
//
// Returns:
//   - DriverBuilderOption: functional option to set the sample rate
func WithSampleRate(rate float32) DriverBuilderOption {
	return func(d *driver) {
		if rate > 0 {
			d.sampleRate = rate
		}
	}
}

// WithMassPolicy sets which nodes contribute to the center of gravity.
//
// Parameters:
//   - policy: the mass policy
//
// Returns:
//   - DriverBuilderOption: functional option to set the mass policy
func WithMassPolicy(policy MassPolicy) DriverBuilderOption {
	return func(d *driver) {
		d.massPolicy = policy
	}
}

// WithRootBoneName designates the bone tracked by BakeTypeRootBone nodes.
//
// Parameters:
//   - name: the bone name
//
// Returns:
//   - DriverBuilderOption: functional option to set the root bone
func WithRootBoneName(name string) DriverBuilderOption {
	return func(d *driver) {
		d.rootBoneName = name
	}
}

// WithCurvePath sets how stable curve paths are derived. nil restores DefaultCurvePath.
//
// Parameters:
//   - fn: the path function
//
// Returns:
//   - DriverBuilderOption: functional option to set the path function
func WithCurvePath(fn CurvePathFunc) DriverBuilderOption {
	return func(d *driver) {
		if fn == nil {
			fn = DefaultCurvePath
		}
		d.curvePath = fn
	}
}

// WithLogger sets the structured logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - DriverBuilderOption: functional option to set the logger
func WithLogger(logger *slog.Logger) DriverBuilderOption {
	return func(d *driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics sets the prometheus collectors updated by each pass.
//
// Parameters:
//   - m: the collectors from NewMetrics
//
// Returns:
//   - DriverBuilderOption: functional option to set the metrics
func WithMetrics(m *Metrics) DriverBuilderOption {
	return func(d *driver) {
		d.metrics = m
	}
}
