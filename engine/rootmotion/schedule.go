package rootmotion

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultSampleRate is the number of samples taken per second of clip time.
const DefaultSampleRate float32 = 60

// scheduleEpsilon absorbs float error in duration*rate so that exact multiples keep their final sample.
const scheduleEpsilon = 1e-4

// SampleTimes returns the bake sample times i/rate for i = 0..floor(duration*rate).
// The first time is always 0, so even a zero-length clip yields one sample, and no time
// exceeds duration.
//
// Parameters:
//   - duration: clip duration in seconds, negative values are treated as 0
//   - rate: samples per second, non-positive values fall back to DefaultSampleRate
//
// Returns:
//   - []float32: the sample times in strictly increasing order
func SampleTimes(duration, rate float32) []float32 {
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	if duration < 0 || math.IsNaN(float64(duration)) {
		duration = 0
	}

	last := int(math.Floor(float64(duration)*float64(rate) + scheduleEpsilon))
	out := make([]float32, last+1)
	for i := range out {
		out[i] = float32(float64(i) / float64(rate))
	}
	out[last] = min(out[last], duration)
	return out
}

// BuildCurve assembles sampled positions into a linear root motion curve.
//
// Parameters:
//   - timestamps: the sample times
//   - positions: one sampled position per time
//
// Returns:
//   - *model.RootMotionCurve: the curve
//   - error: ErrCurveLengthMismatch if the counts differ, or model.ErrInvalidCurve
func BuildCurve(timestamps []float32, positions []mgl32.Vec3) (*model.RootMotionCurve, error) {
	if len(timestamps) != len(positions) {
		return nil, fmt.Errorf("%d timestamps, %d positions: %w", len(timestamps), len(positions), ErrCurveLengthMismatch)
	}
	return model.NewRootMotionCurve(timestamps, positions, model.InterpolationLinear)
}
