package animator

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-rootmotion/common"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/hierarchy"
	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
)

var (
	// ErrNoClip is returned when a clip operation is requested without a clip.
	ErrNoClip = errors.New("no animation clip")

	// ErrNoPose is returned by ApplyPose before any pose has been evaluated.
	ErrNoPose = errors.New("no pose evaluated")
)

// PoseEvaluator evaluates an animation clip at a given time and writes the resulting
// local transforms into a hierarchy.
type PoseEvaluator interface {
	// ScrubTo evaluates clip at an absolute clip time and holds the resulting pose.
	//
	// Parameters:
	//   - clip: the clip to evaluate
	//   - t: clip-local time in seconds, clamped to the clip's keyed range
	//
	// Returns:
	//   - error: ErrNoClip if clip is nil
	ScrubTo(clip *model.AnimationClip, t float32) error

	// ApplyPose writes the held pose into the target transforms.
	//
	// Parameters:
	//   - store: the transform store owning the target nodes
	//
	// Returns:
	//   - error: ErrNoPose before the first evaluation, or the store's error
	ApplyPose(store hierarchy.TransformStore) error
}

// playbackState tracks runtime playback of the active clip.
type playbackState struct {
	time, speed float32
	loop        bool
	playing     bool
}

// animator is the implementation of the Animator interface.
type animator struct {
	mu *sync.Mutex

	skeleton  *model.Skeleton
	bindStore hierarchy.TransformStore
	targets   map[int32]hierarchy.NodeID
	order     []int32
	bindPose  map[int32]model.Transform

	clip  *model.AnimationClip
	pose  map[int32]model.Transform
	state playbackState
}

// Animator is a CPU pose evaluator bound to a set of target nodes, one per skeleton bone.
//
// Bones without a channel in the evaluated clip, and channel components without keyframes,
// keep their bind pose. The bind pose is captured once at construction, either from the
// skeleton's bone rest transforms or from the current transforms of the target nodes.
// Besides scrubbing to absolute times, the Animator supports looping runtime playback.
type Animator interface {
	PoseEvaluator

	// Play starts runtime playback of clip from time 0 at speed 1.
	//
	// Parameters:
	//   - clip: the clip to play
	//   - loop: whether playback wraps at the clip duration
	Play(clip *model.AnimationClip, loop bool)

	// Stop halts runtime playback. The held pose is kept.
	Stop()

	// Advance moves playback forward by deltaTime scaled by the playback speed and
	// re-evaluates the pose. Non-looping playback stops at the clip duration.
	//
	// Parameters:
	//   - deltaTime: elapsed time in seconds
	Advance(deltaTime float32)

	// SetSpeed sets the playback speed multiplier.
	//
	// Parameters:
	//   - speed: the speed multiplier (1.0 = normal, 0.5 = half speed)
	SetSpeed(speed float32)

	// Speed returns the playback speed multiplier.
	Speed() float32

	// Time returns the clip time of the held pose.
	Time() float32

	// Playing reports whether runtime playback is active.
	Playing() bool

	// Clip returns the clip of the held pose, or nil.
	Clip() *model.AnimationClip

	// Targets returns the bone indices this animator writes, in ascending order.
	Targets() []int32

	// BonePose returns the held local transform of a bone.
	//
	// Parameters:
	//   - boneIndex: the skeleton bone index
	//
	// Returns:
	//   - model.Transform: the held transform
	//   - bool: false if the bone is not a target or no pose is held
	BonePose(boneIndex int32) (model.Transform, bool)
}

var _ Animator = &animator{}

// NewAnimator creates a new Animator configured with the given options.
//
// Parameters:
//   - options: functional options, typically WithTargets plus WithSkeleton or WithBindPoseFrom
//
// Returns:
//   - Animator: the new animator
func NewAnimator(options ...AnimatorBuilderOption) Animator {
	a := &animator{
		mu:       &sync.Mutex{},
		targets:  make(map[int32]hierarchy.NodeID),
		bindPose: make(map[int32]model.Transform),
		state:    playbackState{speed: 1},
	}
	for _, opt := range options {
		opt(a)
	}

	a.order = common.SortedKeys(a.targets)
	for _, bone := range a.order {
		a.bindPose[bone] = a.restTransform(bone)
	}
	return a
}

func (a *animator) restTransform(bone int32) model.Transform {
	if a.skeleton != nil && bone >= 0 && int(bone) < len(a.skeleton.Bones) {
		return a.skeleton.Bones[bone].LocalTransform
	}
	if a.bindStore != nil {
		if t, ok := a.bindStore.Transform(a.targets[bone]); ok {
			return t
		}
	}
	return model.IdentityTransform()
}

func (a *animator) ScrubTo(clip *model.AnimationClip, t float32) error {
	if clip == nil {
		return ErrNoClip
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.clip = clip
	a.state.time = t
	a.evaluate()
	return nil
}

// evaluate assumes the lock is held.
func (a *animator) evaluate() {
	pose := make(map[int32]model.Transform, len(a.order))
	for _, bone := range a.order {
		rest := a.bindPose[bone]
		if ch := a.clip.Channel(bone); ch != nil {
			pose[bone] = ch.Sample(a.state.time, rest)
		} else {
			pose[bone] = rest
		}
	}
	a.pose = pose
}

func (a *animator) ApplyPose(store hierarchy.TransformStore) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pose == nil {
		return ErrNoPose
	}
	for _, bone := range a.order {
		if err := store.SetTransform(a.targets[bone], a.pose[bone]); err != nil {
			return fmt.Errorf("apply pose to bone %d: %w", bone, err)
		}
	}
	return nil
}

func (a *animator) Play(clip *model.AnimationClip, loop bool) {
	if clip == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.clip = clip
	a.state = playbackState{time: 0, speed: 1, loop: loop, playing: true}
	a.evaluate()
}

func (a *animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.playing = false
}

func (a *animator) Advance(deltaTime float32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.state.playing || a.clip == nil {
		return
	}

	a.state.time += deltaTime * a.state.speed
	duration := a.clip.Duration
	switch {
	case duration <= 0:
		a.state.time = 0
	case a.state.loop:
		a.state.time = float32(math.Mod(float64(a.state.time), float64(duration)))
		if a.state.time < 0 {
			a.state.time += duration
		}
	case a.state.time >= duration:
		a.state.time = duration
		a.state.playing = false
	case a.state.time < 0:
		a.state.time = 0
		a.state.playing = false
	}
	a.evaluate()
}

func (a *animator) SetSpeed(speed float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.speed = speed
}

func (a *animator) Speed() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.speed
}

func (a *animator) Time() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.time
}

func (a *animator) Playing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.playing
}

func (a *animator) Clip() *model.AnimationClip {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clip
}

func (a *animator) Targets() []int32 {
	return append([]int32(nil), a.order...)
}

func (a *animator) BonePose(boneIndex int32) (model.Transform, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.pose[boneIndex]
	return t, ok
}
