package loader

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	parser gltfParser
}

// gltfAnimationExtractor defines the interface for extracting animation clips from a parsed glTF document.
//
// The boneMapping parameter maps glTF node indices to bone indices in the extracted skeleton.
// Channels targeting nodes outside the mapping are dropped.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation by index.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//   - boneMapping: maps glTF node index to skeleton bone index
	//
	// Returns:
	//   - *model.AnimationClip: the extracted animation clip
	//   - error: error if extraction fails
	ExtractAnimation(animIndex int, boneMapping map[int]int32) (*model.AnimationClip, error)

	// ExtractAnimations extracts every animation that targets at least one mapped node.
	//
	// Parameters:
	//   - boneMapping: maps glTF node index to skeleton bone index
	//
	// Returns:
	//   - []*model.AnimationClip: the extracted clips in document order
	//   - error: error if extraction fails
	ExtractAnimations(boneMapping map[int]int32) ([]*model.AnimationClip, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(parser gltfParser) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{parser: parser}
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int, boneMapping map[int]int32) (*model.AnimationClip, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}
	if animIndex < 0 || animIndex >= len(doc.Animations) {
		return nil, fmt.Errorf("animation index %d out of range", animIndex)
	}

	anim := &doc.Animations[animIndex]

	// translation, rotation and scale channels of one bone merge into a single AnimationChannel
	channelMap := make(map[int32]*model.AnimationChannel)
	var maxTime float32

	for i := range anim.Channels {
		ch := &anim.Channels[i]

		if ch.Target.Node == nil || ch.Target.Path == gltfAnimPathWeights {
			continue
		}
		boneIndex, ok := boneMapping[*ch.Target.Node]
		if !ok {
			continue
		}

		if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
			return nil, fmt.Errorf("animation %q channel %d: invalid sampler index %d", anim.Name, i, ch.Sampler)
		}
		sampler := &anim.Samplers[ch.Sampler]

		timestamps, err := e.parser.ReadScalarAccessor(sampler.Input)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: failed to read timestamps: %w", anim.Name, i, err)
		}
		if len(timestamps) == 0 {
			continue
		}
		if t := timestamps[len(timestamps)-1]; t > maxTime {
			maxTime = t
		}

		animCh, exists := channelMap[boneIndex]
		if !exists {
			animCh = &model.AnimationChannel{BoneIndex: boneIndex}
			channelMap[boneIndex] = animCh
		}

		switch ch.Target.Path {
		case gltfAnimPathTranslation, gltfAnimPathScale:
			raw, err := e.parser.ReadVec3Accessor(sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: failed to read %s values: %w", anim.Name, i, ch.Target.Path, err)
			}
			times, values, err := gltfResolveKeys(sampler.Interpolation, timestamps, raw)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: %w", anim.Name, i, err)
			}
			keys := make([]model.VectorKeyframe, len(times))
			for j := range keys {
				keys[j] = model.VectorKeyframe{Time: times[j], Value: mgl32.Vec3(values[j])}
			}
			if ch.Target.Path == gltfAnimPathTranslation {
				animCh.PositionKeys = keys
			} else {
				animCh.ScaleKeys = keys
			}

		case gltfAnimPathRotation:
			raw, err := e.parser.ReadVec4Accessor(sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: failed to read rotation values: %w", anim.Name, i, err)
			}
			times, values, err := gltfResolveKeys(sampler.Interpolation, timestamps, raw)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: %w", anim.Name, i, err)
			}
			keys := make([]model.QuaternionKeyframe, len(times))
			for j := range keys {
				keys[j] = model.QuaternionKeyframe{Time: times[j], Value: gltfQuat(values[j])}
			}
			animCh.RotationKeys = keys
		}
	}

	channels := make([]model.AnimationChannel, 0, len(channelMap))
	for _, ch := range channelMap {
		channels = append(channels, *ch)
	}
	slices.SortFunc(channels, func(a, b model.AnimationChannel) int {
		return cmp.Compare(a.BoneIndex, b.BoneIndex)
	})

	name := anim.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", animIndex)
	}

	return &model.AnimationClip{
		Name:     name,
		Duration: maxTime,
		Channels: channels,
	}, nil
}

func (e *gltfAnimationExtractorImpl) ExtractAnimations(boneMapping map[int]int32) ([]*model.AnimationClip, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}

	var clips []*model.AnimationClip
	for animIdx := range doc.Animations {
		relevant := slices.ContainsFunc(doc.Animations[animIdx].Channels, func(ch gltfAnimChannel) bool {
			if ch.Target.Node == nil {
				return false
			}
			_, ok := boneMapping[*ch.Target.Node]
			return ok
		})
		if !relevant {
			continue
		}

		clip, err := e.ExtractAnimation(animIdx, boneMapping)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", animIdx, err)
		}
		clips = append(clips, clip)
	}

	return clips, nil
}

// gltfResolveKeys flattens a sampler's output into keys that linear sampling reproduces.
// STEP holds each value until the next timestamp by doubling keys at every boundary.
// CUBICSPLINE keeps the spline vertices and drops the tangents.
func gltfResolveKeys[T any](interpolation string, timestamps []float32, raw []T) ([]float32, []T, error) {
	switch interpolation {
	case "", gltfAnimInterpolationLinear:
		n := min(len(timestamps), len(raw))
		return timestamps[:n], raw[:n], nil

	case gltfAnimInterpolationStep:
		n := min(len(timestamps), len(raw))
		times := make([]float32, 0, 2*n)
		values := make([]T, 0, 2*n)
		for j := 0; j < n; j++ {
			if j > 0 {
				times = append(times, timestamps[j])
				values = append(values, raw[j-1])
			}
			times = append(times, timestamps[j])
			values = append(values, raw[j])
		}
		return times, values, nil

	case gltfAnimInterpolationCubicSpline:
		if len(raw) != 3*len(timestamps) {
			return nil, nil, fmt.Errorf("cubic spline output has %d values for %d keys", len(raw), len(timestamps))
		}
		values := make([]T, len(timestamps))
		for j := range values {
			values[j] = raw[3*j+1]
		}
		return timestamps, values, nil

	default:
		return nil, nil, fmt.Errorf("unsupported interpolation %q", interpolation)
	}
}
