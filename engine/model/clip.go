package model

import (
	"github.com/Carmen-Shannon/oxy-rootmotion/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Sample evaluates the channel at time t. Components without keyframes keep the value from rest.
// Translation and scale are linearly interpolated, rotation is slerped; times outside the keyed
// range clamp to the first or last key.
//
// Parameters:
//   - t: the clip-local time in seconds
//   - rest: the transform to use for components this channel does not animate
//
// Returns:
//   - Transform: the sampled local transform
func (ch *AnimationChannel) Sample(t float32, rest Transform) Transform {
	out := rest
	if len(ch.PositionKeys) > 0 {
		out.Translation = sampleVectorKeys(ch.PositionKeys, t)
	}
	if len(ch.RotationKeys) > 0 {
		out.Rotation = sampleQuaternionKeys(ch.RotationKeys, t)
	}
	if len(ch.ScaleKeys) > 0 {
		out.Scale = sampleVectorKeys(ch.ScaleKeys, t)
	}
	return out
}

// Channel returns the channel animating the given bone, or nil if the clip does not animate it.
//
// Parameters:
//   - boneIndex: the skeleton bone index
//
// Returns:
//   - *AnimationChannel: the channel or nil
func (c *AnimationClip) Channel(boneIndex int32) *AnimationChannel {
	for i := range c.Channels {
		if c.Channels[i].BoneIndex == boneIndex {
			return &c.Channels[i]
		}
	}
	return nil
}

func sampleVectorKeys(keys []VectorKeyframe, t float32) mgl32.Vec3 {
	times := make([]float32, len(keys))
	for i, k := range keys {
		times[i] = k.Time
	}
	prev, next, frac := common.KeyframeSpan(times, t)
	return common.LerpVec3(keys[prev].Value, keys[next].Value, frac)
}

func sampleQuaternionKeys(keys []QuaternionKeyframe, t float32) mgl32.Quat {
	times := make([]float32, len(keys))
	for i, k := range keys {
		times[i] = k.Time
	}
	prev, next, frac := common.KeyframeSpan(times, t)
	if prev == next {
		return keys[prev].Value.Normalize()
	}
	return common.SlerpQuat(keys[prev].Value, keys[next].Value, frac)
}
