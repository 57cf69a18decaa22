package rootmotion

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/asset"
)

var (
	// ErrMissingGraph is reported when an owner's animation graph handle does not resolve.
	ErrMissingGraph = errors.New("animation graph not found")

	// ErrMissingClip is reported when a root motion node has no clip or its clip handle does not resolve.
	ErrMissingClip = errors.New("animation clip not found")

	// ErrMissingRootMotionData is reported when a node expected to carry root motion does not.
	ErrMissingRootMotionData = errors.New("root motion data not found")

	// ErrZeroMassNodes is reported when no mass-bearing node exists below the root.
	ErrZeroMassNodes = errors.New("no mass-bearing nodes below root")

	// ErrUnimplementedBakeType is reported for a bake type the driver cannot evaluate.
	ErrUnimplementedBakeType = errors.New("unimplemented root motion bake type")

	// ErrMissingTransform is reported when a node's transform chain to the root is broken.
	ErrMissingTransform = errors.New("missing transform")

	// ErrInvalidOwner is reported when an owner lacks a hierarchy or a pose evaluator.
	ErrInvalidOwner = errors.New("invalid root motion owner")

	// ErrCurveLengthMismatch is returned when a baked curve's timestamp and position counts differ.
	// It aborts the whole pass.
	ErrCurveLengthMismatch = errors.New("root motion curve length mismatch")

	// ErrAssetResolution matches every *AssetResolutionError.
	ErrAssetResolution = errors.New("asset resolution failed")
)

// AssetResolutionError reports a serialized curve reference that resolved neither by path nor by id.
type AssetResolutionError struct {
	// Path is the stable path that was tried, if any.
	Path string

	// ID is the raw id that was tried, if any.
	ID *asset.ID
}

func (e *AssetResolutionError) Error() string {
	switch {
	case e.Path != "" && e.ID != nil:
		return fmt.Sprintf("asset resolution failed: path %q and id %d", e.Path, *e.ID)
	case e.Path != "":
		return fmt.Sprintf("asset resolution failed: path %q", e.Path)
	case e.ID != nil:
		return fmt.Sprintf("asset resolution failed: id %d", *e.ID)
	default:
		return "asset resolution failed: empty reference"
	}
}

// Is reports whether target is ErrAssetResolution.
func (e *AssetResolutionError) Is(target error) bool {
	return target == ErrAssetResolution
}
