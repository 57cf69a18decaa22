package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	parser gltfParser
}

// gltfSkeletonExtractor defines the interface for extracting bone hierarchies from a parsed glTF document.
// Bones are returned with parents ordered before children, together with a mapping from glTF
// node index to bone index that animation channels are resolved through.
type gltfSkeletonExtractor interface {
	// ExtractSkin extracts the skeleton formed by a skin's joints.
	//
	// Parameters:
	//   - skinIndex: the index of the skin to extract
	//
	// Returns:
	//   - *model.Skeleton: the skeleton with topologically sorted bones
	//   - map[int]int32: glTF node index to bone index
	//   - error: error if extraction fails
	ExtractSkin(skinIndex int) (*model.Skeleton, map[int]int32, error)

	// ExtractSceneTree extracts every node reachable from the default scene as a bone.
	// Documents without scenes use every parentless node as a root.
	//
	// Returns:
	//   - *model.Skeleton: the skeleton in depth-first order
	//   - map[int]int32: glTF node index to bone index
	//   - error: error if extraction fails
	ExtractSceneTree() (*model.Skeleton, map[int]int32, error)

	// PrimarySkin picks the skin to import: the skin of the first skinned node, or 0.
	// Returns -1 if the document has no skins.
	PrimarySkin() int
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

// newGLTFSkeletonExtractor creates a new skeleton extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfSkeletonExtractor: the skeleton extractor
func newGLTFSkeletonExtractor(parser gltfParser) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{parser: parser}
}

func (e *gltfSkeletonExtractorImpl) PrimarySkin() int {
	doc := e.parser.Document()
	if doc == nil || len(doc.Skins) == 0 {
		return -1
	}
	for _, node := range doc.Nodes {
		if node.Skin != nil && *node.Skin >= 0 && *node.Skin < len(doc.Skins) {
			return *node.Skin
		}
	}
	return 0
}

func (e *gltfSkeletonExtractorImpl) ExtractSkin(skinIndex int) (*model.Skeleton, map[int]int32, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, nil, errNoDocument
	}
	if skinIndex < 0 || skinIndex >= len(doc.Skins) {
		return nil, nil, fmt.Errorf("skin index %d out of range", skinIndex)
	}

	skin := &doc.Skins[skinIndex]
	bones := make([]model.Bone, len(skin.Joints))

	jointToBone := make(map[int]int32, len(skin.Joints))
	for i, jointIndex := range skin.Joints {
		if jointIndex < 0 || jointIndex >= len(doc.Nodes) {
			return nil, nil, fmt.Errorf("joint %d: invalid node index %d", i, jointIndex)
		}
		node := &doc.Nodes[jointIndex]
		bones[i] = model.Bone{
			Name:           node.Name,
			ParentIndex:    -1,
			LocalTransform: gltfExtractNodeTransform(node),
		}
		jointToBone[jointIndex] = int32(i)
	}

	// a joint's parent is the closest joint among the nodes listing it as a child
	parentNode := gltfParentIndex(doc)
	var rootBoneIndices []int32
	for boneIdx, jointNodeIdx := range skin.Joints {
		if parent, ok := parentNode[jointNodeIdx]; ok {
			if parentBoneIdx, isJoint := jointToBone[parent]; isJoint {
				bones[boneIdx].ParentIndex = parentBoneIdx
				continue
			}
		}
		rootBoneIndices = append(rootBoneIndices, int32(boneIdx))
	}

	sortedBones, sortedRootIndices, oldToNew := gltfTopologicalSortBones(bones, rootBoneIndices)

	nodeToBone := make(map[int]int32, len(skin.Joints))
	for oldIdx, nodeIdx := range skin.Joints {
		nodeToBone[nodeIdx] = oldToNew[int32(oldIdx)]
	}

	return newSkeleton(sortedBones, sortedRootIndices), nodeToBone, nil
}

func (e *gltfSkeletonExtractorImpl) ExtractSceneTree() (*model.Skeleton, map[int]int32, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, nil, errNoDocument
	}

	var roots []int
	switch {
	case len(doc.Scenes) > 0:
		scene := 0
		if doc.Scene != nil {
			scene = *doc.Scene
		}
		if scene < 0 || scene >= len(doc.Scenes) {
			return nil, nil, fmt.Errorf("scene index %d out of range", scene)
		}
		roots = doc.Scenes[scene].Nodes
	default:
		parents := gltfParentIndex(doc)
		for i := range doc.Nodes {
			if _, hasParent := parents[i]; !hasParent {
				roots = append(roots, i)
			}
		}
	}

	var bones []model.Bone
	var rootBoneIndices []int32
	nodeToBone := make(map[int]int32)

	var visit func(nodeIdx int, parent int32) error
	visit = func(nodeIdx int, parent int32) error {
		if nodeIdx < 0 || nodeIdx >= len(doc.Nodes) {
			return fmt.Errorf("invalid node index %d", nodeIdx)
		}
		if _, seen := nodeToBone[nodeIdx]; seen {
			return fmt.Errorf("node %d is reachable twice", nodeIdx)
		}
		node := &doc.Nodes[nodeIdx]
		idx := int32(len(bones))
		bones = append(bones, model.Bone{
			Name:           node.Name,
			ParentIndex:    parent,
			LocalTransform: gltfExtractNodeTransform(node),
		})
		nodeToBone[nodeIdx] = idx
		if parent < 0 {
			rootBoneIndices = append(rootBoneIndices, idx)
		}
		for _, child := range node.Children {
			if err := visit(child, idx); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range roots {
		if err := visit(root, -1); err != nil {
			return nil, nil, err
		}
	}

	return newSkeleton(bones, rootBoneIndices), nodeToBone, nil
}

// --- Helper Functions ---

// newSkeleton builds the name index for named bones. The first bone wins on duplicate names.
func newSkeleton(bones []model.Bone, roots []int32) *model.Skeleton {
	nameToIndex := make(map[string]int32, len(bones))
	for i, b := range bones {
		if b.Name == "" {
			continue
		}
		if _, dup := nameToIndex[b.Name]; !dup {
			nameToIndex[b.Name] = int32(i)
		}
	}
	return &model.Skeleton{
		Bones:           bones,
		RootBoneIndices: roots,
		BoneNameToIndex: nameToIndex,
	}
}

// gltfParentIndex maps each node index to the node that lists it as a child.
func gltfParentIndex(doc *gltfDocument) map[int]int {
	parents := make(map[int]int, len(doc.Nodes))
	for nodeIdx, node := range doc.Nodes {
		for _, child := range node.Children {
			if _, ok := parents[child]; !ok {
				parents[child] = nodeIdx
			}
		}
	}
	return parents
}

// gltfExtractNodeTransform extracts the TRS transform of a glTF node.
func gltfExtractNodeTransform(node *gltfNode) model.Transform {
	if node.Matrix != nil {
		return model.TransformFromMatrix(mgl32.Mat4(*node.Matrix))
	}

	transform := model.IdentityTransform()
	if node.Translation != nil {
		transform.Translation = mgl32.Vec3(*node.Translation)
	}
	if node.Rotation != nil {
		transform.Rotation = gltfQuat(*node.Rotation)
	}
	if node.Scale != nil {
		transform.Scale = mgl32.Vec3(*node.Scale)
	}
	return transform
}

// gltfQuat converts a glTF x, y, z, w quaternion.
func gltfQuat(r [4]float32) mgl32.Quat {
	return mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}.Normalize()
}

// gltfTopologicalSortBones sorts bones breadth-first from the roots so that parents
// always come before children.
//
// Parameters:
//   - bones: original bone array
//   - rootIndices: indices of root bones (no parent)
//
// Returns:
//   - []model.Bone: sorted bone array with updated parent indices
//   - []int32: new root indices
//   - map[int32]int32: old bone index to new bone index mapping
func gltfTopologicalSortBones(bones []model.Bone, rootIndices []int32) ([]model.Bone, []int32, map[int32]int32) {
	if len(bones) == 0 {
		return bones, rootIndices, make(map[int32]int32)
	}

	children := make(map[int32][]int32)
	for i, bone := range bones {
		if bone.ParentIndex >= 0 {
			children[bone.ParentIndex] = append(children[bone.ParentIndex], int32(i))
		}
	}

	sorted := make([]int32, 0, len(bones))
	queue := append(make([]int32, 0, len(rootIndices)), rootIndices...)
	for len(queue) > 0 {
		oldIdx := queue[0]
		queue = queue[1:]
		sorted = append(sorted, oldIdx)
		queue = append(queue, children[oldIdx]...)
	}

	// joints caught in a parent cycle are unreachable from any root; they become roots
	if len(sorted) < len(bones) {
		visited := make(map[int32]bool, len(sorted))
		for _, idx := range sorted {
			visited[idx] = true
		}
		for i := range bones {
			if !visited[int32(i)] {
				bones[i].ParentIndex = -1
				sorted = append(sorted, int32(i))
			}
		}
	}

	oldToNew := make(map[int32]int32, len(sorted))
	for newIdx, oldIdx := range sorted {
		oldToNew[oldIdx] = int32(newIdx)
	}

	newBones := make([]model.Bone, len(bones))
	var newRootIndices []int32
	for newIdx, oldIdx := range sorted {
		bone := bones[oldIdx]
		if bone.ParentIndex >= 0 {
			bone.ParentIndex = oldToNew[bone.ParentIndex]
		} else {
			newRootIndices = append(newRootIndices, int32(newIdx))
		}
		newBones[newIdx] = bone
	}

	return newBones, newRootIndices, oldToNew
}
