package passes

import (
	"github.com/gogpu/rtxfallback/gpucmd"
)

// DescsLayout mirrors the caller's choice of how geometry/instance
// tables are addressed: as an array of pointers to individual
// descriptors, or as one contiguous array of descriptors.
type DescsLayout int

const (
	ArrayOfPointers DescsLayout = iota
	Array
)

// SceneType selects between the two element kinds a build can load,
// which in turn drives whether TreeletReorder runs (§4.4).
type SceneType int

const (
	Triangles SceneType = iota
	BottomLevelBVHs
)

// LoadInstancesPass loads a top-level build's instance descriptors into
// the element buffer as AABBNode+BVHMetadata pairs, and — if an index
// buffer address is supplied — seeds it with the identity permutation.
//
// Contract: consumes instance descs and the descriptor heap; produces
// the element buffer, the BVHMetadata buffer, and optionally the
// identity index buffer. Its writes must be fenced before
// CalculateMortonCodes reads them.
type LoadInstancesPass interface {
	LoadInstances(
		pass *gpucmd.ComputePass,
		elementBuffer gpucmd.GPUAddress,
		metadataBuffer gpucmd.GPUAddress,
		instanceDescs gpucmd.GPUAddress,
		layout DescsLayout,
		numElements uint32,
		descriptorHeap gpucmd.DescriptorHeapRef,
		indexBuffer gpucmd.GPUAddress,
	) error
}

// LoadPrimitivesPass loads a bottom-level build's geometry descriptors
// (one VB/IB pair at a time) into the primitive and primitive-metadata
// buffers, seeding the index buffer with the identity permutation.
//
// Contract: consumes geometry descs; produces the primitive buffer,
// primitive metadata buffer, and index buffer. Fenced before Morton.
type LoadPrimitivesPass interface {
	LoadPrimitives(
		pass *gpucmd.ComputePass,
		geometry []GeometryDesc,
		numElements uint32,
		elementBuffer gpucmd.GPUAddress,
		metadataBuffer gpucmd.GPUAddress,
		indexBuffer gpucmd.GPUAddress,
	) error
}

// GeometryDesc is a single triangle-mesh geometry entry within a
// bottom-level build descriptor.
type GeometryDesc struct {
	VertexBuffer gpucmd.GPUAddress
	VertexCount  uint32
	VertexStride uint32
	IndexBuffer  gpucmd.GPUAddress
	IndexCount   uint32
	IndexIs32Bit bool
}

// TriangleCount returns the number of triangles this geometry
// contributes: indexed geometry contributes IndexCount/3, non-indexed
// geometry contributes VertexCount/3.
func (g GeometryDesc) TriangleCount() uint32 {
	if g.IndexCount > 0 {
		return g.IndexCount / 3
	}
	return g.VertexCount / 3
}

// SceneAABBPass reduces every loaded element down to a single scene
// bounding box.
//
// Contract: consumes the element buffer and its own scratch region;
// produces the scene AABB. Fenced before Morton.
type SceneAABBPass interface {
	CalculateSceneAABB(
		pass *gpucmd.ComputePass,
		sceneType SceneType,
		elementBuffer gpucmd.GPUAddress,
		numElements uint32,
		scratch gpucmd.GPUAddress,
		sceneAABB gpucmd.GPUAddress,
	) error

	// ScratchBufferSizeNeeded returns the scratch bytes this pass needs
	// to reduce numElements elements. The layout calculator does not
	// call it; it sizes the aliased scratch region with its own formula.
	ScratchBufferSizeNeeded(numElements uint32) uint64
}

// MortonCodePass computes a 30-bit Morton code per element from its
// centroid position relative to the scene AABB.
//
// Contract: consumes elements, the scene AABB, and the identity index
// buffer; produces the Morton code array. Fenced before Sort.
type MortonCodePass interface {
	CalculateMortonCodes(
		pass *gpucmd.ComputePass,
		sceneType SceneType,
		elementBuffer gpucmd.GPUAddress,
		numElements uint32,
		sceneAABB gpucmd.GPUAddress,
		indexBuffer gpucmd.GPUAddress,
		mortonCodes gpucmd.GPUAddress,
	) error
}

// SortPass sorts the (mortonCode, index) pairs by key. Whether the sort
// is stable is unspecified; the orchestrator only depends on the key
// relation the sort establishes, not on tie-break order.
//
// Contract: consumes mortonCodes and indexBuffer in place; produces the
// same buffers, key-sorted. Fenced before Rearrange.
type SortPass interface {
	Sort(
		pass *gpucmd.ComputePass,
		mortonCodes gpucmd.GPUAddress,
		indexBuffer gpucmd.GPUAddress,
		numElements uint32,
		ascending bool,
		sortPayload bool,
	) error
}

// RearrangePass permutes elements from scratch order into sorted output
// order using the sorted index buffer, optionally saving a copy of the
// permutation for a later update build.
//
// Contract: consumes scratch elements+metadata and the sorted index
// permutation; produces output elements+metadata and, when
// savedSortedIndices is non-zero, a persisted copy of the permutation.
// Fenced before ConstructHierarchy.
type RearrangePass interface {
	Rearrange(
		pass *gpucmd.ComputePass,
		sceneType SceneType,
		numElements uint32,
		scratchElements gpucmd.GPUAddress,
		scratchMetadata gpucmd.GPUAddress,
		indexBuffer gpucmd.GPUAddress,
		outputElements gpucmd.GPUAddress,
		outputMetadata gpucmd.GPUAddress,
		savedSortedIndices gpucmd.GPUAddress,
	) error
}

// ConstructHierarchyPass builds the linear-BVH hierarchy links from
// sorted Morton codes, and optionally records each node's parent index
// for later refit and update use.
//
// Contract: consumes sorted mortonCodes; produces the hierarchy buffer
// and, when savedParents is non-zero, the parent-index array. Fenced
// before TreeletReorder / ConstructAABB.
type ConstructHierarchyPass interface {
	ConstructHierarchy(
		pass *gpucmd.ComputePass,
		sceneType SceneType,
		mortonCodes gpucmd.GPUAddress,
		hierarchy gpucmd.GPUAddress,
		savedParents gpucmd.GPUAddress,
		descriptorHeap gpucmd.DescriptorHeapRef,
		numElements uint32,
	) error
}

// TreeletReorderPass performs a post-hoc local re-optimization of small
// subtrees to reduce SAH cost, run only for triangle scenes.
//
// Contract: consumes the hierarchy, parent indices, node counter, and
// reused scene-AABB scratch; produces a reshuffled hierarchy with
// updated parent indices, and may reorder outputElements in place.
// Fenced before ConstructAABB.
type TreeletReorderPass interface {
	Optimize(
		pass *gpucmd.ComputePass,
		numElements uint32,
		hierarchy gpucmd.GPUAddress,
		parents gpucmd.GPUAddress,
		nodeCounter gpucmd.GPUAddress,
		aabbScratch gpucmd.GPUAddress,
		outputElements gpucmd.GPUAddress,
		descriptorHeap gpucmd.DescriptorHeapRef,
		flags uint32,
	) error

	// RequiredSizeForAABBBuffer returns the scratch bytes this pass
	// needs to scan per-leaf AABBs while proposing subtree swaps. The
	// layout calculator does not call it; it sizes the aliased scratch
	// region with its own formula.
	RequiredSizeForAABBBuffer(numElements uint32) uint64
}

// ConstructAABBPass fits an AABB around every node in the hierarchy,
// bottom-up, using the stored parent pointers. This is the terminal pass
// of a build: its output is the AABBNode array a traversal shader reads.
//
// Contract: consumes the destination address, a dispatch-args scratch
// region, the per-node counter, hierarchy, and parent indices; produces
// the AABBNode array in the destination.
type ConstructAABBPass interface {
	ConstructAABB(
		pass *gpucmd.ComputePass,
		sceneType SceneType,
		destAddress gpucmd.GPUAddress,
		dispatchArgsScratch gpucmd.GPUAddress,
		nodeCounter gpucmd.GPUAddress,
		hierarchy gpucmd.GPUAddress,
		parents gpucmd.GPUAddress,
		descriptorHeap gpucmd.DescriptorHeapRef,
		numElements uint32,
	) error
}

// CopyMode selects the semantics of a CopyRaytracingAccelerationStructure
// call.
type CopyMode int

const (
	Clone CopyMode = iota
	Compact
)

// CopyPass clones or compacts a built acceleration structure.
type CopyPass interface {
	CopyRaytracingAccelerationStructure(
		pass *gpucmd.ComputePass,
		dest gpucmd.BufferRange,
		src gpucmd.GPUAddress,
		mode CopyMode,
	) error
}

// PostBuildInfoPass reads the compacted size of one or more previously
// built acceleration structures and writes them to a destination buffer.
type PostBuildInfoPass interface {
	GetCompactedBVHSizes(
		pass *gpucmd.ComputePass,
		dest gpucmd.BufferRange,
		sources []gpucmd.GPUAddress,
	) error
}
