// Package layout computes the byte-exact scratch and result memory plans
// for a BVH2 build, given only a level tag and an element count. Nothing
// in this package touches a GPU; it is pure arithmetic, kept in its own
// package so it can be unit-tested independently of any pass collaborator.
package layout

import "github.com/gogpu/rtxfallback/bvhtypes"

// Level selects which sizing formulas apply throughout the layout
// calculator: a bottom-level structure stores primitives, a top-level
// structure stores instances of bottom-level structures.
type Level int

const (
	Bottom Level = iota
	Top
)

func (l Level) String() string {
	if l == Top {
		return "Top"
	}
	return "Bottom"
}

// ScratchMemoryPartition is the fixed sequence of byte offsets into the
// scratch buffer that a build uses to stage intermediate results. Several
// of these offsets alias the same bytes; see the comments on
// ScratchMemoryPartition for which ones and why that is safe.
type ScratchMemoryPartition struct {
	// OffsetToSceneAABB is where the reduced scene bounding box is
	// written by CalculateSceneAABB and read by CalculateMortonCodes.
	OffsetToSceneAABB uint64

	// OffsetToElements is where LoadInstances/LoadPrimitives write leaf
	// records when the build is a full rebuild (not an update).
	OffsetToElements uint64

	// OffsetToMortonCodes is where CalculateMortonCodes writes sort
	// keys. It aliases OffsetToSceneAABBScratchMemory: the scene-AABB
	// reduction's scratch buffer and the treelet-reorder AABB buffer are
	// both used strictly before or after the Morton/index buffers are
	// live, never concurrently with them.
	OffsetToMortonCodes uint64

	// OffsetToIndexBuffer immediately follows the Morton code array.
	OffsetToIndexBuffer uint64

	// OffsetToSceneAABBScratchMemory aliases OffsetToMortonCodes.
	OffsetToSceneAABBScratchMemory uint64

	// OffsetToCalculateAABBDispatchArgs aliases the very start of
	// scratch (offset 0): by the time ConstructAABB runs, every earlier
	// scratch consumer (elements, Morton codes, hierarchy build) has
	// already finished reading and writing its region.
	OffsetToCalculateAABBDispatchArgs uint64

	// OffsetToPerNodeCounter follows OffsetToCalculateAABBDispatchArgs
	// in the same overlay.
	OffsetToPerNodeCounter uint64

	// OffsetToHierarchy is where ConstructHierarchy writes hierarchy
	// links, read back by TreeletReorder and ConstructAABB.
	OffsetToHierarchy uint64

	// TotalSize is the minimum scratch buffer size this partition
	// requires.
	TotalSize uint64
}

func align4(n uint64) uint64 {
	return bvhtypes.Align4(n)
}

func maxU64(vals ...uint64) uint64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// perElementSize returns the scratch bytes needed per leaf element before
// alignment: a bottom-level build stores a Primitive plus its metadata; a
// top-level build stores an AABBNode plus its BVHMetadata.
func perElementSize(level Level) uint64 {
	if level == Bottom {
		return bvhtypes.SizeofPrimitive + bvhtypes.SizeofPrimitiveMetaData
	}
	return bvhtypes.SizeofAABBNode + bvhtypes.SizeofBVHMetadata
}

// sceneAABBScratchSize is the scratch space CalculateSceneAABB needs to
// perform its parallel reduction over n elements. This mirrors a
// single-pass block-reduction scratch buffer: one partial AABB per
// dispatched workgroup, rounded up generously to the element count.
func sceneAABBScratchSize(n uint32) uint64 {
	return align4(bvhtypes.SizeofAABB * uint64(n))
}

// treeletAABBSize is the scratch space TreeletReorder needs to hold a
// per-node AABB scan while proposing subtree swaps.
func treeletAABBSize(n uint32) uint64 {
	return align4(bvhtypes.SizeofAABB * uint64(bvhtypes.TotalNumNodes(n)))
}

// CalculateScratchMemoryUsage computes the scratch layout for a build of
// n leaf elements at the given level. All arithmetic is performed in
// uint64 so that large element counts cannot silently overflow.
func CalculateScratchMemoryUsage(level Level, n uint32) ScratchMemoryPartition {
	var p ScratchMemoryPartition
	var totalSize uint64

	numInternalNodes := uint64(bvhtypes.NumInternalNodes(n))
	totalNumNodes := uint64(n) + numInternalNodes

	p.OffsetToSceneAABB = totalSize
	totalSize += align4(bvhtypes.SizeofAABB)

	p.OffsetToElements = totalSize
	totalSize += align4(perElementSize(level) * uint64(n))

	mortonCodeBufferSize := align4(bvhtypes.SizeofUint32 * uint64(n))
	p.OffsetToMortonCodes = totalSize

	indexBufferSize := align4(bvhtypes.SizeofUint32 * uint64(n))
	p.OffsetToIndexBuffer = p.OffsetToMortonCodes + indexBufferSize

	p.OffsetToSceneAABBScratchMemory = p.OffsetToMortonCodes
	sizeNeededToCalculateAABB := sceneAABBScratchSize(n)
	sizeNeededForTreeletAABBs := treeletAABBSize(n)
	sizeNeededByMortonAndIndex := mortonCodeBufferSize + indexBufferSize
	extraBufferSize := maxU64(sizeNeededToCalculateAABB, sizeNeededForTreeletAABBs, sizeNeededByMortonAndIndex)
	totalSize += extraBufferSize

	sizeNeededForAABBCalculation := uint64(0)
	p.OffsetToCalculateAABBDispatchArgs = sizeNeededForAABBCalculation
	sizeNeededForAABBCalculation += align4(bvhtypes.SizeofUint32 * uint64(n))

	p.OffsetToPerNodeCounter = sizeNeededForAABBCalculation
	sizeNeededForAABBCalculation += align4(bvhtypes.SizeofUint32 * numInternalNodes)

	totalSize = maxU64(sizeNeededForAABBCalculation, totalSize)

	hierarchySize := align4(bvhtypes.SizeofHierarchyNode * totalNumNodes)
	p.OffsetToHierarchy = totalSize
	totalSize += hierarchySize

	p.TotalSize = totalSize
	return p
}

// ScratchDataSizeInBytes returns the minimum scratch buffer size a build
// of n elements at the given level requires.
func ScratchDataSizeInBytes(level Level, n uint32) uint64 {
	return CalculateScratchMemoryUsage(level, n).TotalSize
}

// ResultDataMaxSizeInBytes returns the maximum result buffer size a build
// of n elements at the given level requires. allowUpdate reflects whether
// AllowUpdate was requested at prebuild: when true, the persisted
// sorted-index and parent-index arrays are included.
func ResultDataMaxSizeInBytes(level Level, n uint32, allowUpdate bool) uint64 {
	totalNumNodes := uint64(bvhtypes.TotalNumNodes(n))

	size := uint64(bvhtypes.SizeofBVHOffsets)
	size += totalNumNodes * bvhtypes.SizeofAABBNode

	if level == Bottom {
		size += uint64(n) * (bvhtypes.SizeofPrimitive + bvhtypes.SizeofPrimitiveMetaData)
	} else {
		size += uint64(n) * bvhtypes.SizeofBVHMetadata
	}

	if allowUpdate {
		size += uint64(n) * bvhtypes.SizeofUint32     // saved sorted index buffer
		size += totalNumNodes * bvhtypes.SizeofUint32 // parent indices
	}

	return size
}

// GetOffsetToLeafNodeAABBs returns the offset, from the start of the
// result buffer, of the 2N-1 AABBNode array. This is the same for both
// levels: it always immediately follows the BVHOffsets header.
func GetOffsetToLeafNodeAABBs(n uint32) uint64 {
	return uint64(bvhtypes.SizeofBVHOffsets)
}

// leafNodeAABBArraySize returns the byte size of the 2N-1 AABBNode array.
func leafNodeAABBArraySize(n uint32) uint64 {
	return uint64(bvhtypes.TotalNumNodes(n)) * bvhtypes.SizeofAABBNode
}

// GetOffsetToPrimitives returns the offset of the N x Primitive array in
// a bottom-level result buffer.
func GetOffsetToPrimitives(n uint32) uint64 {
	return GetOffsetToLeafNodeAABBs(n) + leafNodeAABBArraySize(n)
}

// GetOffsetFromPrimitivesToPrimitiveMetaData returns the distance, in
// bytes, from the start of the primitive array to the start of the
// primitive metadata array that immediately follows it.
func GetOffsetFromPrimitivesToPrimitiveMetaData(n uint32) uint64 {
	return uint64(n) * bvhtypes.SizeofPrimitive
}

// GetOffsetFromPrimitiveMetaDataToSortedIndices returns the distance from
// the start of the primitive metadata array to the sorted-index array
// that follows it when AllowUpdate was requested.
func GetOffsetFromPrimitiveMetaDataToSortedIndices(n uint32) uint64 {
	return uint64(n) * bvhtypes.SizeofPrimitiveMetaData
}

// GetOffsetToBVHMetadata returns the offset of the N x BVHMetadata array
// in a top-level result buffer.
func GetOffsetToBVHMetadata(n uint32) uint64 {
	return GetOffsetToLeafNodeAABBs(n) + leafNodeAABBArraySize(n)
}

// GetOffsetFromLeafNodesToBottomLevelMetadata is the top-level analogue
// of GetOffsetFromPrimitivesToPrimitiveMetaData: the distance from the
// start of the leaf/element array to its associated metadata array. For
// bottom-level builds "elements" are primitives and "metadata" is
// PrimitiveMetaData; for top-level builds "elements" are AABBNodes and
// "metadata" is BVHMetadata. This accessor exists because the scratch
// element buffer, unlike the result buffer, stores elements and metadata
// contiguously with the same stride formula on both levels.
func GetOffsetFromLeafNodesToBottomLevelMetadata(level Level, n uint32) uint64 {
	if level == Bottom {
		return uint64(n) * bvhtypes.SizeofPrimitive
	}
	return uint64(n) * bvhtypes.SizeofAABBNode
}

// GetOffsetToBVHSortedIndices returns the offset, from the start of the
// result buffer, of the saved sorted-index array. Valid only when
// AllowUpdate was requested; callers must not read this region otherwise.
func GetOffsetToBVHSortedIndices(level Level, n uint32) uint64 {
	if level == Bottom {
		return GetOffsetToPrimitives(n) +
			GetOffsetFromPrimitivesToPrimitiveMetaData(n) +
			GetOffsetFromPrimitiveMetaDataToSortedIndices(n)
	}
	return GetOffsetToBVHMetadata(n) + uint64(n)*bvhtypes.SizeofBVHMetadata
}

// GetOffsetFromSortedIndicesToAABBParents returns the distance from the
// start of the sorted-index array to the parent-index array that follows
// it.
func GetOffsetFromSortedIndicesToAABBParents(n uint32) uint64 {
	return uint64(n) * bvhtypes.SizeofUint32
}
