package rtxfallback

import (
	"github.com/gogpu/rtxfallback/gpucmd"
	"github.com/gogpu/rtxfallback/layout"
)

// buildStreet is every absolute GPU address a single Build call needs,
// computed once up front from a build's scratch and destination base
// addresses plus the layout calculator's offsets. Resolving every
// address before the first dispatch keeps each phase sequencer free of
// offset arithmetic: it only ever reads a named field.
type buildStreet struct {
	level layout.Level
	n     uint32

	partition layout.ScratchMemoryPartition

	// scratch addresses
	sceneAABB        gpucmd.GPUAddress
	sceneAABBScratch gpucmd.GPUAddress
	scratchElements  gpucmd.GPUAddress
	scratchMetadata  gpucmd.GPUAddress
	mortonCodes      gpucmd.GPUAddress
	indexBuffer      gpucmd.GPUAddress
	dispatchArgs     gpucmd.GPUAddress
	perNodeCounter   gpucmd.GPUAddress
	hierarchy        gpucmd.GPUAddress

	// result addresses
	resultHeader        gpucmd.GPUAddress
	resultLeafAABBs     gpucmd.GPUAddress
	resultElements      gpucmd.GPUAddress
	resultMetadata      gpucmd.GPUAddress
	resultSortedIndices gpucmd.GPUAddress
	resultParents       gpucmd.GPUAddress

	allowUpdate bool
}

// resolveBuildStreet computes every address a build of n elements at
// level needs, given the caller's scratch and destination base
// addresses. This is pure address arithmetic; it performs no GPU work
// and is exercised directly by builder_street_test.go.
func resolveBuildStreet(level layout.Level, n uint32, allowUpdate bool, scratchBase, destBase gpucmd.GPUAddress) buildStreet {
	partition := layout.CalculateScratchMemoryUsage(level, n)

	s := buildStreet{
		level:     level,
		n:         n,
		partition: partition,

		sceneAABB:        scratchBase.Add(partition.OffsetToSceneAABB),
		sceneAABBScratch: scratchBase.Add(partition.OffsetToSceneAABBScratchMemory),
		scratchElements:  scratchBase.Add(partition.OffsetToElements),
		mortonCodes:      scratchBase.Add(partition.OffsetToMortonCodes),
		indexBuffer:      scratchBase.Add(partition.OffsetToIndexBuffer),
		dispatchArgs:     scratchBase.Add(partition.OffsetToCalculateAABBDispatchArgs),
		perNodeCounter:   scratchBase.Add(partition.OffsetToPerNodeCounter),
		hierarchy:        scratchBase.Add(partition.OffsetToHierarchy),

		resultHeader:    destBase,
		resultLeafAABBs: destBase.Add(layout.GetOffsetToLeafNodeAABBs(n)),

		allowUpdate: allowUpdate,
	}
	s.scratchMetadata = s.scratchElements.Add(layout.GetOffsetFromLeafNodesToBottomLevelMetadata(level, n))

	if level == layout.Bottom {
		s.resultElements = destBase.Add(layout.GetOffsetToPrimitives(n))
		s.resultMetadata = s.resultElements.Add(layout.GetOffsetFromPrimitivesToPrimitiveMetaData(n))
	} else {
		s.resultElements = destBase.Add(layout.GetOffsetToBVHMetadata(n))
		s.resultMetadata = s.resultElements
	}

	if allowUpdate {
		s.resultSortedIndices = destBase.Add(layout.GetOffsetToBVHSortedIndices(level, n))
		s.resultParents = s.resultSortedIndices.Add(layout.GetOffsetFromSortedIndicesToAABBParents(n))
	}

	return s
}
