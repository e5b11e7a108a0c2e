package rtxfallback

import (
	"testing"

	"github.com/gogpu/rtxfallback/gpucmd"
	"github.com/gogpu/rtxfallback/layout"
)

func TestResolveBuildStreet_ScratchOffsetsMatchLayout(t *testing.T) {
	const scratchBase = gpucmd.GPUAddress(0x1000)
	const destBase = gpucmd.GPUAddress(0x9000)

	partition := layout.CalculateScratchMemoryUsage(layout.Bottom, 4)
	s := resolveBuildStreet(layout.Bottom, 4, false, scratchBase, destBase)

	if s.sceneAABB != scratchBase.Add(partition.OffsetToSceneAABB) {
		t.Errorf("sceneAABB = %v, want %v", s.sceneAABB, scratchBase.Add(partition.OffsetToSceneAABB))
	}
	if s.mortonCodes != scratchBase.Add(partition.OffsetToMortonCodes) {
		t.Errorf("mortonCodes = %v, want %v", s.mortonCodes, scratchBase.Add(partition.OffsetToMortonCodes))
	}
	if s.hierarchy != scratchBase.Add(partition.OffsetToHierarchy) {
		t.Errorf("hierarchy = %v, want %v", s.hierarchy, scratchBase.Add(partition.OffsetToHierarchy))
	}
}

func TestResolveBuildStreet_ResultOffsetsBottomLevel(t *testing.T) {
	const destBase = gpucmd.GPUAddress(0x9000)
	s := resolveBuildStreet(layout.Bottom, 3, false, 0, destBase)

	wantElements := destBase.Add(layout.GetOffsetToPrimitives(3))
	if s.resultElements != wantElements {
		t.Errorf("resultElements = %v, want %v", s.resultElements, wantElements)
	}
	wantMetadata := wantElements.Add(layout.GetOffsetFromPrimitivesToPrimitiveMetaData(3))
	if s.resultMetadata != wantMetadata {
		t.Errorf("resultMetadata = %v, want %v", s.resultMetadata, wantMetadata)
	}
}

func TestResolveBuildStreet_ResultOffsetsTopLevel(t *testing.T) {
	const destBase = gpucmd.GPUAddress(0x9000)
	s := resolveBuildStreet(layout.Top, 2, false, 0, destBase)

	wantMetadata := destBase.Add(layout.GetOffsetToBVHMetadata(2))
	if s.resultMetadata != wantMetadata {
		t.Errorf("resultMetadata = %v, want %v", s.resultMetadata, wantMetadata)
	}
	if s.resultElements != s.resultMetadata {
		t.Errorf("resultElements should equal resultMetadata for a top-level build (both are the AABBNode+BVHMetadata leaf array)")
	}
}

func TestResolveBuildStreet_UpdateArraysOnlyWhenAllowed(t *testing.T) {
	const destBase = gpucmd.GPUAddress(0x9000)

	without := resolveBuildStreet(layout.Bottom, 2, false, 0, destBase)
	if without.resultSortedIndices != 0 || without.resultParents != 0 {
		t.Errorf("update arrays should be zero when allowUpdate is false, got sortedIndices=%v parents=%v",
			without.resultSortedIndices, without.resultParents)
	}

	with := resolveBuildStreet(layout.Bottom, 2, true, 0, destBase)
	if with.resultSortedIndices == 0 {
		t.Error("resultSortedIndices should be set when allowUpdate is true")
	}
	wantParents := with.resultSortedIndices.Add(layout.GetOffsetFromSortedIndicesToAABBParents(2))
	if with.resultParents != wantParents {
		t.Errorf("resultParents = %v, want %v", with.resultParents, wantParents)
	}
}
