package rtxfallback

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/rtxfallback/gpucmd"
	"github.com/gogpu/rtxfallback/passes"
)

// fakePasses records every call made to it instead of touching a GPU,
// matching the corpus's convention of hand-written recording fakes
// rather than a mocking framework.
type fakePasses struct {
	calls []string
}

func (f *fakePasses) record(name string) { f.calls = append(f.calls, name) }

func (f *fakePasses) LoadInstances(pass *gpucmd.ComputePass, elementBuffer, metadataBuffer, instanceDescs gpucmd.GPUAddress, layout passes.DescsLayout, numElements uint32, heap gpucmd.DescriptorHeapRef, indexBuffer gpucmd.GPUAddress) error {
	f.record("LoadInstances")
	return nil
}

func (f *fakePasses) LoadPrimitives(pass *gpucmd.ComputePass, geometry []passes.GeometryDesc, numElements uint32, elementBuffer, metadataBuffer, indexBuffer gpucmd.GPUAddress) error {
	f.record("LoadPrimitives")
	return nil
}

func (f *fakePasses) CalculateSceneAABB(pass *gpucmd.ComputePass, sceneType passes.SceneType, elementBuffer gpucmd.GPUAddress, numElements uint32, scratch, sceneAABB gpucmd.GPUAddress) error {
	f.record("CalculateSceneAABB")
	return nil
}

func (f *fakePasses) ScratchBufferSizeNeeded(numElements uint32) uint64 { return 0 }

func (f *fakePasses) CalculateMortonCodes(pass *gpucmd.ComputePass, sceneType passes.SceneType, elementBuffer gpucmd.GPUAddress, numElements uint32, sceneAABB, indexBuffer, mortonCodes gpucmd.GPUAddress) error {
	f.record("CalculateMortonCodes")
	return nil
}

func (f *fakePasses) Sort(pass *gpucmd.ComputePass, mortonCodes, indexBuffer gpucmd.GPUAddress, numElements uint32, ascending, sortPayload bool) error {
	f.record("Sort")
	return nil
}

func (f *fakePasses) Rearrange(pass *gpucmd.ComputePass, sceneType passes.SceneType, numElements uint32, scratchElements, scratchMetadata, indexBuffer, outputElements, outputMetadata, savedSortedIndices gpucmd.GPUAddress) error {
	f.record("Rearrange")
	return nil
}

func (f *fakePasses) ConstructHierarchy(pass *gpucmd.ComputePass, sceneType passes.SceneType, mortonCodes, hierarchy, savedParents gpucmd.GPUAddress, heap gpucmd.DescriptorHeapRef, numElements uint32) error {
	f.record("ConstructHierarchy")
	return nil
}

func (f *fakePasses) Optimize(pass *gpucmd.ComputePass, numElements uint32, hierarchy, parents, nodeCounter, aabbScratch, outputElements gpucmd.GPUAddress, heap gpucmd.DescriptorHeapRef, flags uint32) error {
	f.record("Optimize")
	return nil
}

func (f *fakePasses) RequiredSizeForAABBBuffer(numElements uint32) uint64 { return 0 }

func (f *fakePasses) ConstructAABB(pass *gpucmd.ComputePass, sceneType passes.SceneType, destAddress, dispatchArgsScratch, nodeCounter, hierarchy, parents gpucmd.GPUAddress, heap gpucmd.DescriptorHeapRef, numElements uint32) error {
	f.record("ConstructAABB")
	return nil
}

func (f *fakePasses) CopyRaytracingAccelerationStructure(pass *gpucmd.ComputePass, dest gpucmd.BufferRange, src gpucmd.GPUAddress, mode passes.CopyMode) error {
	f.record("Copy")
	return nil
}

func (f *fakePasses) GetCompactedBVHSizes(pass *gpucmd.ComputePass, dest gpucmd.BufferRange, sources []gpucmd.GPUAddress) error {
	f.record("GetCompactedBVHSizes")
	return nil
}

func newFakeBuilder() (*Builder, *fakePasses) {
	f := &fakePasses{}
	set := PassSet{
		LoadInstances:      f,
		LoadPrimitives:     f,
		SceneAABB:          f,
		MortonCode:         f,
		Sort:               f,
		Rearrange:          f,
		ConstructHierarchy: f,
		TreeletReorder:     f,
		ConstructAABB:      f,
		Copy:               f,
		PostBuildInfo:      f,
	}
	b, err := NewBuilder(nil, BuilderConfig{Passes: set})
	if err != nil {
		panic(err)
	}
	return b, f
}

func contains(calls []string, name string) bool {
	for _, c := range calls {
		if c == name {
			return true
		}
	}
	return false
}

func TestPrebuildInfo_EmptyBLAS(t *testing.T) {
	b, _ := newFakeBuilder()
	desc := BuildDescriptor{Type: BottomLevel, Geometry: []passes.GeometryDesc{{IndexCount: 0, VertexCount: 0}}}

	info, err := b.PrebuildInfo(desc)
	if err != nil {
		t.Fatalf("PrebuildInfo: %v", err)
	}
	if info.ResultDataMaxSizeInBytes != 32 {
		t.Errorf("ResultDataMaxSizeInBytes = %d, want 32 (sizeof BVHOffsets)", info.ResultDataMaxSizeInBytes)
	}
	if info.UpdateScratchDataSizeInBytes != 0 {
		t.Errorf("UpdateScratchDataSizeInBytes = %d, want 0", info.UpdateScratchDataSizeInBytes)
	}
}

func TestPrebuildInfo_TLASTwoInstances(t *testing.T) {
	b, _ := newFakeBuilder()
	desc := BuildDescriptor{Type: TopLevel, NumDescs: 2}

	info, err := b.PrebuildInfo(desc)
	if err != nil {
		t.Fatalf("PrebuildInfo: %v", err)
	}
	// sizeof(BVHOffsets) + 3*sizeof(AABBNode) + 2*sizeof(BVHMetadata)
	want := uint64(32 + 3*40 + 2*96)
	if info.ResultDataMaxSizeInBytes != want {
		t.Errorf("ResultDataMaxSizeInBytes = %d, want %d", info.ResultDataMaxSizeInBytes, want)
	}
}

func TestPrebuildInfo_UnknownTypeReturnsInvalidArgument(t *testing.T) {
	b, _ := newFakeBuilder()
	desc := BuildDescriptor{Type: Level(99)}

	if _, err := b.PrebuildInfo(desc); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("PrebuildInfo() error = %v, want ErrInvalidArgument", err)
	}
}

func TestBuild_UnknownTypeReturnsInvalidArgument(t *testing.T) {
	b, _ := newFakeBuilder()
	desc := BuildDescriptor{
		Type:      Level(99),
		DestRange: gpucmd.BufferRange{Address: 0x1000, SizeInBytes: 1 << 20},
	}

	err := b.Build(gpucmd.NewComputePass(nil), desc)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Build() error = %v, want ErrInvalidArgument", err)
	}
}

func TestBuild_NilDestAddress(t *testing.T) {
	b, _ := newFakeBuilder()
	desc := BuildDescriptor{Type: BottomLevel}

	err := b.Build(gpucmd.NewComputePass(nil), desc)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Build() error = %v, want ErrInvalidArgument", err)
	}
}

func TestBuild_EmptyBLAS_SkipsHierarchyPhaseButWritesHeader(t *testing.T) {
	b, f := newFakeBuilder()
	desc := BuildDescriptor{
		Type:      BottomLevel,
		DestRange: gpucmd.BufferRange{Address: 0x1000, SizeInBytes: 1 << 20},
	}
	if _, err := b.PrebuildInfo(desc); err != nil {
		t.Fatalf("PrebuildInfo: %v", err)
	}

	if err := b.Build(gpucmd.NewComputePass(nil), desc); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if contains(f.calls, "CalculateMortonCodes") {
		t.Error("empty build should not run the hierarchy phase")
	}
	if !contains(f.calls, "ConstructAABB") {
		t.Error("empty build should still run ConstructAABB to write the result header")
	}
}

func TestBuild_SingleTriangleBLAS_RunsFullPipeline(t *testing.T) {
	b, f := newFakeBuilder()
	desc := BuildDescriptor{
		Type:      BottomLevel,
		Geometry:  []passes.GeometryDesc{{VertexCount: 3}},
		DestRange: gpucmd.BufferRange{Address: 0x1000, SizeInBytes: 1 << 20},
	}
	if _, err := b.PrebuildInfo(desc); err != nil {
		t.Fatalf("PrebuildInfo: %v", err)
	}

	if err := b.Build(gpucmd.NewComputePass(nil), desc); err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, want := range []string{
		"LoadPrimitives", "CalculateSceneAABB", "CalculateMortonCodes",
		"Sort", "Rearrange", "ConstructHierarchy", "ConstructAABB",
	} {
		if !contains(f.calls, want) {
			t.Errorf("expected %s to be called, calls = %v", want, f.calls)
		}
	}
}

func TestBuild_TriangleSceneRunsTreeletReorder(t *testing.T) {
	b, f := newFakeBuilder()
	desc := BuildDescriptor{
		Type:      BottomLevel,
		Geometry:  []passes.GeometryDesc{{VertexCount: 12}},
		DestRange: gpucmd.BufferRange{Address: 0x1000, SizeInBytes: 1 << 20},
	}
	if _, err := b.PrebuildInfo(desc); err != nil {
		t.Fatalf("PrebuildInfo: %v", err)
	}
	if err := b.Build(gpucmd.NewComputePass(nil), desc); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !contains(f.calls, "Optimize") {
		t.Error("triangle scene build should run TreeletReorder")
	}
}

func TestBuild_TopLevelSkipsTreeletReorder(t *testing.T) {
	b, f := newFakeBuilder()
	desc := BuildDescriptor{
		Type:      TopLevel,
		NumDescs:  2,
		DestRange: gpucmd.BufferRange{Address: 0x1000, SizeInBytes: 1 << 20},
	}
	if _, err := b.PrebuildInfo(desc); err != nil {
		t.Fatalf("PrebuildInfo: %v", err)
	}
	if err := b.Build(gpucmd.NewComputePass(nil), desc); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if contains(f.calls, "Optimize") {
		t.Error("instance scene build should not run TreeletReorder")
	}
	if !contains(f.calls, "LoadInstances") {
		t.Error("top-level build should call LoadInstances")
	}
}

func TestBuild_PerformUpdateWithoutAllowUpdateDowngradesToRebuild(t *testing.T) {
	b, f := newFakeBuilder()
	desc := BuildDescriptor{
		Type:      BottomLevel,
		Geometry:  []passes.GeometryDesc{{VertexCount: 3}},
		Flags:     PerformUpdate, // no AllowUpdate ever latched
		DestRange: gpucmd.BufferRange{Address: 0x1000, SizeInBytes: 1 << 20},
	}
	if _, err := b.PrebuildInfo(desc); err != nil {
		t.Fatalf("PrebuildInfo: %v", err)
	}
	if err := b.Build(gpucmd.NewComputePass(nil), desc); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !contains(f.calls, "CalculateMortonCodes") {
		t.Error("PerformUpdate without a prior AllowUpdate latch should behave as a rebuild")
	}
}

func TestBuild_UpdateRoundTrip_SkipsHierarchyPhase(t *testing.T) {
	b, f := newFakeBuilder()
	desc := BuildDescriptor{
		Type:      BottomLevel,
		Geometry:  []passes.GeometryDesc{{VertexCount: 6}},
		Flags:     AllowUpdate,
		DestRange: gpucmd.BufferRange{Address: 0x1000, SizeInBytes: 1 << 20},
	}
	if _, err := b.PrebuildInfo(desc); err != nil {
		t.Fatalf("PrebuildInfo (rebuild): %v", err)
	}
	if err := b.Build(gpucmd.NewComputePass(nil), desc); err != nil {
		t.Fatalf("Build (rebuild): %v", err)
	}

	f.calls = nil
	desc.Flags = AllowUpdate | PerformUpdate
	if _, err := b.PrebuildInfo(desc); err != nil {
		t.Fatalf("PrebuildInfo (update): %v", err)
	}
	if err := b.Build(gpucmd.NewComputePass(nil), desc); err != nil {
		t.Fatalf("Build (update): %v", err)
	}
	if contains(f.calls, "CalculateMortonCodes") {
		t.Error("an update build should skip the hierarchy phase entirely")
	}
	if !contains(f.calls, "ConstructAABB") {
		t.Error("an update build should still run refit")
	}
}

func TestBuild_UndersizedDestinationFailsWhenDebugValidationEnabled(t *testing.T) {
	f := &fakePasses{}
	set := PassSet{
		LoadInstances: f, LoadPrimitives: f, SceneAABB: f, MortonCode: f,
		Sort: f, Rearrange: f, ConstructHierarchy: f, TreeletReorder: f,
		ConstructAABB: f, Copy: f, PostBuildInfo: f,
	}
	b, err := NewBuilder(nil, BuilderConfig{Passes: set, DebugValidation: true})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	desc := BuildDescriptor{
		Type:         BottomLevel,
		Geometry:     []passes.GeometryDesc{{VertexCount: 3}},
		DestRange:    gpucmd.BufferRange{Address: 0x1000, SizeInBytes: 4},
		ScratchRange: gpucmd.BufferRange{Address: 0x2000, SizeInBytes: 1 << 20},
	}
	if _, err := b.PrebuildInfo(desc); err != nil {
		t.Fatalf("PrebuildInfo: %v", err)
	}
	if err := b.Build(gpucmd.NewComputePass(nil), desc); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Build() error = %v, want ErrInvalidArgument", err)
	}
}

func TestCopy_InvalidModeReturnsInvalidArgument(t *testing.T) {
	b, _ := newFakeBuilder()
	err := b.Copy(context.Background(), gpucmd.NewComputePass(nil), gpucmd.BufferRange{Address: 1, SizeInBytes: 128}, 1, CopyMode(99))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Copy() error = %v, want ErrInvalidArgument", err)
	}
}

func TestCopy_CloneDelegatesToPass(t *testing.T) {
	b, f := newFakeBuilder()
	err := b.Copy(context.Background(), gpucmd.NewComputePass(nil), gpucmd.BufferRange{Address: 1, SizeInBytes: 128}, 1, Clone)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if !contains(f.calls, "Copy") {
		t.Error("Copy should delegate to the copy pass")
	}
}

func TestEmitPostBuildInfo_DelegatesToPass(t *testing.T) {
	b, f := newFakeBuilder()
	err := b.EmitPostBuildInfo(context.Background(), gpucmd.NewComputePass(nil),
		gpucmd.BufferRange{Address: 1, SizeInBytes: 128}, []gpucmd.GPUAddress{1, 2})
	if err != nil {
		t.Fatalf("EmitPostBuildInfo: %v", err)
	}
	if !contains(f.calls, "GetCompactedBVHSizes") {
		t.Error("EmitPostBuildInfo should delegate to the postbuild info pass")
	}
}
