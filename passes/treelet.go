package passes

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rtxfallback/bvhtypes"
	"github.com/gogpu/rtxfallback/gpucmd"
)

//go:embed shaders/treelet.wgsl
var treeletShaderWGSL string

const treeletWorkgroupSize = 64

// GPUTreeletReorderPass applies a cheap single-swap local restructuring
// to treelets whose children are both leaves, run only for triangle
// scenes. See shaders/treelet.wgsl.
type GPUTreeletReorderPass struct {
	pipeline pipelineHandle
}

// NewGPUTreeletReorderPass compiles the treelet-reorder shader.
func NewGPUTreeletReorderPass(device gpucmd.Device) (*GPUTreeletReorderPass, error) {
	entries := []gputypes.BindGroupLayoutEntry{
		storageEntry(0),
		readOnlyStorageEntry(1),
		storageEntry(2),
		storageEntry(3),
		uniformEntry(4, 8),
	}
	pipeline, err := newPipelineHandle(device, "treelet_reorder", "cs_treelet_reorder", treeletShaderWGSL, entries, 4, 2)
	if err != nil {
		return nil, fmt.Errorf("passes: treelet reorder pipeline: %w", err)
	}
	return &GPUTreeletReorderPass{pipeline: pipeline}, nil
}

// Optimize dispatches one thread per internal node; nodes whose
// children aren't both leaves, or whose sibling isn't a leaf, exit
// immediately without touching shared state. hierarchy is not bound:
// the swap decision only needs the parent chain and the node's own
// AABB scratch entry, both already resident from ConstructHierarchy
// and ConstructAABB.
func (p *GPUTreeletReorderPass) Optimize(
	pass *gpucmd.ComputePass,
	numElements uint32,
	hierarchy gpucmd.GPUAddress,
	parents gpucmd.GPUAddress,
	nodeCounter gpucmd.GPUAddress,
	aabbScratch gpucmd.GPUAddress,
	outputElements gpucmd.GPUAddress,
	descriptorHeap gpucmd.DescriptorHeapRef,
	flags uint32,
) error {
	if numElements < 4 {
		return nil
	}

	internalNodes := numElements - 1
	totalNodes := uint64(bvhtypes.TotalNumNodes(numElements))

	return p.pipeline.bindAndDispatch(pass, "treelet_reorder",
		[]gpucmd.Binding{
			{Slot: 0, Address: outputElements, Size: totalNodes * bvhtypes.SizeofAABBNode},
			{Slot: 1, Address: parents, Size: totalNodes * bvhtypes.SizeofUint32},
			{Slot: 2, Address: nodeCounter, Size: totalNodes * bvhtypes.SizeofUint32},
			{Slot: 3, Address: aabbScratch, Size: p.RequiredSizeForAABBBuffer(numElements)},
		},
		[]uint32{numElements, flags},
		workgroupCount1D(internalNodes, treeletWorkgroupSize), 1, 1,
	)
}

// RequiredSizeForAABBBuffer returns one AABB per leaf, the working set
// this pass scans while proposing swaps.
func (p *GPUTreeletReorderPass) RequiredSizeForAABBBuffer(numElements uint32) uint64 {
	return bvhtypes.Align4(uint64(numElements) * bvhtypes.SizeofAABB)
}
