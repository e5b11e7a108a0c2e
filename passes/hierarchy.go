package passes

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rtxfallback/bvhtypes"
	"github.com/gogpu/rtxfallback/gpucmd"
)

//go:embed shaders/hierarchy.wgsl
var hierarchyShaderWGSL string

const hierarchyWorkgroupSize = 64

// GPUConstructHierarchyPass builds the n-1 internal-node links of a
// linear BVH over sorted Morton codes, one thread per internal node,
// following Karras 2012. See shaders/hierarchy.wgsl.
type GPUConstructHierarchyPass struct {
	pipeline pipelineHandle
}

// NewGPUConstructHierarchyPass compiles the hierarchy-construction
// shader.
func NewGPUConstructHierarchyPass(device gpucmd.Device) (*GPUConstructHierarchyPass, error) {
	entries := []gputypes.BindGroupLayoutEntry{
		readOnlyStorageEntry(0),
		storageEntry(1),
		storageEntry(2),
		uniformEntry(3, 8),
	}
	pipeline, err := newPipelineHandle(device, "construct_hierarchy", "cs_construct_hierarchy", hierarchyShaderWGSL, entries, 3, 2)
	if err != nil {
		return nil, fmt.Errorf("passes: construct hierarchy pipeline: %w", err)
	}
	return &GPUConstructHierarchyPass{pipeline: pipeline}, nil
}

// ConstructHierarchy dispatches ceil((N-1)/64) workgroups, one thread
// per internal node; a single-leaf build has no internal nodes and
// nothing to dispatch.
func (p *GPUConstructHierarchyPass) ConstructHierarchy(
	pass *gpucmd.ComputePass,
	sceneType SceneType,
	mortonCodes gpucmd.GPUAddress,
	hierarchy gpucmd.GPUAddress,
	savedParents gpucmd.GPUAddress,
	descriptorHeap gpucmd.DescriptorHeapRef,
	numElements uint32,
) error {
	if numElements < 2 {
		return nil
	}

	internalNodes := numElements - 1
	saveParents := uint32(0)
	parentsTarget := hierarchy
	if !savedParents.IsZero() {
		saveParents = 1
		parentsTarget = savedParents
	}

	return p.pipeline.bindAndDispatch(pass, "construct_hierarchy",
		[]gpucmd.Binding{
			{Slot: 0, Address: mortonCodes, Size: uint64(numElements) * bvhtypes.SizeofUint32},
			{Slot: 1, Address: hierarchy, Size: uint64(internalNodes) * bvhtypes.SizeofHierarchyNode},
			{Slot: 2, Address: parentsTarget, Size: uint64(bvhtypes.TotalNumNodes(numElements)) * bvhtypes.SizeofUint32},
		},
		[]uint32{numElements, saveParents},
		workgroupCount1D(internalNodes, hierarchyWorkgroupSize), 1, 1,
	)
}
