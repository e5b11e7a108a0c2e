package passes

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rtxfallback/bvhtypes"
	"github.com/gogpu/rtxfallback/gpucmd"
)

//go:embed shaders/construct_aabb.wgsl
var constructAABBShaderWGSL string

const constructAABBWorkgroupSize = 64

// GPUConstructAABBPass fits an AABB around every node bottom-up from
// the hierarchy's parent chain, using a per-node atomic arrival counter
// so exactly one thread — the second child to reach a node — performs
// that node's union and continues climbing. Thread 0 additionally
// writes the result buffer's BVHOffsets header, so this pass always
// dispatches at least one workgroup even for an empty build. See
// shaders/construct_aabb.wgsl.
type GPUConstructAABBPass struct {
	pipeline pipelineHandle
}

// NewGPUConstructAABBPass compiles the AABB-refit shader.
func NewGPUConstructAABBPass(device gpucmd.Device) (*GPUConstructAABBPass, error) {
	entries := []gputypes.BindGroupLayoutEntry{
		storageEntry(0),
		storageEntry(1),
		storageEntry(2),
		readOnlyStorageEntry(3),
		readOnlyStorageEntry(4),
		uniformEntry(5, 8),
	}
	pipeline, err := newPipelineHandle(device, "construct_aabb", "cs_construct_aabb", constructAABBShaderWGSL, entries, 5, 2)
	if err != nil {
		return nil, fmt.Errorf("passes: construct aabb pipeline: %w", err)
	}
	return &GPUConstructAABBPass{pipeline: pipeline}, nil
}

// ConstructAABB dispatches one thread per leaf plus the header-writing
// thread 0; the node counter buffer must be zeroed before this call for
// a fresh build (an update build zeroes it too, since refit re-derives
// every box from scratch rather than patching stale ones). Called even
// when numElements is 0 or 1 so the destination header is always
// present; workgroupCount1D never dispatches fewer than one workgroup.
func (p *GPUConstructAABBPass) ConstructAABB(
	pass *gpucmd.ComputePass,
	sceneType SceneType,
	destAddress gpucmd.GPUAddress,
	dispatchArgsScratch gpucmd.GPUAddress,
	nodeCounter gpucmd.GPUAddress,
	hierarchy gpucmd.GPUAddress,
	parents gpucmd.GPUAddress,
	descriptorHeap gpucmd.DescriptorHeapRef,
	numElements uint32,
) error {
	totalNodes := uint64(bvhtypes.TotalNumNodes(numElements))
	internalNodes := uint64(bvhtypes.NumInternalNodes(numElements))
	destSize := bvhtypes.SizeofBVHOffsets + totalNodes*bvhtypes.SizeofAABBNode

	return p.pipeline.bindAndDispatch(pass, "construct_aabb",
		[]gpucmd.Binding{
			{Slot: 0, Address: destAddress, Size: destSize},
			{Slot: 1, Address: dispatchArgsScratch, Size: 3 * bvhtypes.SizeofUint32},
			{Slot: 2, Address: nodeCounter, Size: totalNodes * bvhtypes.SizeofUint32},
			{Slot: 3, Address: hierarchy, Size: internalNodes * bvhtypes.SizeofHierarchyNode},
			{Slot: 4, Address: parents, Size: totalNodes * bvhtypes.SizeofUint32},
		},
		[]uint32{numElements, 0},
		workgroupCount1D(numElements, constructAABBWorkgroupSize), 1, 1,
	)
}
