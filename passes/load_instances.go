package passes

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rtxfallback/bvhtypes"
	"github.com/gogpu/rtxfallback/gpucmd"
)

//go:embed shaders/load_instances.wgsl
var loadInstancesShaderWGSL string

const loadInstancesWorkgroupSize = 64

// instanceDescStride matches D3D12_RAYTRACING_INSTANCE_DESC: a 3x4
// row-major transform, packed mask/flags/hit-group fields, and a
// 64-bit acceleration structure address.
const instanceDescStride = 64

// GPULoadInstancesPass loads top-level instance descriptors into
// world-space AABBs by transforming each referenced bottom-level
// structure's root box, and optionally seeds the identity permutation.
// See shaders/load_instances.wgsl.
type GPULoadInstancesPass struct {
	pipeline pipelineHandle
}

// NewGPULoadInstancesPass compiles the instance-loading shader.
func NewGPULoadInstancesPass(device gpucmd.Device) (*GPULoadInstancesPass, error) {
	entries := []gputypes.BindGroupLayoutEntry{
		readOnlyStorageEntry(0),
		readOnlyStorageEntry(1),
		storageEntry(2),
		storageEntry(3),
		storageEntry(4),
		uniformEntry(5, 8),
	}
	pipeline, err := newPipelineHandle(device, "load_instances", "cs_load_instances", loadInstancesShaderWGSL, entries, 5, 2)
	if err != nil {
		return nil, fmt.Errorf("passes: load instances pipeline: %w", err)
	}
	return &GPULoadInstancesPass{pipeline: pipeline}, nil
}

// LoadInstances dispatches ceil(N/64) workgroups, one thread per
// instance. The layout parameter is accepted for interface symmetry
// with LoadPrimitives and is not used: instanceDescs is always read as a
// flat array of instance descriptors, and an array-of-pointers table is
// not dereferenced.
func (p *GPULoadInstancesPass) LoadInstances(
	pass *gpucmd.ComputePass,
	elementBuffer gpucmd.GPUAddress,
	metadataBuffer gpucmd.GPUAddress,
	instanceDescs gpucmd.GPUAddress,
	layout DescsLayout,
	numElements uint32,
	descriptorHeap gpucmd.DescriptorHeapRef,
	indexBuffer gpucmd.GPUAddress,
) error {
	if numElements == 0 {
		return nil
	}

	seedIndices := uint32(0)
	if !indexBuffer.IsZero() {
		seedIndices = 1
	}

	return p.pipeline.bindAndDispatch(pass, "load_instances",
		[]gpucmd.Binding{
			{Slot: 0, Address: instanceDescs, Size: uint64(numElements) * instanceDescStride},
			{Slot: 1, Address: gpucmd.GPUAddress(descriptorHeap.GPUHandle), Size: 0},
			{Slot: 2, Address: elementBuffer, Size: uint64(numElements) * bvhtypes.SizeofAABB},
			{Slot: 3, Address: metadataBuffer, Size: uint64(numElements) * bvhtypes.SizeofBVHMetadata},
			{Slot: 4, Address: indexBuffer, Size: uint64(numElements) * bvhtypes.SizeofUint32},
		},
		[]uint32{numElements, seedIndices},
		workgroupCount1D(numElements, loadInstancesWorkgroupSize), 1, 1,
	)
}
