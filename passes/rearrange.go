package passes

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rtxfallback/bvhtypes"
	"github.com/gogpu/rtxfallback/gpucmd"
)

//go:embed shaders/rearrange_primitives.wgsl
var rearrangePrimitivesShaderWGSL string

//go:embed shaders/rearrange_instances.wgsl
var rearrangeInstancesShaderWGSL string

const rearrangeWorkgroupSize = 64

// GPURearrangePass gathers scratch elements into sorted output order
// through the sorted index buffer. A WGSL storage array's element
// stride is fixed at compile time, and PrimitiveMetaData (8 bytes) and
// BVHMetadata (96 bytes) have different strides, so this pass compiles
// one pipeline per scene type rather than trying to share a single
// entry point across both. See shaders/rearrange_primitives.wgsl and
// shaders/rearrange_instances.wgsl.
type GPURearrangePass struct {
	primitives pipelineHandle
	instances  pipelineHandle
}

// NewGPURearrangePass compiles both rearrange shaders.
func NewGPURearrangePass(device gpucmd.Device) (*GPURearrangePass, error) {
	entries := []gputypes.BindGroupLayoutEntry{
		readOnlyStorageEntry(0),
		readOnlyStorageEntry(1),
		readOnlyStorageEntry(2),
		storageEntry(3),
		storageEntry(4),
		storageEntry(5),
		uniformEntry(6, 8),
	}
	primitives, err := newPipelineHandle(device, "rearrange_primitives", "cs_rearrange", rearrangePrimitivesShaderWGSL, entries, 6, 2)
	if err != nil {
		return nil, fmt.Errorf("passes: rearrange primitives pipeline: %w", err)
	}
	instances, err := newPipelineHandle(device, "rearrange_instances", "cs_rearrange", rearrangeInstancesShaderWGSL, entries, 6, 2)
	if err != nil {
		return nil, fmt.Errorf("passes: rearrange instances pipeline: %w", err)
	}
	return &GPURearrangePass{primitives: primitives, instances: instances}, nil
}

// Rearrange dispatches ceil(N/64) workgroups, one thread per output
// slot. When savedSortedIndices is zero (AllowUpdate was not latched,
// so the result buffer has no saved-index array) the shader still runs
// the gather, it simply skips the extra write.
func (p *GPURearrangePass) Rearrange(
	pass *gpucmd.ComputePass,
	sceneType SceneType,
	numElements uint32,
	scratchElements gpucmd.GPUAddress,
	scratchMetadata gpucmd.GPUAddress,
	indexBuffer gpucmd.GPUAddress,
	outputElements gpucmd.GPUAddress,
	outputMetadata gpucmd.GPUAddress,
	savedSortedIndices gpucmd.GPUAddress,
) error {
	if numElements == 0 {
		return nil
	}

	pipeline := &p.primitives
	if sceneType == BottomLevelBVHs {
		pipeline = &p.instances
	}
	metadataStride := metadataStrideFor(sceneType)

	saveIndices := uint32(0)
	savedIndicesTarget := indexBuffer
	if !savedSortedIndices.IsZero() {
		saveIndices = 1
		savedIndicesTarget = savedSortedIndices
	}

	return pipeline.bindAndDispatch(pass, "rearrange",
		[]gpucmd.Binding{
			{Slot: 0, Address: scratchElements, Size: uint64(numElements) * bvhtypes.SizeofAABB},
			{Slot: 1, Address: scratchMetadata, Size: uint64(numElements) * metadataStride},
			{Slot: 2, Address: indexBuffer, Size: uint64(numElements) * bvhtypes.SizeofUint32},
			{Slot: 3, Address: outputElements, Size: uint64(numElements) * bvhtypes.SizeofAABB},
			{Slot: 4, Address: outputMetadata, Size: uint64(numElements) * metadataStride},
			{Slot: 5, Address: savedIndicesTarget, Size: uint64(numElements) * bvhtypes.SizeofUint32},
		},
		[]uint32{numElements, saveIndices},
		workgroupCount1D(numElements, rearrangeWorkgroupSize), 1, 1,
	)
}
