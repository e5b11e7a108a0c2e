package passes

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rtxfallback/bvhtypes"
	"github.com/gogpu/rtxfallback/gpucmd"
)

//go:embed shaders/morton.wgsl
var mortonShaderWGSL string

const mortonWorkgroupSize = 64

// GPUMortonCodePass computes one 30-bit Morton code per element, keyed
// off its centroid relative to the scene AABB. See shaders/morton.wgsl.
type GPUMortonCodePass struct {
	pipeline pipelineHandle
}

// NewGPUMortonCodePass compiles the Morton-code shader.
func NewGPUMortonCodePass(device gpucmd.Device) (*GPUMortonCodePass, error) {
	entries := []gputypes.BindGroupLayoutEntry{
		readOnlyStorageEntry(0),
		readOnlyStorageEntry(1),
		readOnlyStorageEntry(2),
		storageEntry(3),
		uniformEntry(4, 8),
	}
	pipeline, err := newPipelineHandle(device, "morton_codes", "cs_morton", mortonShaderWGSL, entries, 4, 2)
	if err != nil {
		return nil, fmt.Errorf("passes: morton pipeline: %w", err)
	}
	return &GPUMortonCodePass{pipeline: pipeline}, nil
}

// CalculateMortonCodes dispatches ceil(N/64) workgroups, one thread per
// element.
func (p *GPUMortonCodePass) CalculateMortonCodes(
	pass *gpucmd.ComputePass,
	sceneType SceneType,
	elementBuffer gpucmd.GPUAddress,
	numElements uint32,
	sceneAABB gpucmd.GPUAddress,
	indexBuffer gpucmd.GPUAddress,
	mortonCodes gpucmd.GPUAddress,
) error {
	if numElements == 0 {
		return nil
	}
	return p.pipeline.bindAndDispatch(pass, "morton_codes",
		[]gpucmd.Binding{
			{Slot: 0, Address: elementBuffer, Size: uint64(numElements) * bvhtypes.SizeofAABB},
			{Slot: 1, Address: sceneAABB, Size: bvhtypes.SizeofAABB},
			{Slot: 2, Address: indexBuffer, Size: uint64(numElements) * bvhtypes.SizeofUint32},
			{Slot: 3, Address: mortonCodes, Size: uint64(numElements) * bvhtypes.SizeofUint32},
		},
		[]uint32{numElements, 0},
		workgroupCount1D(numElements, mortonWorkgroupSize), 1, 1,
	)
}
