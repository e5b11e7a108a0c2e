package passes

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rtxfallback/bvhtypes"
	"github.com/gogpu/rtxfallback/gpucmd"
)

//go:embed shaders/scene_aabb.wgsl
var sceneAABBShaderWGSL string

const sceneAABBWorkgroupSize = 64

// GPUSceneAABBPass reduces loaded elements to a scene AABB with a
// two-stage parallel reduction: cs_reduce folds elements into per-
// workgroup partials in scratch, cs_finalize folds those partials into
// the scene AABB. See shaders/scene_aabb.wgsl.
type GPUSceneAABBPass struct {
	reduce   pipelineHandle
	finalize pipelineHandle
}

// NewGPUSceneAABBPass compiles the scene-AABB reduction shader and
// builds both of its compute pipelines.
func NewGPUSceneAABBPass(device gpucmd.Device) (*GPUSceneAABBPass, error) {
	entries := []gputypes.BindGroupLayoutEntry{
		readOnlyStorageEntry(0),
		storageEntry(1),
		storageEntry(2),
		uniformEntry(3, 8),
	}

	reduce, err := newPipelineHandle(device, "scene_aabb_reduce", "cs_reduce", sceneAABBShaderWGSL, entries, 3, 2)
	if err != nil {
		return nil, fmt.Errorf("passes: scene aabb reduce pipeline: %w", err)
	}
	finalize, err := newPipelineHandle(device, "scene_aabb_finalize", "cs_finalize", sceneAABBShaderWGSL, entries, 3, 2)
	if err != nil {
		return nil, fmt.Errorf("passes: scene aabb finalize pipeline: %w", err)
	}

	return &GPUSceneAABBPass{reduce: reduce, finalize: finalize}, nil
}

// CalculateSceneAABB records the two-stage reduction: one dispatch per
// ceil(N/64) workgroups to fold elements into scratch, then a single
// dispatch to fold scratch into the final AABB.
func (p *GPUSceneAABBPass) CalculateSceneAABB(
	pass *gpucmd.ComputePass,
	sceneType SceneType,
	elementBuffer gpucmd.GPUAddress,
	numElements uint32,
	scratch gpucmd.GPUAddress,
	sceneAABB gpucmd.GPUAddress,
) error {
	if numElements == 0 {
		return nil
	}

	workgroups := workgroupCount1D(numElements, sceneAABBWorkgroupSize)
	elementsSize := uint64(numElements) * bvhtypes.SizeofAABB
	scratchSize := p.ScratchBufferSizeNeeded(numElements)

	if err := p.reduce.bindAndDispatch(pass, "scene_aabb_reduce",
		[]gpucmd.Binding{
			{Slot: 0, Address: elementBuffer, Size: elementsSize},
			{Slot: 1, Address: scratch, Size: scratchSize},
			{Slot: 2, Address: sceneAABB, Size: bvhtypes.SizeofAABB},
		},
		[]uint32{numElements, 0},
		workgroups, 1, 1,
	); err != nil {
		return err
	}

	return p.finalize.bindAndDispatch(pass, "scene_aabb_finalize",
		[]gpucmd.Binding{
			{Slot: 0, Address: elementBuffer, Size: elementsSize},
			{Slot: 1, Address: scratch, Size: scratchSize},
			{Slot: 2, Address: sceneAABB, Size: bvhtypes.SizeofAABB},
		},
		[]uint32{numElements, 0},
		1, 1, 1,
	)
}

// ScratchBufferSizeNeeded returns one AABB of scratch per workgroup of
// the reduction pass.
func (p *GPUSceneAABBPass) ScratchBufferSizeNeeded(numElements uint32) uint64 {
	workgroups := workgroupCount1D(numElements, sceneAABBWorkgroupSize)
	return bvhtypes.Align4(uint64(workgroups) * bvhtypes.SizeofAABB)
}
