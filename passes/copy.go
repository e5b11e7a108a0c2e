package passes

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rtxfallback/gpucmd"
)

//go:embed shaders/copy.wgsl
var copyShaderWGSL string

const copyWorkgroupSize = 64

// GPUCopyPass clones or compacts a built structure with a single
// compute dispatch; compaction bounds itself off the source's own
// header rather than a value the host would have to read back first.
// See shaders/copy.wgsl.
type GPUCopyPass struct {
	pipeline pipelineHandle
}

// NewGPUCopyPass compiles the copy/compact shader.
func NewGPUCopyPass(device gpucmd.Device) (*GPUCopyPass, error) {
	entries := []gputypes.BindGroupLayoutEntry{
		readOnlyStorageEntry(0),
		storageEntry(1),
		uniformEntry(2, 8),
	}
	pipeline, err := newPipelineHandle(device, "copy_bvh", "cs_copy", copyShaderWGSL, entries, 2, 2)
	if err != nil {
		return nil, fmt.Errorf("passes: copy pipeline: %w", err)
	}
	return &GPUCopyPass{pipeline: pipeline}, nil
}

// CopyRaytracingAccelerationStructure dispatches ceil(sizeWords/64)
// workgroups sized to dest's capacity; Compact additionally bounds each
// thread against the live size the source's own header reports.
func (p *GPUCopyPass) CopyRaytracingAccelerationStructure(
	pass *gpucmd.ComputePass,
	dest gpucmd.BufferRange,
	src gpucmd.GPUAddress,
	mode CopyMode,
) error {
	if dest.SizeInBytes == 0 {
		return nil
	}

	words := uint32(dest.SizeInBytes / 4)
	compact := uint32(0)
	if mode == Compact {
		compact = 1
	}

	return p.pipeline.bindAndDispatch(pass, "copy_bvh",
		[]gpucmd.Binding{
			{Slot: 0, Address: src, Size: dest.SizeInBytes},
			{Slot: 1, Address: dest.Address, Size: dest.SizeInBytes},
		},
		[]uint32{words, compact},
		workgroupCount1D(words, copyWorkgroupSize), 1, 1,
	)
}
