package passes

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rtxfallback/bvhtypes"
	"github.com/gogpu/rtxfallback/gpucmd"
)

//go:embed shaders/postbuildinfo.wgsl
var postBuildInfoShaderWGSL string

// GPUPostBuildInfoPass reads the compacted size out of each source
// structure's header and writes it into consecutive slots of the
// destination range, one dispatch per source. See shaders/postbuildinfo.wgsl.
type GPUPostBuildInfoPass struct {
	pipeline pipelineHandle
}

// NewGPUPostBuildInfoPass compiles the postbuild-info shader.
func NewGPUPostBuildInfoPass(device gpucmd.Device) (*GPUPostBuildInfoPass, error) {
	entries := []gputypes.BindGroupLayoutEntry{
		readOnlyStorageEntry(0),
		storageEntry(1),
		uniformEntry(2, 8),
	}
	pipeline, err := newPipelineHandle(device, "postbuild_info", "cs_postbuild_info", postBuildInfoShaderWGSL, entries, 2, 2)
	if err != nil {
		return nil, fmt.Errorf("passes: postbuild info pipeline: %w", err)
	}
	return &GPUPostBuildInfoPass{pipeline: pipeline}, nil
}

// sizeofPostBuildSlot is sizeof(vec2<u32>): the compacted size split
// across two 32-bit words to match D3D12's UINT64 CompactedSizeInBytes.
const sizeofPostBuildSlot = 8

// GetCompactedBVHSizes dispatches one single-thread invocation per
// source, each writing its compacted size to the matching slot in dest.
func (p *GPUPostBuildInfoPass) GetCompactedBVHSizes(
	pass *gpucmd.ComputePass,
	dest gpucmd.BufferRange,
	sources []gpucmd.GPUAddress,
) error {
	if len(sources) == 0 {
		return nil
	}
	for i, src := range sources {
		slot := dest.Address.Add(uint64(i) * sizeofPostBuildSlot)
		err := p.pipeline.bindAndDispatch(pass, "postbuild_info",
			[]gpucmd.Binding{
				{Slot: 0, Address: src, Size: bvhtypes.SizeofBVHOffsets},
				{Slot: 1, Address: slot, Size: sizeofPostBuildSlot},
			},
			[]uint32{uint32(i), 0},
			1, 1, 1,
		)
		if err != nil {
			return fmt.Errorf("passes: postbuild info dispatch (source %d): %w", i, err)
		}
	}
	return nil
}
