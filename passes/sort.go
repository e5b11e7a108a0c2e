package passes

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rtxfallback/bvhtypes"
	"github.com/gogpu/rtxfallback/gpucmd"
)

//go:embed shaders/sort.wgsl
var sortShaderWGSL string

const sortWorkgroupSize = 64

// GPUSortPass sorts (mortonCode, index) pairs with a bitonic sort
// network: one dispatch per (stage, pass) pair, each comparing and
// conditionally swapping elements ixj bits apart. See shaders/sort.wgsl.
type GPUSortPass struct {
	pipeline pipelineHandle
}

// NewGPUSortPass compiles the bitonic sort shader.
func NewGPUSortPass(device gpucmd.Device) (*GPUSortPass, error) {
	entries := []gputypes.BindGroupLayoutEntry{
		storageEntry(0),
		storageEntry(1),
		uniformEntry(2, 16),
	}
	pipeline, err := newPipelineHandle(device, "sort", "cs_bitonic_stage", sortShaderWGSL, entries, 2, 4)
	if err != nil {
		return nil, fmt.Errorf("passes: sort pipeline: %w", err)
	}
	return &GPUSortPass{pipeline: pipeline}, nil
}

// Sort records one dispatch per (stage, pass) of a bitonic sort over the
// next power of two at or above numElements; the shader bounds-checks
// ixj against numElements so out-of-range comparisons are skipped.
// sortPayload always sorts indexBuffer alongside mortonCodes: a build
// with no downstream use for the permutation still needs it to know
// which element each sorted key came from, so this pass never sorts
// keys alone.
func (p *GPUSortPass) Sort(
	pass *gpucmd.ComputePass,
	mortonCodes gpucmd.GPUAddress,
	indexBuffer gpucmd.GPUAddress,
	numElements uint32,
	ascending bool,
	sortPayload bool,
) error {
	if numElements < 2 {
		return nil
	}

	workgroups := workgroupCount1D(nextPowerOfTwo(numElements), sortWorkgroupSize)
	keysSize := uint64(numElements) * bvhtypes.SizeofUint32

	var ascendingWord uint32
	if ascending {
		ascendingWord = 1
	}

	for k := uint32(2); k <= nextPowerOfTwo(numElements); k <<= 1 {
		for j := k >> 1; j > 0; j >>= 1 {
			err := p.pipeline.bindAndDispatch(pass, "sort",
				[]gpucmd.Binding{
					{Slot: 0, Address: mortonCodes, Size: keysSize},
					{Slot: 1, Address: indexBuffer, Size: keysSize},
				},
				[]uint32{numElements, j, k, ascendingWord},
				workgroups, 1, 1,
			)
			if err != nil {
				return fmt.Errorf("passes: sort dispatch (k=%d, j=%d): %w", k, j, err)
			}
		}
	}
	return nil
}

func nextPowerOfTwo(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	p := uint32(1)
	for p < n {
		p <<= 1
	}
	return p
}
