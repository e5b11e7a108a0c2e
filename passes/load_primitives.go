package passes

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rtxfallback/bvhtypes"
	"github.com/gogpu/rtxfallback/gpucmd"
)

//go:embed shaders/load_primitives.wgsl
var loadPrimitivesShaderWGSL string

const loadPrimitivesWorkgroupSize = 64

// GPULoadPrimitivesPass loads a bottom-level build's geometry
// descriptors into the primitive and metadata buffers, one dispatch per
// geometry since each has its own vertex/index buffer addresses and
// triangle count. See shaders/load_primitives.wgsl.
type GPULoadPrimitivesPass struct {
	pipeline pipelineHandle
}

// NewGPULoadPrimitivesPass compiles the primitive-loading shader.
func NewGPULoadPrimitivesPass(device gpucmd.Device) (*GPULoadPrimitivesPass, error) {
	entries := []gputypes.BindGroupLayoutEntry{
		readOnlyStorageEntry(0),
		readOnlyStorageEntry(1),
		storageEntry(2),
		storageEntry(3),
		storageEntry(4),
		uniformEntry(5, 32),
	}
	pipeline, err := newPipelineHandle(device, "load_primitives", "cs_load_primitives", loadPrimitivesShaderWGSL, entries, 5, 8)
	if err != nil {
		return nil, fmt.Errorf("passes: load primitives pipeline: %w", err)
	}
	return &GPULoadPrimitivesPass{pipeline: pipeline}, nil
}

// LoadPrimitives dispatches once per geometry description, with each
// dispatch sized to that geometry's triangle count and offset into the
// shared element/metadata/index buffers by the running triangle total
// of the geometries before it.
func (p *GPULoadPrimitivesPass) LoadPrimitives(
	pass *gpucmd.ComputePass,
	geometry []GeometryDesc,
	numElements uint32,
	elementBuffer gpucmd.GPUAddress,
	metadataBuffer gpucmd.GPUAddress,
	indexBuffer gpucmd.GPUAddress,
) error {
	if numElements == 0 {
		return nil
	}

	baseElement := uint32(0)
	for i, g := range geometry {
		triangles := g.TriangleCount()
		if triangles == 0 {
			continue
		}

		indexIs32Bit := uint32(0)
		if g.IndexIs32Bit {
			indexIs32Bit = 1
		}

		err := p.pipeline.bindAndDispatch(pass, "load_primitives",
			[]gpucmd.Binding{
				{Slot: 0, Address: g.VertexBuffer, Size: uint64(g.VertexCount) * uint64(g.VertexStride)},
				{Slot: 1, Address: g.IndexBuffer, Size: uint64(g.IndexCount) * bvhtypes.SizeofUint32},
				{Slot: 2, Address: elementBuffer, Size: uint64(numElements) * bvhtypes.SizeofAABB},
				{Slot: 3, Address: metadataBuffer, Size: uint64(numElements) * bvhtypes.SizeofPrimitiveMetaData},
				{Slot: 4, Address: indexBuffer, Size: uint64(numElements) * bvhtypes.SizeofUint32},
			},
			[]uint32{baseElement, triangles, uint32(i), g.VertexStride, g.IndexCount, indexIs32Bit, 1, 0},
			workgroupCount1D(triangles, loadPrimitivesWorkgroupSize), 1, 1,
		)
		if err != nil {
			return fmt.Errorf("passes: load primitives dispatch (geometry %d): %w", i, err)
		}
		baseElement += triangles
	}
	return nil
}
