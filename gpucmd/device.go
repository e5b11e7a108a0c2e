package gpucmd

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Device is the subset of hal.Device the builder needs to construct its
// compute pipelines and bind the buffers each dispatch reads and writes:
// shader compilation, bind group / pipeline layout creation, compute
// pipeline creation, and bind group creation. Every pass collaborator
// that owns a compute shader is built through this interface rather than
// through hal.Device directly, so tests can substitute a fake device
// that never touches real GPU resources.
type Device interface {
	CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error)
	CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error)
	CreatePipelineLayout(desc *hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error)
	CreateComputePipeline(desc *hal.ComputePipelineDescriptor) (hal.ComputePipeline, error)
	CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error)
	DestroyBindGroup(bindGroup hal.BindGroup)

	// CreateBuffer and WriteBuffer back each pass's small per-dispatch
	// uniform constants block (element counts, update/sort flags). This
	// folds what gogpu-gg exposes as a separate hal.Queue.WriteBuffer
	// into Device, since the builder has no other use for a queue
	// reference.
	CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error)
	DestroyBuffer(buf hal.Buffer)
	WriteBuffer(buf hal.Buffer, offset uint64, data []byte)
}

// DeviceProvider abstracts device acquisition. Device creation itself
// (adapter enumeration, surface configuration) is out of scope for this
// package; DeviceProvider only lets NewBuilder accept a context-scoped
// device the way gogpu-gg's backends receive one from their caller,
// without this package owning the lifetime of that device.
type DeviceProvider interface {
	Device() Device
}

// CompiledShader is a WGSL source compiled to SPIR-V, ready to hand to
// Device.CreateShaderModule. Compilation happens once, at pipeline
// construction time, mirroring gpu_fine.go's shader compilation step.
type CompiledShader struct {
	Label string
	SPIRV []uint32
}

// CompileWGSL compiles WGSL source to SPIR-V via naga, converting the
// little-endian byte stream naga.Compile returns into the uint32 words
// hal.ShaderSource expects.
func CompileWGSL(label, wgsl string) (CompiledShader, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return CompiledShader{}, fmt.Errorf("gpucmd: compile shader %q: %w", label, err)
	}
	if len(spirvBytes)%4 != 0 {
		return CompiledShader{}, fmt.Errorf("gpucmd: compile shader %q: SPIR-V byte stream not word-aligned", label)
	}

	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	return CompiledShader{Label: label, SPIRV: words}, nil
}

// BuildComputePipeline compiles wgsl, creates its bind group and
// pipeline layouts from entries, and returns a ready-to-bind compute
// pipeline plus its layout (needed by callers that must create bind
// groups against it later). This is the general shape gpu_fine.go
// repeats per pipeline; here it is factored into one call per pass.
func BuildComputePipeline(device Device, label, entryPoint, wgsl string, entries []gputypes.BindGroupLayoutEntry) (hal.ComputePipeline, hal.BindGroupLayout, error) {
	shader, err := CompileWGSL(label, wgsl)
	if err != nil {
		return nil, nil, err
	}

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: shader.SPIRV,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpucmd: create shader module %q: %w", label, err)
	}

	bindLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpucmd: create bind group layout %q: %w", label, err)
	}

	pipelineLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpucmd: create pipeline layout %q: %w", label, err)
	}

	pipeline, err := device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  label,
		Layout: pipelineLayout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpucmd: create compute pipeline %q: %w", label, err)
	}

	return pipeline, bindLayout, nil
}

// NewConstantsBuffer creates a small uniform buffer sized to hold
// numWords 32-bit words, rewritten via WriteBuffer before every dispatch
// that needs it. Mirrors sdf_gpu.go's createPerShapeBindings, which
// creates one small uniform buffer per dispatch for the same purpose.
func NewConstantsBuffer(device Device, label string, numWords int) (hal.Buffer, error) {
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_constants",
		Size:  uint64(numWords) * 4,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpucmd: create constants buffer %q: %w", label, err)
	}
	return buf, nil
}

// Binding is one (slot, address, size) triple to bind into a pass's
// storage or uniform buffer entry. GPUAddress values in this package are
// already-resolved flat GPU addresses rather than handles to discrete
// hal.Buffer objects, so Binding carries the address through as the
// entry's native buffer handle with a zero offset, the way a bindless
// root-descriptor binds a raw GPU virtual address directly.
type Binding struct {
	Slot    uint32
	Address GPUAddress
	Size    uint64
}

// bindGroupEntries converts a list of Bindings into the gputypes.BindGroupEntry
// slice hal.BindGroupDescriptor expects.
func bindGroupEntries(bindings []Binding) []gputypes.BindGroupEntry {
	entries := make([]gputypes.BindGroupEntry, len(bindings))
	for i, b := range bindings {
		entries[i] = gputypes.BindGroupEntry{
			Binding: b.Slot,
			Resource: gputypes.BufferBinding{
				Buffer: uintptr(b.Address),
				Offset: 0,
				Size:   b.Size,
			},
		}
	}
	return entries
}

// CreateBindGroup builds the bind group a pass needs for one dispatch,
// binding each address in bindings against layout at the given slots.
// Pass collaborators call this immediately before SetPipeline/Dispatch
// since the addresses vary per Build call, unlike the pipeline and its
// layout, which are built once at construction time. Mirrors sdf_gpu.go
// and vello_compute.go's per-dispatch CreateBindGroup call.
func CreateBindGroup(device Device, label string, layout hal.BindGroupLayout, bindings []Binding) (hal.BindGroup, error) {
	bg, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: bindGroupEntries(bindings),
	})
	if err != nil {
		return nil, fmt.Errorf("gpucmd: create bind group %q: %w", label, err)
	}
	return bg, nil
}
