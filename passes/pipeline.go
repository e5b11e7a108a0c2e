package passes

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rtxfallback/gpucmd"
	"github.com/gogpu/wgpu/hal"
)

// storageEntry returns a bind group layout entry for a read-write
// storage buffer at the given binding, visible to the compute stage
// only. Every pass in this package binds its buffers this way; UAVs in
// the original HLSL contract are RWByteAddressBuffer/RWStructuredBuffer,
// both of which map onto WGSL storage,read_write bindings.
func storageEntry(binding uint32) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageCompute,
		Buffer: &gputypes.BufferBindingLayout{
			Type: gputypes.BufferBindingTypeStorage,
		},
	}
}

// readOnlyStorageEntry is storageEntry's read-only counterpart, used for
// buffers a pass only ever reads (e.g. geometry descriptors).
func readOnlyStorageEntry(binding uint32) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageCompute,
		Buffer: &gputypes.BufferBindingLayout{
			Type: gputypes.BufferBindingTypeReadOnlyStorage,
		},
	}
}

// uniformEntry is a small constant-buffer binding, used for each pass's
// constants block (InputConstants {numberOfElements, performUpdate} for
// most passes; sort, copy, post-build info and load_primitives use their
// own layouts).
func uniformEntry(binding uint32, minSize uint64) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageCompute,
		Buffer: &gputypes.BufferBindingLayout{
			Type:           gputypes.BufferBindingTypeUniform,
			MinBindingSize: minSize,
		},
	}
}

// workgroupCount1D returns the number of workgroups needed to cover n
// elements with a compute shader whose declared local_size_x is
// groupSize, i.e. ceil(n / groupSize), never less than 1 so a dispatch
// with n == 0 is still safe on backends that treat 0 workgroups as
// undefined rather than a no-op.
func workgroupCount1D(n uint32, groupSize uint32) uint32 {
	if n == 0 {
		return 1
	}
	return (n + groupSize - 1) / groupSize
}

// packConstants little-endian encodes words the way naga's WGSL target
// lays out a uniform block of u32 fields.
func packConstants(words ...uint32) []byte {
	packed := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(packed[i*4:], w)
	}
	return packed
}

// pipelineHandle bundles the device objects every pass needs to bind and
// dispatch its shader: the pipeline, the bind group layout it was built
// against, the device that will create per-dispatch bind groups, and a
// small uniform buffer rewritten with each dispatch's InputConstants
// block before binding.
type pipelineHandle struct {
	pipeline     hal.ComputePipeline
	layout       hal.BindGroupLayout
	device       gpucmd.Device
	constants    hal.Buffer
	constantsBnd uint32
}

// newPipelineHandle builds a pipeline, its bind group layout, and the
// small uniform buffer its trailing constants entry binds to constantsBnd.
func newPipelineHandle(device gpucmd.Device, label, entryPoint, wgsl string, entries []gputypes.BindGroupLayoutEntry, constantsBnd uint32, constantsWords int) (pipelineHandle, error) {
	pipeline, layout, err := gpucmd.BuildComputePipeline(device, label, entryPoint, wgsl, entries)
	if err != nil {
		return pipelineHandle{}, err
	}
	constants, err := gpucmd.NewConstantsBuffer(device, label, constantsWords)
	if err != nil {
		return pipelineHandle{}, err
	}
	return pipelineHandle{
		pipeline:     pipeline,
		layout:       layout,
		device:       device,
		constants:    constants,
		constantsBnd: constantsBnd,
	}, nil
}

// bindAndDispatch writes constantsWords into this handle's uniform
// buffer, sets the pipeline, creates a bind group from storageBindings
// plus the constants buffer against its layout, attaches it at group 0,
// and records one dispatch of (x, y, z) workgroups. Every pass in this
// package routes its dispatches through this one call so a pass's
// parameters actually reach the shader instead of being bound against
// whatever was left over from the previous dispatch.
func (h pipelineHandle) bindAndDispatch(pass *gpucmd.ComputePass, label string, storageBindings []gpucmd.Binding, constantsWords []uint32, x, y, z uint32) error {
	if err := pass.SetPipeline(h.pipeline); err != nil {
		return fmt.Errorf("passes: %s: %w", label, err)
	}

	h.device.WriteBuffer(h.constants, 0, packConstants(constantsWords...))
	bindings := append(storageBindings, gpucmd.Binding{
		Slot:    h.constantsBnd,
		Address: gpucmd.GPUAddress(h.constants.NativeHandle()),
		Size:    uint64(len(constantsWords)) * 4,
	})

	bg, err := gpucmd.CreateBindGroup(h.device, label, h.layout, bindings)
	if err != nil {
		return fmt.Errorf("passes: %s: %w", label, err)
	}
	if err := pass.SetBindGroup(0, bg); err != nil {
		return fmt.Errorf("passes: %s: %w", label, err)
	}
	if err := pass.DispatchWorkgroups(x, y, z); err != nil {
		return fmt.Errorf("passes: %s dispatch: %w", label, err)
	}
	return nil
}
