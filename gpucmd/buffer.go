// Package gpucmd is the abstract GPU command recorder the build
// orchestrator is specified against: compute passes, bind groups,
// dispatches, and the address/range arithmetic that ties scratch and
// result buffers to concrete GPU virtual addresses. It wraps the hal
// layer of github.com/gogpu/wgpu (hal.Device, hal.ComputePassEncoder).
package gpucmd

// GPUAddress is an opaque GPU virtual address, analogous to
// D3D12_GPU_VIRTUAL_ADDRESS: an address of zero is never valid.
type GPUAddress uint64

// Add returns the address offset by n bytes.
func (a GPUAddress) Add(n uint64) GPUAddress {
	return a + GPUAddress(n)
}

// IsZero reports whether the address is the null address.
func (a GPUAddress) IsZero() bool {
	return a == 0
}

// BufferRange describes a GPU-visible byte range: a base address and a
// size, exactly the shape of D3D12_GPU_VIRTUAL_ADDRESS_RANGE and the
// scratch/dest ranges a build descriptor carries.
type BufferRange struct {
	Address     GPUAddress
	SizeInBytes uint64
}

// Contains reports whether the range is large enough to hold n bytes
// starting at its base address.
func (r BufferRange) Contains(n uint64) bool {
	return r.SizeInBytes >= n
}

// DescriptorHeapRef is a handle to the global descriptor heap a build
// passes to instance-loading and hierarchy-construction passes so they
// can index arbitrary geometry buffers through an unbounded UAV array.
// Device-object creation for the heap itself is out of scope for this
// package; DescriptorHeapRef only carries the GPU-visible start handle.
type DescriptorHeapRef struct {
	GPUHandle uint64
}

// IsZero reports whether the heap reference is unset. TLAS builds
// require a non-zero heap; BLAS builds do not use one.
func (h DescriptorHeapRef) IsZero() bool {
	return h.GPUHandle == 0
}
