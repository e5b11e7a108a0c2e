package gpucmd

import (
	"fmt"
	"sync"

	"github.com/gogpu/wgpu/hal"
)

// PassState is the lifecycle state of a ComputePass.
type PassState int

const (
	// PassStateRecording means the pass is actively recording commands.
	PassStateRecording PassState = iota

	// PassStateEnded means the pass has been ended and can record no
	// further commands.
	PassStateEnded
)

// String returns the state's name.
func (s PassState) String() string {
	switch s {
	case PassStateRecording:
		return "Recording"
	case PassStateEnded:
		return "Ended"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// ComputePass is the abstract GPU command recorder the build orchestrator
// is specified against: it exposes exactly the operations a pass
// collaborator needs (bind a pipeline, bind resources, dispatch, dispatch
// indirect) without exposing the rest of a full command encoder's
// surface. It wraps hal.ComputePassEncoder the way gogpu-gg's compute
// stages (vello_compute.go, sdf_gpu.go) drive their own pipelines.
//
// ComputePass is NOT safe for concurrent use; every pass collaborator in
// a single Build call records onto it from one goroutine, matching the
// single-threaded orchestration model in the root package.
type ComputePass struct {
	mu sync.Mutex

	hal   hal.ComputePassEncoder
	state PassState

	currentPipeline hal.ComputePipeline
	dispatchCount   uint32
}

// NewComputePass wraps an already-begun HAL compute pass encoder. Passing
// nil is valid and produces a pass that only tracks state locally,
// useful in tests that don't stand up a real GPU backend.
func NewComputePass(pass hal.ComputePassEncoder) *ComputePass {
	return &ComputePass{hal: pass, state: PassStateRecording}
}

// State returns the current lifecycle state.
func (p *ComputePass) State() PassState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *ComputePass) checkRecording() error {
	if p.state != PassStateRecording {
		return ErrPassEnded
	}
	return nil
}

// SetPipeline binds the compute pipeline used by subsequent dispatches.
func (p *ComputePass) SetPipeline(pipeline hal.ComputePipeline) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkRecording(); err != nil {
		return fmt.Errorf("gpucmd: set pipeline: %w", err)
	}
	if pipeline == nil {
		return ErrNilPipeline
	}

	p.currentPipeline = pipeline
	if p.hal != nil {
		p.hal.SetPipeline(pipeline)
	}
	return nil
}

// SetBindGroup binds resources for the given group index. Indices 0 and 1
// are accepted; the passes in this module bind all of their resources at
// group 0 and never bind group 1.
func (p *ComputePass) SetBindGroup(index uint32, bindGroup hal.BindGroup) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkRecording(); err != nil {
		return fmt.Errorf("gpucmd: set bind group: %w", err)
	}
	if index > 1 {
		return fmt.Errorf("%w: index %d", ErrBindGroupIndexOutOfRange, index)
	}
	if bindGroup == nil {
		return ErrNilBindGroup
	}
	if p.hal != nil {
		p.hal.SetBindGroup(index, bindGroup, nil)
	}
	return nil
}

// DispatchWorkgroups records a direct compute dispatch.
func (p *ComputePass) DispatchWorkgroups(x, y, z uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkRecording(); err != nil {
		return fmt.Errorf("gpucmd: dispatch workgroups: %w", err)
	}
	p.dispatchCount++
	if p.hal != nil {
		p.hal.Dispatch(x, y, z)
	}
	return nil
}

// DispatchWorkgroupsIndirect validates an indirect dispatch (non-zero
// buffer address, 4-byte aligned offset) and counts it. It does not
// forward the dispatch to the underlying hal encoder, and no pass in this
// module calls it.
func (p *ComputePass) DispatchWorkgroupsIndirect(indirectBuffer GPUAddress, indirectOffset uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkRecording(); err != nil {
		return fmt.Errorf("gpucmd: dispatch workgroups indirect: %w", err)
	}
	if indirectBuffer.IsZero() {
		return ErrNilIndirectBuffer
	}
	if indirectOffset%4 != 0 {
		return fmt.Errorf("%w: offset %d", ErrIndirectOffsetNotAligned, indirectOffset)
	}
	p.dispatchCount++
	return nil
}

// End completes the pass. Idempotent, matching the corpus's convention
// for lifecycle-ending calls.
func (p *ComputePass) End() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == PassStateEnded {
		return nil
	}
	p.state = PassStateEnded

	if p.hal != nil {
		p.hal.End()
	}
	return nil
}

// DispatchCount returns the number of dispatch calls recorded so far,
// useful for tests asserting a pass emitted the expected shape of work
// without a real GPU backend.
func (p *ComputePass) DispatchCount() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dispatchCount
}

// CommandRecorder is the abstract command list the builder receives from
// its caller: it can begin one compute pass at a time. This mirrors
// hal.CommandEncoder without exposing the render-pass or copy-command
// surface a full command encoder also has, since the orchestrator only
// ever records compute work plus buffer-to-buffer copies for Copy.
type CommandRecorder struct {
	hal hal.CommandEncoder
}

// NewCommandRecorder wraps a HAL command encoder that has already had
// BeginEncoding called on it.
func NewCommandRecorder(encoder hal.CommandEncoder) *CommandRecorder {
	return &CommandRecorder{hal: encoder}
}

// BeginComputePass starts a new compute pass on the underlying command
// encoder.
func (r *CommandRecorder) BeginComputePass(label string) *ComputePass {
	if r.hal == nil {
		return NewComputePass(nil)
	}
	pass := r.hal.BeginComputePass(&hal.ComputePassDescriptor{Label: label})
	return NewComputePass(pass)
}

// CopyBufferToBuffer records a byte-range copy, used by the Copy entry
// point to clone or compact an acceleration structure.
func (r *CommandRecorder) CopyBufferToBuffer(src, dst hal.Buffer, size uint64) {
	if r.hal == nil {
		return
	}
	r.hal.CopyBufferToBuffer(src, dst, []hal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: size}})
}
