package gpucmd

import (
	"errors"
	"testing"
)

func TestComputePass_DispatchTracksCount(t *testing.T) {
	p := NewComputePass(nil)

	for i := 0; i < 3; i++ {
		if err := p.DispatchWorkgroups(1, 1, 1); err != nil {
			t.Fatalf("DispatchWorkgroups: %v", err)
		}
	}
	if got := p.DispatchCount(); got != 3 {
		t.Errorf("DispatchCount() = %d, want 3", got)
	}
}

func TestComputePass_EndIsIdempotent(t *testing.T) {
	p := NewComputePass(nil)
	if err := p.End(); err != nil {
		t.Fatalf("first End(): %v", err)
	}
	if err := p.End(); err != nil {
		t.Fatalf("second End() should be a no-op, got: %v", err)
	}
	if p.State() != PassStateEnded {
		t.Errorf("State() = %v, want Ended", p.State())
	}
}

func TestComputePass_OperationsAfterEndFail(t *testing.T) {
	p := NewComputePass(nil)
	_ = p.End()

	if err := p.DispatchWorkgroups(1, 1, 1); !errors.Is(err, ErrPassEnded) {
		t.Errorf("DispatchWorkgroups after End: got %v, want ErrPassEnded", err)
	}
	if err := p.SetBindGroup(0, nil); !errors.Is(err, ErrPassEnded) {
		t.Errorf("SetBindGroup after End: got %v, want ErrPassEnded", err)
	}
}

func TestComputePass_SetPipelineRejectsNil(t *testing.T) {
	p := NewComputePass(nil)
	if err := p.SetPipeline(nil); !errors.Is(err, ErrNilPipeline) {
		t.Errorf("SetPipeline(nil): got %v, want ErrNilPipeline", err)
	}
}

func TestComputePass_SetBindGroupValidatesIndex(t *testing.T) {
	p := NewComputePass(nil)
	if err := p.SetBindGroup(2, nil); !errors.Is(err, ErrBindGroupIndexOutOfRange) {
		t.Errorf("SetBindGroup(2, nil): got %v, want ErrBindGroupIndexOutOfRange", err)
	}
}

func TestComputePass_DispatchIndirectValidatesAlignment(t *testing.T) {
	p := NewComputePass(nil)
	if err := p.DispatchWorkgroupsIndirect(GPUAddress(0x1000), 1); !errors.Is(err, ErrIndirectOffsetNotAligned) {
		t.Errorf("misaligned offset: got %v, want ErrIndirectOffsetNotAligned", err)
	}
	if err := p.DispatchWorkgroupsIndirect(0, 0); !errors.Is(err, ErrNilIndirectBuffer) {
		t.Errorf("zero buffer: got %v, want ErrNilIndirectBuffer", err)
	}
	if err := p.DispatchWorkgroupsIndirect(GPUAddress(0x1000), 4); err != nil {
		t.Errorf("aligned dispatch should succeed: %v", err)
	}
}

func TestGPUAddress_AddAndIsZero(t *testing.T) {
	var zero GPUAddress
	if !zero.IsZero() {
		t.Error("zero value should report IsZero() == true")
	}

	base := GPUAddress(0x2000)
	got := base.Add(0x40)
	if got != GPUAddress(0x2040) {
		t.Errorf("Add() = %#x, want %#x", got, 0x2040)
	}
}

func TestBufferRange_Contains(t *testing.T) {
	r := BufferRange{Address: 0x1000, SizeInBytes: 256}
	if !r.Contains(256) {
		t.Error("range of 256 bytes should contain a request for exactly 256 bytes")
	}
	if r.Contains(257) {
		t.Error("range of 256 bytes should not contain a request for 257 bytes")
	}
}
