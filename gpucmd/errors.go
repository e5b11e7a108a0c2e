package gpucmd

import "errors"

// Compute pass errors.
var (
	// ErrPassEnded is returned when operations are called on an ended
	// compute pass.
	ErrPassEnded = errors.New("gpucmd: compute pass has already ended")

	// ErrNilPipeline is returned when SetPipeline is called with nil.
	ErrNilPipeline = errors.New("gpucmd: compute pipeline is nil")

	// ErrNilBindGroup is returned when SetBindGroup is called with nil.
	ErrNilBindGroup = errors.New("gpucmd: bind group is nil")

	// ErrBindGroupIndexOutOfRange is returned when a bind group index
	// exceeds 1, the highest index SetBindGroup accepts.
	ErrBindGroupIndexOutOfRange = errors.New("gpucmd: bind group index exceeds maximum (1)")

	// ErrNilIndirectBuffer is returned when DispatchWorkgroupsIndirect is
	// called with a nil buffer reference.
	ErrNilIndirectBuffer = errors.New("gpucmd: indirect dispatch buffer address is zero")

	// ErrIndirectOffsetNotAligned is returned when an indirect dispatch
	// offset is not 4-byte aligned.
	ErrIndirectOffsetNotAligned = errors.New("gpucmd: indirect dispatch offset must be 4-byte aligned")
)
