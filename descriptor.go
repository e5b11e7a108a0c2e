package rtxfallback

import (
	"github.com/gogpu/rtxfallback/gpucmd"
	"github.com/gogpu/rtxfallback/passes"
)

// Level distinguishes a bottom-level (triangle/BVH-leaf) build from a
// top-level (instance) build.
type Level int

const (
	BottomLevel Level = iota
	TopLevel
)

func (l Level) String() string {
	if l == TopLevel {
		return "TopLevel"
	}
	return "BottomLevel"
}

// valid reports whether l is one of the two build types this package
// implements. The original's D3D12_RAYTRACING_ACCELERATION_STRUCTURE_TYPE
// switch throws E_INVALIDARG on any value outside its enum; Level being
// a plain int rather than a closed sum type means callers can construct
// an out-of-range value, so PrebuildInfo and Build must check this
// explicitly before deriving N or a layout.Level from it.
func (l Level) valid() bool {
	return l == BottomLevel || l == TopLevel
}

// GeometryDesc re-exports passes.GeometryDesc so callers building a
// BuildDescriptor don't need to import the passes package directly.
type GeometryDesc = passes.GeometryDesc

// BuildFlags is a bit set of the caller's requested build behavior.
type BuildFlags uint32

const (
	AllowUpdate BuildFlags = 1 << iota
	PerformUpdate
	PreferFastTrace
	PreferFastBuild
	MinimizeMemory
	AllowCompaction
)

func (f BuildFlags) has(bit BuildFlags) bool {
	return f&bit != 0
}

// BuildDescriptor is the caller-supplied, immutable-during-a-build
// description of what to build and where.
type BuildDescriptor struct {
	Type        Level
	Flags       BuildFlags
	DescsLayout passes.DescsLayout

	// NumDescs is the instance count for a TopLevel build. It is
	// ignored for BottomLevel, where the element count is derived from
	// Geometry instead.
	NumDescs uint32

	// Geometry is used only when Type == BottomLevel.
	Geometry []passes.GeometryDesc

	// InstanceDescs is used only when Type == TopLevel.
	InstanceDescs  gpucmd.GPUAddress
	DescriptorHeap gpucmd.DescriptorHeapRef
	DestRange      gpucmd.BufferRange
	ScratchRange   gpucmd.BufferRange
}

// sceneType returns the element kind this descriptor loads, which
// determines whether TreeletReorder runs.
func (d BuildDescriptor) sceneType() passes.SceneType {
	if d.Type == TopLevel {
		return passes.BottomLevelBVHs
	}
	return passes.Triangles
}

// numElements returns N: the summed triangle count for a BottomLevel
// build, or NumDescs for a TopLevel build.
func (d BuildDescriptor) numElements() uint32 {
	if d.Type == TopLevel {
		return d.NumDescs
	}
	var total uint32
	for _, g := range d.Geometry {
		total += g.TriangleCount()
	}
	return total
}

// PrebuildInfoResult reports the sizes a caller must allocate before
// calling Build.
type PrebuildInfoResult struct {
	ResultDataMaxSizeInBytes     uint64
	ScratchDataSizeInBytes       uint64
	UpdateScratchDataSizeInBytes uint64
}
