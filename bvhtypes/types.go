// Package bvhtypes defines the GPU-resident wire types shared by every
// compute pass in the fallback acceleration-structure builder. Field order
// and sizes here are the ABI: shaders on the GPU side and the layout
// calculator on the host side must agree on them byte for byte.
package bvhtypes

// Byte sizes of the fixed-size wire structs. These mirror the C++ structs
// that back the compute shaders (Primitive, PrimitiveMetaData, AABBNode,
// BVHMetadata, HierarchyNode, AABB, BVHOffsets) and must stay in sync with
// the WGSL struct declarations in package passes.
const (
	// SizeofAABB is sizeof(float3 min, float3 max), padded to 16-byte
	// vectors the way a compute shader would lay it out: 2 x float4.
	SizeofAABB = 32

	// SizeofPrimitive is a triangle's three float3 vertices, one float4
	// each for GPU alignment.
	SizeofPrimitive = 48

	// SizeofPrimitiveMetaData carries the geometry index and any per-
	// primitive flags needed to resolve hit attributes at traversal time.
	SizeofPrimitiveMetaData = 8

	// SizeofAABBNode is an interior/leaf node: AABB plus two child
	// indices (leaves encode a leaf flag in the high bit of both).
	SizeofAABBNode = 40

	// SizeofBVHMetadata carries the per-instance transform and the
	// pointer to the referenced bottom-level acceleration structure.
	SizeofBVHMetadata = 96

	// SizeofHierarchyNode carries the two child indices produced by
	// hierarchy construction, before AABBs are known.
	SizeofHierarchyNode = 12

	// SizeofBVHOffsets is the fixed header at the start of every result
	// buffer; see BVHOffsets below.
	SizeofBVHOffsets = 32

	// SizeofUint32 is used pervasively when sizing index/counter arrays.
	SizeofUint32 = 4
)

// AABB is an axis-aligned bounding box stored as two float3s (padded to
// float4 for GPU alignment, hence SizeofAABB == 32).
type AABB struct {
	Min [3]float32
	_   float32
	Max [3]float32
	_   float32
}

// Union returns the smallest AABB containing both a and b.
func (a AABB) Union(b AABB) AABB {
	out := AABB{Min: a.Min, Max: a.Max}
	for i := 0; i < 3; i++ {
		if b.Min[i] < out.Min[i] {
			out.Min[i] = b.Min[i]
		}
		if b.Max[i] > out.Max[i] {
			out.Max[i] = b.Max[i]
		}
	}
	return out
}

// Empty returns an AABB in the "not yet grown" state, ready to be widened
// by repeated Union calls. It matches the identity element a GPU reduction
// pass initializes its accumulator to.
func Empty() AABB {
	const inf = float32(3.402823e+38)
	return AABB{
		Min: [3]float32{inf, inf, inf},
		Max: [3]float32{-inf, -inf, -inf},
	}
}

// Primitive is a single ray-traceable triangle as loaded from a geometry
// description's vertex buffer.
type Primitive struct {
	V0 [3]float32
	_  float32
	V1 [3]float32
	_  float32
	V2 [3]float32
	_  float32
}

// PrimitiveMetaData records which geometry description a triangle came
// from, used to resolve hit-group and shader-table indices at trace time.
type PrimitiveMetaData struct {
	GeometryIndex uint32
	Flags         uint32
}

// AABBNode is an interior or leaf node of the built hierarchy. Leaves are
// distinguished by having the high bit of both child indices set; the
// remaining bits index into the leaf array (primitives for BLAS, instance
// metadata for TLAS).
type AABBNode struct {
	Box                   AABB
	LeftChild, RightChild uint32
}

// LeafFlag marks a child index as pointing into the leaf array rather than
// another AABBNode.
const LeafFlag uint32 = 1 << 31

// BVHMetadata is per-instance data for a top-level acceleration structure:
// the transform placing a bottom-level BVH into the scene, plus the address
// of that bottom-level structure.
type BVHMetadata struct {
	Transform                           [12]float32 // row-major 3x4
	_                                   [4]float32  // pads the transform to four float4 rows
	InstanceID                          uint32
	InstanceMask                        uint32
	InstanceContributionToHitGroupIndex uint32
	Flags                               uint32
	AccelerationStructure               uint64
	_                                   uint64 // pads the last row to a float4
}

// HierarchyNode is the output of ConstructHierarchy: child links plus
// each node's parent index, produced by the linear-BVH build before any
// AABB has been fitted.
type HierarchyNode struct {
	LeftChild, RightChild uint32
	ParentIndex           uint32
}

// BVHOffsets is the fixed header at byte offset 0 of every result buffer.
// It lets a traversal shader locate every other region without recomputing
// N-dependent offsets from scratch.
type BVHOffsets struct {
	NumberOfElements    uint32
	OffsetToBVHMetadata uint32 // 0 for BLAS
	OffsetToPrimitives  uint32 // 0 for TLAS
	TotalSizeInBytes    uint32
	_                   [16]byte // reserved, keeps the header 32 bytes
}

// Align4 rounds n up to the next multiple of 4, matching the ALIGN_GPU_VA_OFFSET
// macro every GPU virtual-address offset in this package is computed with.
func Align4(n uint64) uint64 {
	return (n + 3) &^ 3
}

// NumInternalNodes returns the number of interior nodes in a full binary
// tree over n leaves: n-1 for n >= 1, 0 for n == 0.
func NumInternalNodes(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return n - 1
}

// TotalNumNodes returns n leaves + their internal nodes: 2n-1 for n >= 1.
func TotalNumNodes(n uint32) uint32 {
	return n + NumInternalNodes(n)
}
