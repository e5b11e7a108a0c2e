// Package rtxfallback implements the compute-shader fallback path for
// building ray-tracing acceleration structures on GPUs that lack native
// hardware ray tracing.
//
// # Overview
//
// rtxfallback emulates the driver-level acceleration-structure build API
// (GetRaytracingAccelerationStructurePrebuildInfo /
// BuildRaytracingAccelerationStructure / CopyRaytracingAccelerationStructure /
// EmitRaytracingAccelerationStructurePostBuildInfo) on top of a generic
// compute-capable GPU. It does so by sequencing a fixed chain of compute
// passes — scene-AABB reduction, Morton code generation, sort, rearrange,
// hierarchy construction, treelet reorder and AABB refit — that together
// produce a two-level bounding volume hierarchy (BVH2) resident in GPU
// memory and suitable for ray traversal.
//
// # Quick Start
//
//	b, err := rtxfallback.NewBuilder(device, rtxfallback.BuilderConfig{})
//
//	info, err := b.PrebuildInfo(rtxfallback.BuildDescriptor{
//		Type:     rtxfallback.BottomLevel,
//		Geometry: []rtxfallback.GeometryDesc{tri},
//	})
//
//	pass := recorder.BeginComputePass("build_bvh")
//	err = b.Build(pass, desc)
//
// # Architecture
//
//   - bvhtypes: GPU-resident wire types shared by every pass (AABB, Primitive,
//     AABBNode, HierarchyNode, BVHOffsets, ...).
//   - layout: pure arithmetic that turns a {level, N} pair into scratch and
//     result byte offsets.
//   - gpucmd: the abstract GPU command recorder the orchestrator is specified
//     against (compute passes, bind groups, dispatches; it has no explicit
//     barrier call).
//   - passes: the pass collaborators (contracts only — the shader algorithms
//     themselves are treated as black boxes).
//   - the root package: the build orchestrator itself (Builder).
//
// # Non-goals
//
// This package does not execute any of the algorithms on the host, does not
// create GPU devices, and does not expose a host-facing binding surface
// beyond the four entry points above.
package rtxfallback

// Version information for the fallback builder.
const (
	// Version is the current version of the library.
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version.
	VersionMajor = 0

	// VersionMinor is the minor version.
	VersionMinor = 1

	// VersionPatch is the patch version.
	VersionPatch = 0
)
