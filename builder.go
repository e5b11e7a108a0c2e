package rtxfallback

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/rtxfallback/gpucmd"
	"github.com/gogpu/rtxfallback/layout"
	"github.com/gogpu/rtxfallback/passes"
)

// BuilderConfig configures a Builder. The zero value is valid; DebugValidation
// defaults to off, matching the original's DEBUG-only prebuild-size checks
// being compiled out of release builds.
type BuilderConfig struct {
	// DebugValidation, when true, makes Build verify the caller's
	// destination and scratch ranges against PrebuildInfo before
	// recording any commands.
	DebugValidation bool

	// Passes overrides the default pass collaborators, letting tests
	// substitute fakes that record calls instead of touching a GPU.
	// Any field left nil falls back to a GPU-backed implementation
	// built from the Device passed to NewBuilder.
	Passes PassSet
}

// PassSet is the full set of pass collaborators a Builder drives.
// Exported so callers can substitute individual passes in tests without
// depending on this package's unexported wiring.
type PassSet struct {
	LoadInstances      passes.LoadInstancesPass
	LoadPrimitives     passes.LoadPrimitivesPass
	SceneAABB          passes.SceneAABBPass
	MortonCode         passes.MortonCodePass
	Sort               passes.SortPass
	Rearrange          passes.RearrangePass
	ConstructHierarchy passes.ConstructHierarchyPass
	TreeletReorder     passes.TreeletReorderPass
	ConstructAABB      passes.ConstructAABBPass
	Copy               passes.CopyPass
	PostBuildInfo      passes.PostBuildInfoPass
}

// Builder is the GPU-driven BVH2 build orchestrator. It owns one
// instance of each pass collaborator and the single piece of state that
// survives across calls: updateAllowed, latched by the most recent
// PrebuildInfo call and guarded by mu so PrebuildInfo and Build may be
// called from different goroutines serially without a data race.
type Builder struct {
	mu            sync.Mutex
	updateAllowed bool

	passes PassSet
	cfg    BuilderConfig
}

// NewBuilder constructs a Builder backed by device's compute pipelines,
// applying any pass overrides from cfg.Passes. Passes left nil in
// cfg.Passes are built from device.
func NewBuilder(device gpucmd.Device, cfg BuilderConfig) (*Builder, error) {
	b := &Builder{cfg: cfg, passes: cfg.Passes}

	if b.passes.SceneAABB == nil {
		p, err := passes.NewGPUSceneAABBPass(device)
		if err != nil {
			return nil, fmt.Errorf("rtxfallback: new builder: %w", err)
		}
		b.passes.SceneAABB = p
	}
	if b.passes.MortonCode == nil {
		p, err := passes.NewGPUMortonCodePass(device)
		if err != nil {
			return nil, fmt.Errorf("rtxfallback: new builder: %w", err)
		}
		b.passes.MortonCode = p
	}
	if b.passes.Sort == nil {
		p, err := passes.NewGPUSortPass(device)
		if err != nil {
			return nil, fmt.Errorf("rtxfallback: new builder: %w", err)
		}
		b.passes.Sort = p
	}
	if b.passes.Rearrange == nil {
		p, err := passes.NewGPURearrangePass(device)
		if err != nil {
			return nil, fmt.Errorf("rtxfallback: new builder: %w", err)
		}
		b.passes.Rearrange = p
	}
	if b.passes.ConstructHierarchy == nil {
		p, err := passes.NewGPUConstructHierarchyPass(device)
		if err != nil {
			return nil, fmt.Errorf("rtxfallback: new builder: %w", err)
		}
		b.passes.ConstructHierarchy = p
	}
	if b.passes.TreeletReorder == nil {
		p, err := passes.NewGPUTreeletReorderPass(device)
		if err != nil {
			return nil, fmt.Errorf("rtxfallback: new builder: %w", err)
		}
		b.passes.TreeletReorder = p
	}
	if b.passes.ConstructAABB == nil {
		p, err := passes.NewGPUConstructAABBPass(device)
		if err != nil {
			return nil, fmt.Errorf("rtxfallback: new builder: %w", err)
		}
		b.passes.ConstructAABB = p
	}
	if b.passes.LoadInstances == nil {
		p, err := passes.NewGPULoadInstancesPass(device)
		if err != nil {
			return nil, fmt.Errorf("rtxfallback: new builder: %w", err)
		}
		b.passes.LoadInstances = p
	}
	if b.passes.LoadPrimitives == nil {
		p, err := passes.NewGPULoadPrimitivesPass(device)
		if err != nil {
			return nil, fmt.Errorf("rtxfallback: new builder: %w", err)
		}
		b.passes.LoadPrimitives = p
	}
	if b.passes.Copy == nil {
		p, err := passes.NewGPUCopyPass(device)
		if err != nil {
			return nil, fmt.Errorf("rtxfallback: new builder: %w", err)
		}
		b.passes.Copy = p
	}
	if b.passes.PostBuildInfo == nil {
		p, err := passes.NewGPUPostBuildInfoPass(device)
		if err != nil {
			return nil, fmt.Errorf("rtxfallback: new builder: %w", err)
		}
		b.passes.PostBuildInfo = p
	}

	return b, nil
}

func toLayoutLevel(l Level) layout.Level {
	if l == TopLevel {
		return layout.Top
	}
	return layout.Bottom
}

// PrebuildInfo reports the scratch/result sizes a build of desc requires
// and latches updateAllowed for the subsequent Build call. UpdateScratch
// is always reported as 0: this implementation has no separate
// update-scratch memory region.
func (b *Builder) PrebuildInfo(desc BuildDescriptor) (PrebuildInfoResult, error) {
	if !desc.Type.valid() {
		return PrebuildInfoResult{}, fmt.Errorf("rtxfallback: prebuild info: %w: unknown build type %d", ErrInvalidArgument, desc.Type)
	}

	level := toLayoutLevel(desc.Type)
	n := desc.numElements()
	allowUpdate := desc.Flags.has(AllowUpdate)

	b.mu.Lock()
	b.updateAllowed = allowUpdate
	b.mu.Unlock()

	Logger().Info("rtxfallback: prebuild latched",
		"type", desc.Type.String(), "numElements", n, "allowUpdate", allowUpdate)

	return PrebuildInfoResult{
		ResultDataMaxSizeInBytes:     layout.ResultDataMaxSizeInBytes(level, n, allowUpdate),
		ScratchDataSizeInBytes:       layout.ScratchDataSizeInBytes(level, n),
		UpdateScratchDataSizeInBytes: 0,
	}, nil
}

// Build records the compute passes that produce a BVH2 for desc onto
// pass. It performs no host-GPU synchronization and spawns no
// goroutines; every call is a linear sequence of recording calls.
func (b *Builder) Build(pass *gpucmd.ComputePass, desc BuildDescriptor) error {
	if desc.DestRange.Address.IsZero() {
		return fmt.Errorf("rtxfallback: build: %w: nil destination address", ErrInvalidArgument)
	}
	if !desc.Type.valid() {
		return fmt.Errorf("rtxfallback: build: %w: unknown build type %d", ErrInvalidArgument, desc.Type)
	}

	level := toLayoutLevel(desc.Type)
	n := desc.numElements()

	b.mu.Lock()
	allowUpdate := b.updateAllowed
	b.mu.Unlock()

	if b.cfg.DebugValidation {
		resultNeeded := layout.ResultDataMaxSizeInBytes(level, n, allowUpdate)
		scratchNeeded := layout.ScratchDataSizeInBytes(level, n)
		if !desc.DestRange.Contains(resultNeeded) {
			return fmt.Errorf("rtxfallback: build: %w: dest range %d bytes smaller than required %d",
				ErrInvalidArgument, desc.DestRange.SizeInBytes, resultNeeded)
		}
		if !desc.ScratchRange.Contains(scratchNeeded) {
			return fmt.Errorf("rtxfallback: build: %w: scratch range %d bytes smaller than required %d",
				ErrInvalidArgument, desc.ScratchRange.SizeInBytes, scratchNeeded)
		}
	}

	performUpdate := allowUpdate && desc.Flags.has(PerformUpdate)
	if desc.Flags.has(PerformUpdate) && !allowUpdate {
		Logger().Warn("rtxfallback: PerformUpdate requested without a prior AllowUpdate latch; downgrading to rebuild")
	}

	street := resolveBuildStreet(level, n, allowUpdate, desc.ScratchRange.Address, desc.DestRange.Address)
	Logger().Debug("rtxfallback: layout resolved",
		"type", desc.Type.String(), "numElements", n, "performUpdate", performUpdate,
		"scratchTotal", street.partition.TotalSize)

	if err := b.loadElements(pass, desc, street, performUpdate); err != nil {
		return err
	}

	// An empty build has no elements to sort or link; only the refit
	// pass runs after loading.
	if !performUpdate && n > 0 {
		if err := b.buildHierarchy(pass, desc, street); err != nil {
			return err
		}
	}

	if err := b.passes.ConstructAABB.ConstructAABB(
		pass,
		desc.sceneType(),
		street.resultHeader,
		street.dispatchArgs,
		street.perNodeCounter,
		street.hierarchy,
		street.resultParents,
		desc.DescriptorHeap,
		n,
	); err != nil {
		return fmt.Errorf("rtxfallback: build: construct aabb: %w", err)
	}

	return nil
}

// loadElements loads leaf records into the output buffers (under
// update) or scratch buffers (full rebuild), then reduces them to a
// scene AABB. A BLAS update build also reseeds the saved sorted-index
// buffer with the identity permutation so a later rebuild can
// regenerate Rearrange's output.
func (b *Builder) loadElements(pass *gpucmd.ComputePass, desc BuildDescriptor, street buildStreet, performUpdate bool) error {
	elementBuffer := street.scratchElements
	metadataBuffer := street.scratchMetadata
	indexBuffer := street.indexBuffer
	if performUpdate {
		elementBuffer = street.resultLeafAABBs
		metadataBuffer = street.resultMetadata
		indexBuffer = street.resultSortedIndices
	}

	if desc.Type == TopLevel {
		if err := b.passes.LoadInstances.LoadInstances(
			pass, elementBuffer, metadataBuffer, desc.InstanceDescs, desc.DescsLayout, street.n, desc.DescriptorHeap, indexBuffer,
		); err != nil {
			return fmt.Errorf("rtxfallback: build: load instances: %w", err)
		}
	} else {
		// Under a BLAS update, LoadPrimitives writes straight into the
		// result buffer's leaf slots and reseeds indexBuffer (here
		// street.resultSortedIndices) with the identity permutation in
		// the same dispatch, so a later rebuild can regenerate
		// Rearrange's output from scratch.
		if err := b.passes.LoadPrimitives.LoadPrimitives(
			pass, desc.Geometry, street.n, elementBuffer, metadataBuffer, indexBuffer,
		); err != nil {
			return fmt.Errorf("rtxfallback: build: load primitives: %w", err)
		}
	}

	if err := b.passes.SceneAABB.CalculateSceneAABB(
		pass, desc.sceneType(), elementBuffer, street.n, street.sceneAABBScratch, street.sceneAABB,
	); err != nil {
		return fmt.Errorf("rtxfallback: build: scene aabb: %w", err)
	}
	return nil
}

// buildHierarchy runs the rebuild-only phase: Morton codes, sort,
// rearrange, hierarchy construction, and — for triangle scenes —
// treelet reorder.
func (b *Builder) buildHierarchy(pass *gpucmd.ComputePass, desc BuildDescriptor, street buildStreet) error {
	sceneType := desc.sceneType()

	if err := b.passes.MortonCode.CalculateMortonCodes(
		pass, sceneType, street.scratchElements, street.n, street.sceneAABB, street.indexBuffer, street.mortonCodes,
	); err != nil {
		return fmt.Errorf("rtxfallback: build: morton codes: %w", err)
	}

	if err := b.passes.Sort.Sort(pass, street.mortonCodes, street.indexBuffer, street.n, true, true); err != nil {
		return fmt.Errorf("rtxfallback: build: sort: %w", err)
	}

	savedSortedIndices := gpucmd.GPUAddress(0)
	if street.allowUpdate {
		savedSortedIndices = street.resultSortedIndices
	}
	if err := b.passes.Rearrange.Rearrange(
		pass, sceneType, street.n,
		street.scratchElements, street.scratchMetadata, street.indexBuffer,
		street.resultLeafAABBs, street.resultMetadata, savedSortedIndices,
	); err != nil {
		return fmt.Errorf("rtxfallback: build: rearrange: %w", err)
	}

	savedParents := gpucmd.GPUAddress(0)
	if street.allowUpdate {
		savedParents = street.resultParents
	}
	if err := b.passes.ConstructHierarchy.ConstructHierarchy(
		pass, sceneType, street.mortonCodes, street.hierarchy, savedParents, desc.DescriptorHeap, street.n,
	); err != nil {
		return fmt.Errorf("rtxfallback: build: construct hierarchy: %w", err)
	}

	if sceneType == passes.Triangles {
		if err := b.passes.TreeletReorder.Optimize(
			pass, street.n, street.hierarchy, street.resultParents, street.perNodeCounter,
			street.sceneAABBScratch, street.resultLeafAABBs, desc.DescriptorHeap, 0,
		); err != nil {
			return fmt.Errorf("rtxfallback: build: treelet reorder: %w", err)
		}
	}

	return nil
}

// CopyMode selects the semantics of a Copy call; it re-exports
// passes.CopyMode so callers don't need to import the passes package
// for this one type.
type CopyMode = passes.CopyMode

const (
	Clone   = passes.Clone
	Compact = passes.Compact
)

// Copy clones or compacts a previously built acceleration structure.
// context.Context is threaded through for consistency with the rest of
// the corpus's convention of context-bearing public entry points, even
// though this call performs no blocking I/O of its own.
func (b *Builder) Copy(ctx context.Context, pass *gpucmd.ComputePass, dest gpucmd.BufferRange, src gpucmd.GPUAddress, mode CopyMode) error {
	if mode != Clone && mode != Compact {
		return fmt.Errorf("rtxfallback: copy: %w: unsupported mode %v", ErrInvalidArgument, mode)
	}
	if err := b.passes.Copy.CopyRaytracingAccelerationStructure(pass, dest, src, mode); err != nil {
		return fmt.Errorf("rtxfallback: copy: %w", err)
	}
	return nil
}

// EmitPostBuildInfo reads the compacted size of every source structure
// and writes it into dest.
func (b *Builder) EmitPostBuildInfo(ctx context.Context, pass *gpucmd.ComputePass, dest gpucmd.BufferRange, sources []gpucmd.GPUAddress) error {
	if err := b.passes.PostBuildInfo.GetCompactedBVHSizes(pass, dest, sources); err != nil {
		return fmt.Errorf("rtxfallback: emit postbuild info: %w", err)
	}
	return nil
}
