package passes

import (
	"testing"

	"github.com/gogpu/rtxfallback/bvhtypes"
)

func TestMetadataStrideFor(t *testing.T) {
	tests := []struct {
		sceneType SceneType
		want      uint64
	}{
		{Triangles, bvhtypes.SizeofPrimitiveMetaData},
		{BottomLevelBVHs, bvhtypes.SizeofBVHMetadata},
	}
	for _, tt := range tests {
		if got := metadataStrideFor(tt.sceneType); got != tt.want {
			t.Errorf("metadataStrideFor(%v) = %d, want %d", tt.sceneType, got, tt.want)
		}
	}
}

// TestSizeofPrimitiveMetaData_MatchesCompiledStructs pins
// bvhtypes.SizeofPrimitiveMetaData to the exact struct
// shaders/load_primitives.wgsl and shaders/rearrange_primitives.wgsl
// compile: two packed u32 fields (geometry_index, flags), no padding.
// Bind group entries for both shaders' metadata_buffer size hints are
// computed from this constant; if it drifts from what those WGSL
// structs actually declare, every triangle build corrupts the region
// after the metadata array.
func TestSizeofPrimitiveMetaData_MatchesCompiledStructs(t *testing.T) {
	const wantWords = 2 // geometry_index, flags
	const wordSize = 4
	if got, want := uint64(bvhtypes.SizeofPrimitiveMetaData), uint64(wantWords*wordSize); got != want {
		t.Errorf("SizeofPrimitiveMetaData = %d, want %d (2 packed u32 fields)", got, want)
	}
}

// TestSizeofBVHMetadata_MatchesCompiledStructs pins
// bvhtypes.SizeofBVHMetadata to the exact struct
// shaders/load_instances.wgsl and shaders/rearrange_instances.wgsl
// compile: a row-major 3x4 transform padded out to four vec4 rows (64
// bytes), then an instance-fields vec4<u32> (16 bytes), then an
// acceleration-structure-address vec4<u32> (16 bytes). If this drifts
// from what those WGSL structs declare, every TLAS build truncates or
// overflows the instance metadata array.
func TestSizeofBVHMetadata_MatchesCompiledStructs(t *testing.T) {
	const transformRows = 4 // 3 used rows + 1 pad row, vec4<f32> each
	const vec4Size = 16
	const trailingVec4s = 2 // instance fields, acceleration structure address
	want := uint64(transformRows*vec4Size + trailingVec4s*vec4Size)
	if got := uint64(bvhtypes.SizeofBVHMetadata); got != want {
		t.Errorf("SizeofBVHMetadata = %d, want %d (4 vec4 transform rows + 2 trailing vec4s)", got, want)
	}
}
