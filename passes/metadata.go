package passes

import "github.com/gogpu/rtxfallback/bvhtypes"

// metadataStrideFor returns the per-element byte size of the metadata
// record a scene type carries: bvhtypes.SizeofPrimitiveMetaData for
// triangle (bottom-level) scenes, bvhtypes.SizeofBVHMetadata for
// instance (top-level) scenes. Rearrange's binding-size hints and the
// compiled WGSL struct each scene type's shader declares must all agree
// with this value, or a build silently truncates or overflows metadata
// records.
func metadataStrideFor(sceneType SceneType) uint64 {
	if sceneType == BottomLevelBVHs {
		return bvhtypes.SizeofBVHMetadata
	}
	return bvhtypes.SizeofPrimitiveMetaData
}
