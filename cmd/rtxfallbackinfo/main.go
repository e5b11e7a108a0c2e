// Command rtxfallbackinfo prints the scratch and result buffer sizes a
// BVH2 build of the given shape would require, without touching a GPU.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/gogpu/rtxfallback/layout"
)

func main() {
	var (
		level       = flag.String("level", "bottom", "acceleration structure level: bottom or top")
		numElements = flag.Uint("n", 0, "leaf element count (triangles for bottom, instances for top)")
		allowUpdate = flag.Bool("allow-update", false, "include the persisted update arrays in the result size")
	)
	flag.Parse()

	var lvl layout.Level
	switch *level {
	case "bottom":
		lvl = layout.Bottom
	case "top":
		lvl = layout.Top
	default:
		log.Fatalf("unknown level %q: want bottom or top", *level)
	}

	n := uint32(*numElements)
	scratch := layout.ScratchDataSizeInBytes(lvl, n)
	result := layout.ResultDataMaxSizeInBytes(lvl, n, *allowUpdate)

	fmt.Printf("level:                %s\n", lvl)
	fmt.Printf("numElements:          %d\n", n)
	fmt.Printf("allowUpdate:          %t\n", *allowUpdate)
	fmt.Printf("scratchDataSize:      %d bytes\n", scratch)
	fmt.Printf("resultDataMaxSize:    %d bytes\n", result)
	fmt.Printf("updateScratchSize:    0 bytes\n")
}
