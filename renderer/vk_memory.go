package renderer

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"GPU_render_layer/logging"
)

// HostVisibleCoherent is the property set every buffer built here is allocated with, so content can be written
// through a plain mapping without explicit flushes.
const HostVisibleCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

// FindMemoryType returns the lowest memory type index that is allowed by typeBits and whose property flags
// contain all of flags. Types are scanned in ascending order, the first match wins.
func FindMemoryType(props vk.PhysicalDeviceMemoryProperties, typeBits uint32, flags vk.MemoryPropertyFlags) (uint32, error) {
	count := props.MemoryTypeCount
	if count > uint32(len(props.MemoryTypes)) {
		count = uint32(len(props.MemoryTypes))
	}
	for i := uint32(0); i < count; i++ {
		ofType := typeBits&(1<<i) != 0
		hasProperties := props.MemoryTypes[i].PropertyFlags&flags == flags
		if ofType && hasProperties {
			logging.Debugf("Found memory type %d on heap %d", i, props.MemoryTypes[i].HeapIndex)
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: type bits %032b, flags %b", ErrNoMemoryType, typeBits, flags)
}

func alignUp(n, align uintptr) uintptr {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}
