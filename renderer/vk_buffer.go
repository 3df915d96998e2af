package renderer

import (
	"fmt"
	"strings"
	"unsafe"

	vk "github.com/goki/vulkan"

	"GPU_render_layer/logging"
)

// Buffer is a host visible, host coherent GPU buffer holding Len() elements of T. It owns both the buffer object
// and its memory allocation. Nothing releases it implicitly, call Release once the device is idle.
type Buffer[T any] struct {
	handle  vk.Buffer
	memory  vk.DeviceMemory
	count   int
	stride  uintptr
	usage   vk.BufferUsageFlags
	sharing vk.SharingMode
}

func (b *Buffer[T]) Handle() vk.Buffer { return b.handle }
func (b *Buffer[T]) Memory() vk.DeviceMemory { return b.memory }
func (b *Buffer[T]) Len() int { return b.count }
func (b *Buffer[T]) Stride() uintptr { return b.stride }
func (b *Buffer[T]) Usage() vk.BufferUsageFlags { return b.usage }
func (b *Buffer[T]) SharingMode() vk.SharingMode { return b.sharing }
func (b *Buffer[T]) Size() vk.DeviceSize { return vk.DeviceSize(uintptr(b.count) * b.stride) }
func (b *Buffer[T]) Released() bool { return b.handle == nil && b.memory == nil }

// Release frees the memory and destroys the buffer object. Calling it again is a no-op.
func (b *Buffer[T]) Release(drv Driver) {
	if b.memory != nil {
		drv.FreeMemory(b.memory)
		b.memory = nil
	}
	if b.handle != nil {
		drv.DestroyBuffer(b.handle)
		b.handle = nil
	}
}

// BufferBuilder collects the configuration of a Buffer. Nothing is checked until Build.
type BufferBuilder[T any] struct {
	drv Driver

	usage    vk.BufferUsageFlags
	usageSet bool

	sharing       vk.SharingMode
	sharingSet    bool
	queueFamilies []uint32

	unsupported []string
}

func NewBufferBuilder[T any](drv Driver) *BufferBuilder[T] {
	return &BufferBuilder[T]{drv: drv}
}

// Exclusive buffers are owned by one queue family at a time.
func (b *BufferBuilder[T]) Exclusive() *BufferBuilder[T] {
	b.sharing = vk.SharingModeExclusive
	b.sharingSet = true
	b.queueFamilies = nil
	return b
}

// Concurrent buffers may be accessed from all of the given queue families without ownership transfers. At least
// two distinct families are required, anything less is reported by Build.
func (b *BufferBuilder[T]) Concurrent(queueFamilies ...uint32) *BufferBuilder[T] {
	b.sharing = vk.SharingModeConcurrent
	b.sharingSet = true
	b.queueFamilies = uniqueFamilies(queueFamilies)
	return b
}

func (b *BufferBuilder[T]) Usage(flags vk.BufferUsageFlags) *BufferBuilder[T] {
	b.usage = flags
	b.usageSet = true
	return b
}

// SparseBinding is not implemented, Build fails if it was requested.
func (b *BufferBuilder[T]) SparseBinding() *BufferBuilder[T] {
	b.unsupported = append(b.unsupported, "sparse binding")
	return b
}

// SparseResidency is not implemented, Build fails if it was requested.
func (b *BufferBuilder[T]) SparseResidency() *BufferBuilder[T] {
	b.unsupported = append(b.unsupported, "sparse residency")
	return b
}

func (b *BufferBuilder[T]) validate(count int) error {
	unsupported := append([]string(nil), b.unsupported...)
	if b.sharingSet && b.sharing == vk.SharingModeConcurrent && len(b.queueFamilies) < 2 {
		unsupported = append(unsupported, fmt.Sprintf("concurrent sharing with %d distinct queue families", len(b.queueFamilies)))
	}
	if len(unsupported) > 0 {
		return fmt.Errorf("%w: %s", ErrUnsupported, strings.Join(unsupported, ", "))
	}

	var missing []string
	if !b.usageSet || b.usage == 0 {
		missing = append(missing, "usage")
	}
	if !b.sharingSet {
		missing = append(missing, "sharing mode")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: buffer %s not set", ErrMissingConfig, strings.Join(missing, " and "))
	}

	if count == 0 {
		return fmt.Errorf("%w: buffer content is empty", ErrMissingConfig)
	}
	if elementStride[T]() == 0 {
		return fmt.Errorf("%w: zero sized element type %T", ErrUnsupported, *new(T))
	}
	return nil
}

// Build allocates a buffer sized for content, uploads content into it and binds the memory. Configuration errors
// are returned before the driver is called. On a driver failure everything created so far is released again.
func (b *BufferBuilder[T]) Build(content []T) (*Buffer[T], error) {
	if err := b.validate(len(content)); err != nil {
		return nil, err
	}
	stride := elementStride[T]()
	size := vk.DeviceSize(uintptr(len(content)) * stride)

	info := vk.BufferCreateInfo{
		SType:                 vk.StructureTypeBufferCreateInfo,
		PNext:                 nil,
		Flags:                 0,
		Size:                  size,
		Usage:                 b.usage,
		SharingMode:           b.sharing,
		QueueFamilyIndexCount: uint32(len(b.queueFamilies)),
		PQueueFamilyIndices:   b.queueFamilies,
	}
	buf, err := b.drv.CreateBuffer(&info)
	if err != nil {
		return nil, apiError("vkCreateBuffer", err)
	}

	req := b.drv.BufferMemoryRequirements(buf)
	if req.Size < size {
		b.drv.DestroyBuffer(buf)
		return nil, fmt.Errorf("%w: driver requires %d bytes for a %d byte buffer", ErrResource, req.Size, size)
	}
	memType, err := FindMemoryType(b.drv.MemoryProperties(), req.MemoryTypeBits, HostVisibleCoherent)
	if err != nil {
		b.drv.DestroyBuffer(buf)
		return nil, fmt.Errorf("buffer of %d bytes: %w", size, err)
	}

	mem, err := b.drv.AllocateMemory(req.Size, memType)
	if err != nil {
		b.drv.DestroyBuffer(buf)
		return nil, apiError("vkAllocateMemory", err)
	}
	release := func() {
		b.drv.FreeMemory(mem)
		b.drv.DestroyBuffer(buf)
	}

	pData, err := b.drv.MapMemory(mem, 0, req.Size)
	if err != nil {
		release()
		return nil, apiError("vkMapMemory", err)
	}
	upload(pData, content, stride)
	b.drv.UnmapMemory(mem)

	if err := b.drv.BindBufferMemory(buf, mem, 0); err != nil {
		release()
		return nil, apiError("vkBindBufferMemory", err)
	}
	logging.Debugf("Built buffer of %d x %d bytes (allocated %d) on memory type %d", len(content), stride, req.Size, memType)

	return &Buffer[T]{
		handle:  buf,
		memory:  mem,
		count:   len(content),
		stride:  stride,
		usage:   b.usage,
		sharing: b.sharing,
	}, nil
}

// elementStride is the distance between two consecutive elements of T, its size rounded up to its alignment.
func elementStride[T any]() uintptr {
	var zero T
	return alignUp(unsafe.Sizeof(zero), unsafe.Alignof(zero))
}

// upload copies every element to its aligned slot in the mapped region.
func upload[T any](dst unsafe.Pointer, content []T, stride uintptr) {
	size := unsafe.Sizeof(content[0])
	for i := range content {
		src := unsafe.Slice((*byte)(unsafe.Pointer(&content[i])), size)
		vk.Memcopy(unsafe.Add(dst, uintptr(i)*stride), src)
	}
}

func uniqueFamilies(families []uint32) []uint32 {
	var uniq []uint32
	for _, f := range families {
		if !inList(f, uniq) {
			uniq = append(uniq, f)
		}
	}
	return uniq
}

func inList(e uint32, l []uint32) bool {
	for i := range l {
		if l[i] == e {
			return true
		}
	}
	return false
}
