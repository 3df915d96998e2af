package renderer

import (
	"encoding/binary"
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type padded struct {
	Tag   uint8
	Value uint32
}

type position struct {
	X, Y, Z float32
}

func TestBuildBufferUploadsContent(t *testing.T) {
	d := newFakeDriver()
	buf, err := NewBufferBuilder[uint32](d).
		Exclusive().
		Usage(indexUsage).
		Build([]uint32{0, 1, 2})
	require.NoError(t, err)

	assert.Equal(t, 3, buf.Len())
	assert.Equal(t, uintptr(4), buf.Stride())
	assert.Equal(t, vk.DeviceSize(12), buf.Size())
	assert.Equal(t, indexUsage, buf.Usage())
	assert.Equal(t, vk.SharingModeExclusive, buf.SharingMode())

	info := d.buffers[buf.Handle()]
	assert.Equal(t, vk.DeviceSize(12), info.Size)
	assert.Equal(t, uint32(0), info.QueueFamilyIndexCount)
	assert.Equal(t, buf.Memory(), d.bound[buf.Handle()])
	assert.Equal(t, uint32(2), d.memoryType[buf.Memory()], "first host visible and coherent type")
	assert.False(t, d.mapped[buf.Memory()])

	mem := d.memory[buf.Memory()]
	for i, want := range []uint32{0, 1, 2} {
		assert.Equal(t, want, binary.LittleEndian.Uint32(mem[i*4:]))
	}
	assert.Equal(t, []string{
		"CreateBuffer", "AllocateMemory", "MapMemory", "UnmapMemory", "BindBufferMemory",
	}, d.gpuCalls())
}

func TestBuildBufferKeepsElementAlignment(t *testing.T) {
	d := newFakeDriver()
	content := []padded{{1, 0xAABBCCDD}, {2, 7}, {3, 0}}
	buf, err := NewBufferBuilder[padded](d).Exclusive().Usage(indexUsage).Build(content)
	require.NoError(t, err)

	var p padded
	stride := unsafe.Sizeof(p)
	valueOffset := unsafe.Offsetof(p.Value)
	require.Equal(t, stride, buf.Stride())
	mem := d.memory[buf.Memory()]
	for i := range content {
		want := unsafe.Slice((*byte)(unsafe.Pointer(&content[i])), stride)
		got := mem[uintptr(i)*stride : uintptr(i+1)*stride]
		assert.Equal(t, want[0], got[0], "tag of element %d", i)
		assert.Equal(t, content[i].Value, binary.LittleEndian.Uint32(got[valueOffset:]), "value of element %d", i)
	}
}

func TestBufferSizeIsCountTimesStride(t *testing.T) {
	d := newFakeDriver()
	stride := unsafe.Sizeof(position{})
	for n := 1; n <= 20; n++ {
		buf, err := NewBufferBuilder[position](d).
			Usage(vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)).
			Exclusive().
			Build(make([]position, n))
		require.NoError(t, err)
		assert.Equal(t, vk.DeviceSize(uintptr(n)*stride), buf.Size())
		assert.Equal(t, buf.Size(), d.buffers[buf.Handle()].Size)
		buf.Release(d)
	}
	assert.Empty(t, d.buffers)
	assert.Empty(t, d.memory)
}

func TestBuildBufferMissingConfig(t *testing.T) {
	t.Run("sharing mode unset", func(t *testing.T) {
		d := newFakeDriver()
		_, err := NewBufferBuilder[uint32](d).Usage(indexUsage).Build([]uint32{1})
		require.ErrorIs(t, err, ErrMissingConfig)
		assert.ErrorIs(t, err, ErrContract)
		assert.Contains(t, err.Error(), "sharing mode")
		assert.Empty(t, d.calls, "no driver call before validation passed")
	})
	t.Run("usage unset", func(t *testing.T) {
		d := newFakeDriver()
		_, err := NewBufferBuilder[uint32](d).Exclusive().Build([]uint32{1})
		require.ErrorIs(t, err, ErrMissingConfig)
		assert.Contains(t, err.Error(), "usage")
		assert.Empty(t, d.calls)
	})
	t.Run("nothing set", func(t *testing.T) {
		d := newFakeDriver()
		_, err := NewBufferBuilder[uint32](d).Build([]uint32{1})
		require.ErrorIs(t, err, ErrMissingConfig)
		assert.Contains(t, err.Error(), "usage and sharing mode")
		assert.Empty(t, d.calls)
	})
	t.Run("empty content", func(t *testing.T) {
		d := newFakeDriver()
		_, err := NewBufferBuilder[uint32](d).Exclusive().Usage(indexUsage).Build(nil)
		require.ErrorIs(t, err, ErrMissingConfig)
		assert.Empty(t, d.calls)
	})
}

func TestBuildBufferUnsupported(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *BufferBuilder[uint32]) *BufferBuilder[uint32]
	}{
		{"sparse binding", func(b *BufferBuilder[uint32]) *BufferBuilder[uint32] { return b.Exclusive().SparseBinding() }},
		{"sparse residency", func(b *BufferBuilder[uint32]) *BufferBuilder[uint32] { return b.Exclusive().SparseResidency() }},
		{"concurrent without families", func(b *BufferBuilder[uint32]) *BufferBuilder[uint32] { return b.Concurrent() }},
		{"concurrent with one family", func(b *BufferBuilder[uint32]) *BufferBuilder[uint32] { return b.Concurrent(1, 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDriver()
			_, err := tt.setup(NewBufferBuilder[uint32](d).Usage(indexUsage)).Build([]uint32{1})
			require.ErrorIs(t, err, ErrUnsupported)
			assert.ErrorIs(t, err, ErrContract)
			assert.Empty(t, d.calls)
		})
	}
}

func TestBuildBufferConcurrent(t *testing.T) {
	d := newFakeDriver()
	buf, err := NewBufferBuilder[uint32](d).Usage(indexUsage).Concurrent(0, 2, 0).Build([]uint32{1, 2})
	require.NoError(t, err)

	info := d.buffers[buf.Handle()]
	assert.Equal(t, vk.SharingModeConcurrent, info.SharingMode)
	assert.Equal(t, uint32(2), info.QueueFamilyIndexCount)
	assert.Equal(t, []uint32{0, 2}, info.PQueueFamilyIndices)

	// switching back drops the families
	buf2, err := NewBufferBuilder[uint32](d).Usage(indexUsage).Concurrent(0, 2).Exclusive().Build([]uint32{1})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), d.buffers[buf2.Handle()].QueueFamilyIndexCount)
}

func TestBuildBufferNoMemoryType(t *testing.T) {
	d := newFakeDriver()
	d.typeBits = 0b0011 // device local and host visible but not coherent
	_, err := NewBufferBuilder[uint32](d).Exclusive().Usage(indexUsage).Build([]uint32{1})
	require.ErrorIs(t, err, ErrNoMemoryType)
	assert.ErrorIs(t, err, ErrResource)
	assert.Empty(t, d.buffers, "buffer object is destroyed again")
	assert.Zero(t, d.count("AllocateMemory"))
}

func TestBuildBufferDriverFailures(t *testing.T) {
	for _, step := range []string{"CreateBuffer", "AllocateMemory", "MapMemory", "BindBufferMemory"} {
		t.Run(step, func(t *testing.T) {
			d := newFakeDriver()
			d.failOn[step] = errInjected
			_, err := NewBufferBuilder[uint32](d).Exclusive().Usage(indexUsage).Build([]uint32{1, 2, 3})
			require.ErrorIs(t, err, errInjected)
			assert.ErrorIs(t, err, ErrResource)
			assert.Empty(t, d.buffers)
			assert.Empty(t, d.memory)
		})
	}
}

func TestBufferReleaseOnce(t *testing.T) {
	d := newFakeDriver()
	buf, err := NewBufferBuilder[uint32](d).Exclusive().Usage(indexUsage).Build([]uint32{1})
	require.NoError(t, err)

	buf.Release(d)
	buf.Release(d)
	assert.True(t, buf.Released())
	assert.Equal(t, 1, d.count("FreeMemory"))
	assert.Equal(t, 1, d.count("DestroyBuffer"))
	assert.Empty(t, d.buffers)
	assert.Empty(t, d.memory)
}
