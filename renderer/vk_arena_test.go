package renderer

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaReleasesAfterIdleInReverseOrder(t *testing.T) {
	d := newFakeDriver()
	arena := NewArena(d)

	var order []string
	track := func(name string) {
		arena.Track(ReleaseFunc(func(drv Driver) {
			assert.Same(t, d, drv)
			assert.Equal(t, 1, d.idleCalls, "released only after the device went idle")
			order = append(order, name)
		}))
	}
	track("pipeline")
	track("layout")
	track("shaders")
	assert.Equal(t, 3, arena.Len())

	require.NoError(t, arena.Release())
	assert.Equal(t, []string{"shaders", "layout", "pipeline"}, order)
	assert.Equal(t, 0, arena.Len())

	require.NoError(t, arena.Release())
	assert.Len(t, order, 3, "resources are released exactly once")
}

func TestArenaKeep(t *testing.T) {
	d := newFakeDriver()
	arena := NewArena(d)

	buf := Keep(arena, must(NewBufferBuilder[uint32](d).Exclusive().Usage(indexUsage).Build([]uint32{1, 2})))
	stages := Keep(arena, must(NewShaderBuilder(d).WithVertexShaderFile(0, spirv(1)).Build()))
	ring := Keep(arena, must(NewFrameRing(d, nil, nil, 2)))
	require.NoError(t, ring.Submit(colorOutputStage, func(vk.Device, vk.CommandBuffer) {}))

	assert.Equal(t, 3, arena.Len())
	require.NoError(t, arena.Release())
	assert.True(t, buf.Released())
	assert.Equal(t, 0, stages.Len())
	assert.Empty(t, d.buffers)
	assert.Empty(t, d.memory)
	assert.Empty(t, d.modules)
	assert.Empty(t, d.fences)
	assert.Empty(t, d.cmds)
}

func TestArenaIdleFailureReleasesNothing(t *testing.T) {
	d := newFakeDriver()
	arena := NewArena(d)
	released := false
	arena.Track(ReleaseFunc(func(Driver) { released = true }))

	d.failOn["WaitIdle"] = errInjected
	err := arena.Release()
	require.ErrorIs(t, err, errInjected)
	assert.ErrorIs(t, err, ErrResource)
	assert.False(t, released)
	assert.Equal(t, 1, arena.Len())

	delete(d.failOn, "WaitIdle")
	require.NoError(t, arena.Release())
	assert.True(t, released)
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
