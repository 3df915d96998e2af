package common

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestSelectSwapSurfaceFormat(t *testing.T) {
	srgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	unorm := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	d := SwapChainDetails{Formats: []vk.SurfaceFormat{unorm, srgb}}
	assert.Equal(t, srgb, d.selectSwapSurfaceFormat(vk.FormatB8g8r8a8Srgb, vk.ColorSpaceSrgbNonlinear))

	d = SwapChainDetails{Formats: []vk.SurfaceFormat{unorm}}
	assert.Equal(t, unorm, d.selectSwapSurfaceFormat(vk.FormatB8g8r8a8Srgb, vk.ColorSpaceSrgbNonlinear))
}

func TestSelectSwapPresentMode(t *testing.T) {
	d := SwapChainDetails{PresentModes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}}
	assert.Equal(t, vk.PresentModeMailbox, d.selectSwapPresentMode(vk.PresentModeMailbox))

	d = SwapChainDetails{PresentModes: []vk.PresentMode{vk.PresentModeImmediate}}
	assert.Equal(t, vk.PresentModeFifo, d.selectSwapPresentMode(vk.PresentModeMailbox))
}

func TestSelectSwapExtent(t *testing.T) {
	d := SwapChainDetails{}
	d.Capabilities.CurrentExtent = vk.Extent2D{Width: 800, Height: 600}
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, d.selectSwapExtent(1280, 720))

	d.Capabilities.CurrentExtent = vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}
	d.Capabilities.MinImageExtent = vk.Extent2D{Width: 1, Height: 1}
	d.Capabilities.MaxImageExtent = vk.Extent2D{Width: 1024, Height: 1024}
	assert.Equal(t, vk.Extent2D{Width: 1024, Height: 720}, d.selectSwapExtent(1280, 720))
	assert.Equal(t, vk.Extent2D{Width: 1, Height: 1}, d.selectSwapExtent(0, 0))
}

func TestImageCount(t *testing.T) {
	d := SwapChainDetails{}
	d.Capabilities.MinImageCount = 2
	assert.Equal(t, uint32(3), d.imageCount(), "no upper limit")

	d.Capabilities.MaxImageCount = 2
	assert.Equal(t, uint32(2), d.imageCount())
}

func TestCheckSwapChainAdequacy(t *testing.T) {
	assert.False(t, checkSwapChainAdequacy(SwapChainDetails{}))
	assert.False(t, checkSwapChainAdequacy(SwapChainDetails{Formats: []vk.SurfaceFormat{{}}}))
	assert.True(t, checkSwapChainAdequacy(SwapChainDetails{
		Formats:      []vk.SurfaceFormat{{}},
		PresentModes: []vk.PresentMode{vk.PresentModeFifo},
	}))
}
