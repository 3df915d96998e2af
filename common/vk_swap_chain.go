package common

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"

	"GPU_render_layer/logging"
)

type SwapChain struct {
	supDetails SwapChainDetails
	Handle     vk.Swapchain

	Format      vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extend      vk.Extent2D

	Images   []vk.Image
	ImgViews []vk.ImageView
	Aspect   float32

	FrameBuffers []vk.Framebuffer
}

func NewSwapChain(dc *Device, w *Window) (*SwapChain, error) {
	sc := &SwapChain{}
	if err := sc.create(dc, w, nil); err != nil {
		sc.Destroy(dc)
		return nil, err
	}
	return sc, nil
}

func (sc *SwapChain) create(dc *Device, w *Window, old vk.Swapchain) error {
	sc.chooseConfiguration(dc, w)
	if err := sc.createSwapChainHandle(dc, w, old); err != nil {
		return err
	}
	sc.Images = ReadSwapChainImages(dc.D, sc.Handle)
	if err := sc.createImageViews(dc); err != nil {
		return err
	}
	sc.Aspect = float32(sc.Extend.Width) / float32(sc.Extend.Height)
	logging.Debugf("Created swap chain with %d images, extent %dx%d", len(sc.Images), sc.Extend.Width, sc.Extend.Height)
	return nil
}

// Recreate builds a new swap chain for the current surface size, handing the old one over to the driver, and creates
// frame buffers for renderPass. The caller must make sure no frame is in flight.
func (sc *SwapChain) Recreate(dc *Device, w *Window, renderPass vk.RenderPass) error {
	old := sc.Handle
	sc.destroyViews(dc)
	sc.Handle = nil
	err := sc.create(dc, w, old)
	if old != nil {
		vk.DestroySwapchain(dc.D, old, nil)
	}
	if err != nil {
		return err
	}
	return sc.CreateFrameBuffers(dc, renderPass, nil)
}

func (sc *SwapChain) CreateFrameBuffers(dc *Device, renderPass vk.RenderPass, depthImageView *vk.ImageView) error {
	sc.FrameBuffers = make([]vk.Framebuffer, 0, len(sc.ImgViews))
	for i := range sc.ImgViews {
		attachments := []vk.ImageView{sc.ImgViews[i]}
		if depthImageView != nil {
			attachments = append(attachments, *depthImageView)
		}
		framebufferInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			PNext:           nil,
			Flags:           0,
			RenderPass:      renderPass,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           sc.Extend.Width,
			Height:          sc.Extend.Height,
			Layers:          1,
		}
		fb, err := VkCreateFrameBuffer(dc.D, &framebufferInfo, nil)
		if err != nil {
			return fmt.Errorf("create frame buffer [%d]: %w", i, err)
		}
		sc.FrameBuffers = append(sc.FrameBuffers, fb)
	}
	logging.Debugf("Created %d frame buffers", len(sc.FrameBuffers))
	return nil
}

func (sc *SwapChain) chooseConfiguration(dc *Device, w *Window) {
	sc.supDetails = ReadSwapChainSupportDetails(dc.PD, *w.Surf)
	sc.Format = sc.supDetails.selectSwapSurfaceFormat(vk.FormatB8g8r8a8Srgb, vk.ColorSpaceSrgbNonlinear)
	sc.PresentMode = sc.supDetails.selectSwapPresentMode(vk.PresentModeMailbox)
	width, height := w.DrawableSize()
	sc.Extend = sc.supDetails.selectSwapExtent(uint32(width), uint32(height))
}

func (sc *SwapChain) createSwapChainHandle(dc *Device, w *Window, old vk.Swapchain) error {
	imgCount := sc.supDetails.imageCount()

	// Images are used by both queues, so separate families need concurrent sharing.
	sharingMode := vk.SharingModeExclusive
	var qFamIndices []uint32
	if !dc.QFamilies.IsShared() {
		sharingMode = vk.SharingModeConcurrent
		qFamIndices = dc.QFamilies.Unique()
	}

	createInfo := &vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		PNext:                 nil,
		Flags:                 0,
		Surface:               *w.Surf,
		MinImageCount:         imgCount,
		ImageFormat:           sc.Format.Format,
		ImageColorSpace:       sc.Format.ColorSpace,
		ImageExtent:           sc.Extend,
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      sharingMode,
		QueueFamilyIndexCount: uint32(len(qFamIndices)),
		PQueueFamilyIndices:   qFamIndices,
		PreTransform:          sc.supDetails.Capabilities.CurrentTransform,
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           sc.PresentMode,
		Clipped:               vk.True,
		OldSwapchain:          old,
	}

	var err error
	sc.Handle, err = VkCreateSwapChain(dc.D, createInfo, nil)
	if err != nil {
		return fmt.Errorf("create swap chain: %w", err)
	}
	return nil
}

func (sc *SwapChain) createImageViews(dc *Device) error {
	sc.ImgViews = make([]vk.ImageView, 0, len(sc.Images))
	for i := range sc.Images {
		view, err := CreateImageView(dc, sc.Images[i], sc.Format.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return fmt.Errorf("create image view [%d]: %w", i, err)
		}
		sc.ImgViews = append(sc.ImgViews, view)
	}
	return nil
}

func (sc *SwapChain) destroyViews(dc *Device) {
	for i := range sc.FrameBuffers {
		vk.DestroyFramebuffer(dc.D, sc.FrameBuffers[i], nil)
	}
	for i := range sc.ImgViews {
		vk.DestroyImageView(dc.D, sc.ImgViews[i], nil)
	}
	sc.FrameBuffers = nil
	sc.ImgViews = nil
	sc.Images = nil
}

func (sc *SwapChain) Destroy(dc *Device) {
	sc.destroyViews(dc)
	if sc.Handle != nil {
		vk.DestroySwapchain(dc.D, sc.Handle, nil)
		sc.Handle = nil
	}
}

type SwapChainDetails struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func (s *SwapChainDetails) selectSwapSurfaceFormat(desiredFormat vk.Format, desiredColorSpace vk.ColorSpace) vk.SurfaceFormat {
	for _, af := range s.Formats {
		if af.Format == desiredFormat && af.ColorSpace == desiredColorSpace {
			return af
		}
	}
	fallbackFormat := s.Formats[0]
	logging.Debugf("Did not find preferred surface format, selecting first one available (%v)", fallbackFormat)
	return fallbackFormat
}

// selectSwapPresentMode falls back to FIFO, the only mode every implementation has to support.
func (s *SwapChainDetails) selectSwapPresentMode(desiredMode vk.PresentMode) vk.PresentMode {
	for _, pm := range s.PresentModes {
		if pm == desiredMode {
			return pm
		}
	}
	logging.Debugf("Did not find preferred present mode, selecting FIFO")
	return vk.PresentModeFifo
}

// selectSwapExtent uses the surface's current extent unless the surface leaves it to the swap chain, which is
// signaled by a width of MaxUint32. The drawable size is clamped to the supported range in that case.
func (s *SwapChainDetails) selectSwapExtent(width uint32, height uint32) vk.Extent2D {
	c := s.Capabilities
	if c.CurrentExtent.Width != math.MaxUint32 {
		return c.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(width, c.MinImageExtent.Width, c.MaxImageExtent.Width),
		Height: clamp(height, c.MinImageExtent.Height, c.MaxImageExtent.Height),
	}
}

// imageCount asks for one image more than the minimum. MaxImageCount 0 means there is no upper limit.
func (s *SwapChainDetails) imageCount() uint32 {
	imgCount := s.Capabilities.MinImageCount + 1
	if s.Capabilities.MaxImageCount > 0 && imgCount > s.Capabilities.MaxImageCount {
		imgCount = s.Capabilities.MaxImageCount
	}
	return imgCount
}

func clamp(v, lo, hi uint32) uint32 {
	return max(lo, min(v, hi))
}

func checkSwapChainAdequacy(scDetails SwapChainDetails) bool {
	return len(scDetails.Formats) > 0 && len(scDetails.PresentModes) > 0
}

func CreateImageView(dc *Device, image vk.Image, format vk.Format, aspectFlags vk.ImageAspectFlags) (vk.ImageView, error) {
	createInfo := &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		PNext:    nil,
		Flags:    0,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	return VkCreateImageView(dc.D, createInfo, nil)
}
