package renderer

import (
	"fmt"
	"math"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/veandco/go-sdl2/sdl"

	com "GPU_render_layer/common"
	"GPU_render_layer/config"
	"GPU_render_layer/logging"
	"GPU_render_layer/model"
	vm "GPU_render_layer/vector_math"
)

var _ Driver = (*com.Device)(nil)

var colorAttachmentOutput = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)

type Core struct {
	cfg *config.Config

	// OS/Window level
	Win    *com.Window
	device *com.Device

	// Target level
	swapChain *com.SwapChain

	// Drawing infrastructure level, owned by the arena
	arena       *Arena
	renderPass  vk.RenderPass
	commandPool vk.CommandPool
	frames      *FrameRing
	pipeline    *Pipeline

	// 3D World
	scene      *Scene
	clearColor vm.Vec4
}

// Externally facing functions

// NewRenderCore sets up everything required to draw the scene to a new window. Whatever was created is torn down
// again if a step fails.
func NewRenderCore(cfg *config.Config) (*Core, error) {
	c := &Core{
		cfg:        cfg,
		clearColor: vm.Vec4FromSlice(cfg.Render.ClearColor),
	}
	if err := c.Initialize(); err != nil {
		c.Destroy()
		return nil, err
	}
	return c, nil
}

func (c *Core) Initialize() error {
	var err error
	c.Win, err = com.NewWindow(c.cfg.Window.Title, c.cfg.Window.Width, c.cfg.Window.Height, c.cfg.ActiveValidationLayers())
	if err != nil {
		return err
	}
	c.device, err = com.NewDevice(c.Win, c.cfg.ActiveValidationLayers())
	if err != nil {
		return err
	}
	c.arena = NewArena(c.device)
	c.scene = Keep(c.arena, NewScene(c.device))

	c.swapChain, err = com.NewSwapChain(c.device, c.Win)
	if err != nil {
		return err
	}
	steps := []func() error{
		c.createRenderPass,
		c.createFrameBuffers,
		c.createCommandPool,
		c.createFrames,
		c.createGraphicsPipeline,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	logging.Infof("Render core ready, %d frames in flight", c.frames.Depth())
	return nil
}

type iterationHandler func(sdl.Event, *Core)

type drawHandler func(time.Duration, *Core)

// Loop is the event loop for user interaction and issues the draw call for each frame. It closes on the window's
// close button and on ESC, and does not render while minimized. A failing frame ends the loop with its error.
func (c *Core) Loop(ih iterationHandler, dh drawHandler) error {
	t0 := time.Now()
	frames := 0
	var event sdl.Event
	c.Win.Close = false
	for !c.Win.Close {
		for event = sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch ev := event.(type) {
			case *sdl.QuitEvent:
				c.Win.Close = true
			case *sdl.WindowEvent:
				switch ev.Event {
				case sdl.WINDOWEVENT_RESIZED:
					c.Win.Resized = true
				case sdl.WINDOWEVENT_MINIMIZED:
					c.Win.Minimized = true
				case sdl.WINDOWEVENT_RESTORED:
					c.Win.Minimized = false
				}
			case *sdl.KeyboardEvent:
				if ev.Keysym.Sym == sdl.K_ESCAPE {
					c.Win.Close = true
				}
			}
			if ih != nil {
				ih(event, c)
			}
		}
		if c.Win.Close {
			break
		}
		if c.Win.Minimized {
			// Sleep until new events change c.Win.Minimized
			sdl.WaitEvent()
			continue
		}
		if dh != nil {
			dh(time.Since(t0), c)
		}
		if err := c.drawFrame(); err != nil {
			return fmt.Errorf("frame %d: %w", frames, err)
		}
		frames++
	}
	dt := time.Since(t0)
	logging.Infof("Elapsed: %v, rough avg fps: %.1f fps", dt, float64(frames)/dt.Seconds())
	return nil
}

// Destroy waits for the device to become idle and tears down everything created by Initialize. Safe to call on a
// partially initialized core.
func (c *Core) Destroy() {
	if c.device != nil && c.device.D != nil {
		if err := c.device.WaitIdle(); err != nil {
			logging.Errorf("Failed to wait for device idle before teardown: %s", err)
		}
		if c.swapChain != nil {
			c.swapChain.Destroy(c.device)
		}
		if c.arena != nil {
			if err := c.arena.Release(); err != nil {
				logging.Errorf("Failed to release device resources: %s", err)
			}
		}
		c.device.Destroy()
	}
	if c.Win != nil {
		c.Win.Destroy()
	}
}

// Scene handling

func (c *Core) AddToScene(m *model.Model) error {
	return c.scene.Add(m)
}

func (c *Core) FindInScene(name string) (*model.Model, error) {
	e, err := c.scene.Find(name)
	if err != nil {
		return nil, err
	}
	return e.Model, nil
}

func (c *Core) RemoveFromScene(name string) error {
	return c.scene.Remove(name)
}

func (c *Core) ClearScene() error {
	return c.scene.Clear()
}

// Infrastructure

func (c *Core) createRenderPass() error {
	colorAttachment := vk.AttachmentDescription{
		Flags:          0,
		Format:         c.swapChain.Format.Format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	colorAttachmentRef := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}
	subpass := vk.SubpassDescription{
		Flags:                0,
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{colorAttachmentRef},
	}
	// The image is only written once acquisition released it, which happens at the color output stage
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  colorAttachmentOutput,
		DstStageMask:  colorAttachmentOutput,
		SrcAccessMask: 0,
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}
	renderPassInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
	renderPass, err := com.VkCreateRenderPass(c.device.D, &renderPassInfo, nil)
	if err != nil {
		return apiError("vkCreateRenderPass", err)
	}
	c.renderPass = renderPass
	c.arena.Track(ReleaseFunc(func(drv Driver) {
		vk.DestroyRenderPass(drv.Handle(), renderPass, nil)
	}))
	return nil
}

func (c *Core) createFrameBuffers() error {
	return c.swapChain.CreateFrameBuffers(c.device, c.renderPass, nil)
}

func (c *Core) createCommandPool() error {
	commandPool, err := com.VKSCreateCommandPool(
		c.device.D,
		vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		*c.device.QFamilies.GraphicsFamily,
	)
	if err != nil {
		return apiError("vkCreateCommandPool", err)
	}
	c.commandPool = commandPool
	c.arena.Track(ReleaseFunc(func(drv Driver) {
		vk.DestroyCommandPool(drv.Handle(), commandPool, nil)
	}))
	return nil
}

func (c *Core) createFrames() error {
	frames, err := NewFrameRing(c.device, c.device.GraphicsQ, c.commandPool, c.cfg.Render.FramesInFlight)
	if err != nil {
		return err
	}
	c.frames = Keep(c.arena, frames)
	return nil
}

func (c *Core) createGraphicsPipeline() error {
	vertCode, err := LoadShaderCode(c.cfg.Render.VertexShader)
	if err != nil {
		return err
	}
	fragCode, err := LoadShaderCode(c.cfg.Render.FragmentShader)
	if err != nil {
		return err
	}
	stages, err := NewShaderBuilder(c.device).
		WithVertexShaderFile(0, vertCode).
		WithFragmentShaderFile(1, fragCode).
		Build()
	if err != nil {
		return err
	}
	// Shader modules are only needed until the pipeline exists
	defer stages.Release(c.device)

	vertices := NewVertexData[model.Vertex]().
		WithTopology(vk.PrimitiveTopologyTriangleList).
		AddVec4Attribute(model.VertexPosOffset).
		AddVec4Attribute(model.VertexColorOffset)

	pipeline, err := NewGraphicsPipeline(c.device, stages, vertices, c.renderPass)
	if err != nil {
		return err
	}
	c.pipeline = Keep(c.arena, pipeline)
	return nil
}

// Frame level

func (c *Core) drawFrame() error {
	if err := c.frames.WaitCurrent(); err != nil {
		return err
	}
	slot := c.frames.Current()

	imgIdx, result := com.VkAcquireNextImage(c.device.D, c.swapChain.Handle, math.MaxUint64, slot.ImageAvailable, nil)
	// React on surface changes, e.g. window resizing. The slot's fence stays signaled as nothing was submitted.
	switch result {
	case vk.ErrorOutOfDate:
		return c.recreateSwapChain()
	case vk.Success, vk.Suboptimal:
	default:
		return apiError("vkAcquireNextImageKHR", vk.Error(result))
	}

	err := c.frames.Submit(colorAttachmentOutput, func(_ vk.Device, cmd vk.CommandBuffer) {
		c.recordDrawCommands(cmd, imgIdx)
	})
	if err != nil {
		return err
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{slot.RenderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{c.swapChain.Handle},
		PImageIndices:      []uint32{imgIdx},
	}
	result = vk.QueuePresent(c.device.PresentQ, &presentInfo)
	c.frames.Advance()

	if result == vk.ErrorOutOfDate || result == vk.Suboptimal || c.Win.Resized {
		c.Win.Resized = false
		return c.recreateSwapChain()
	}
	if result != vk.Success {
		return apiError("vkQueuePresentKHR", vk.Error(result))
	}
	return nil
}

func (c *Core) recordDrawCommands(cmd vk.CommandBuffer, imageIdx uint32) {
	extent := c.swapChain.Extend
	color := c.clearColor.Array()
	clearValues := []vk.ClearValue{
		vk.NewClearValue(color[:]),
	}
	renderPassInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  c.renderPass,
		Framebuffer: c.swapChain.FrameBuffers[imageIdx],
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cmd, &renderPassInfo, vk.SubpassContentsInline)
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, c.pipeline.Handle())

	viewport := []vk.Viewport{{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1.0,
	}}
	vk.CmdSetViewport(cmd, 0, 1, viewport)
	scissor := []vk.Rect2D{{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}}
	vk.CmdSetScissor(cmd, 0, 1, scissor)

	for _, e := range c.scene.Entries() {
		vertBuffers := []vk.Buffer{e.Vertices.Handle()}
		offsets := []vk.DeviceSize{0}
		vk.CmdBindVertexBuffers(cmd, 0, uint32(len(vertBuffers)), vertBuffers, offsets)
		vk.CmdBindIndexBuffer(cmd, e.Indices.Handle(), 0, vk.IndexTypeUint32)
		vk.CmdDrawIndexed(cmd, uint32(e.Indices.Len()), 1, 0, 0, 0)
	}

	vk.CmdEndRenderPass(cmd)
}

func (c *Core) recreateSwapChain() error {
	width, height := c.Win.DrawableSize()
	if width == 0 || height == 0 {
		// Nothing to draw on, try again with the next frame
		return nil
	}
	if err := c.device.WaitIdle(); err != nil {
		return apiError("vkDeviceWaitIdle", err)
	}
	if err := c.swapChain.Recreate(c.device, c.Win, c.renderPass); err != nil {
		return apiError("swap chain recreation", err)
	}
	return nil
}
