package common

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/veandco/go-sdl2/sdl"

	"GPU_render_layer/logging"
)

const APPLICATION_NAME = "GPU render layer"
const APP_MAJOR, APP_MINOR, APP_PATCH = 1, 0, 0
const ENGINE_NAME = "No Engine"
const ENGINE_MAJOR, ENGINE_MINOR, ENGINE_PATCH = 1, 0, 0

const SDL_MAJOR, SDL_MINOR, SDL_PATCH = int(sdl.MAJOR_VERSION), int(sdl.MINOR_VERSION), int(sdl.PATCHLEVEL)

// Vulkan spec go bindings = v1.0.7, as per: https://github.com/goki/vulkan = 1.3.239
const VK_SPEC_MAJOR, VK_SPEC_MINOR, VK_SPEC_PATCH int = 1, 3, 239

// Window encapsulates the SDL window together with the Vulkan instance and the surface to draw on. SDL also
// provides the user input.
type Window struct {
	sdlVersion string
	vkVersion  string

	Win       *sdl.Window
	Resized   bool
	Minimized bool
	Close     bool

	Inst *vk.Instance
	Surf *vk.Surface
}

// NewWindow initializes SDL, loads Vulkan, creates the instance with the given validation layers and the surface.
// Whatever was created is torn down again when a later step fails.
func NewWindow(title string, w int32, h int32, validationLayers []string) (*Window, error) {
	window := &Window{
		sdlVersion: fmt.Sprintf("v%d.%d.%d", SDL_MAJOR, SDL_MINOR, SDL_PATCH),
		vkVersion:  fmt.Sprintf("v%d.%d.%d", VK_SPEC_MAJOR, VK_SPEC_MINOR, VK_SPEC_PATCH),
	}
	steps := []func() error{
		func() error { return window.initSDLWindow(title, w, h) },
		window.initVulkan,
		func() error { return window.createVulkanInstance(validationLayers) },
		window.createSdlVkSurface,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			window.Destroy()
			return nil, err
		}
	}
	logging.Infof("Generated SDL/Vulkan window - SDL: %s Vulkan Spec: %s", window.sdlVersion, window.vkVersion)
	return window, nil
}

// Destroy tears down surface, instance and window, as far as they have been created.
func (w *Window) Destroy() {
	if w.Surf != nil {
		vk.DestroySurface(*w.Inst, *w.Surf, nil)
		w.Surf = nil
	}
	if w.Inst != nil {
		vk.DestroyInstance(*w.Inst, nil)
		w.Inst = nil
	}
	if w.Win != nil {
		if err := w.Win.Destroy(); err != nil {
			logging.Warnf("Failed to destroy SDL window: %s", err)
		}
		w.Win = nil
	}
	sdl.Quit()
}

// DrawableSize is the current size of the surface in pixels.
func (w *Window) DrawableSize() (int32, int32) {
	return w.Win.VulkanGetDrawableSize()
}

func (w *Window) initSDLWindow(title string, width int32, height int32) error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("initialize SDL: %w", err)
	}
	win, err := sdl.CreateWindow(
		title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		width,
		height,
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE|sdl.WINDOW_VULKAN,
	)
	if err != nil {
		return fmt.Errorf("create SDL window for use with Vulkan: %w", err)
	}
	logging.Debugf("Created SDL window for use with Vulkan. Title: %q, Width: %d, Height: %d", title, width, height)
	w.Win = win
	return nil
}

func (w *Window) initVulkan() error {
	// Load the Vulkan entry points through the loader SDL found
	vk.SetGetInstanceProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err := vk.Init(); err != nil {
		return fmt.Errorf("initialize Vulkan API: %w", err)
	}
	return nil
}

func (w *Window) createVulkanInstance(validationLayers []string) error {
	requiredExtensions := w.Win.VulkanGetInstanceExtensions()
	if err := checkInstanceSupport(requiredExtensions, validationLayers); err != nil {
		return err
	}
	applicationInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PNext:              nil,
		PApplicationName:   TerminatedStr(APPLICATION_NAME),
		ApplicationVersion: vk.MakeVersion(APP_MAJOR, APP_MINOR, APP_PATCH),
		PEngineName:        TerminatedStr(ENGINE_NAME),
		EngineVersion:      vk.MakeVersion(ENGINE_MAJOR, ENGINE_MINOR, ENGINE_PATCH),
		ApiVersion:         vk.MakeVersion(VK_SPEC_MAJOR, VK_SPEC_MINOR, VK_SPEC_PATCH),
	}
	createInfo := &vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PNext:                   nil,
		Flags:                   0,
		PApplicationInfo:        applicationInfo,
		EnabledLayerCount:       uint32(len(validationLayers)),
		PpEnabledLayerNames:     TerminatedStrs(validationLayers),
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: TerminatedStrs(requiredExtensions),
	}
	ins, err := VkCreateInstance(createInfo, nil)
	if err != nil {
		return fmt.Errorf("create vk instance: %w", err)
	}
	w.Inst = &ins
	return nil
}

func checkInstanceSupport(requiredExt []string, requiredLayers []string) error {
	supportedExtNames, err := ReadInstanceExtensionPropertyNames()
	if err != nil {
		return err
	}
	logging.Debugf("Required instance extensions: %v, available (%d): %v", requiredExt, len(supportedExtNames), supportedExtNames)
	if missing := Missing(requiredExt, supportedExtNames); len(missing) > 0 {
		return fmt.Errorf("instance extensions not supported: %v", missing)
	}
	if len(requiredLayers) == 0 {
		return nil
	}

	supportedLayerNames, err := ReadInstanceLayerPropertyNames()
	if err != nil {
		return err
	}
	logging.Debugf("Desired validation layers: %v, supported (%d): %v", requiredLayers, len(supportedLayerNames), supportedLayerNames)
	if missing := Missing(requiredLayers, supportedLayerNames); len(missing) > 0 {
		return fmt.Errorf("validation layers not supported: %v", missing)
	}
	return nil
}

func (w *Window) createSdlVkSurface() error {
	surf, err := SdlCreateVkSurface(w.Win, *w.Inst)
	if err != nil {
		return fmt.Errorf("create SDL window's Vulkan surface: %w", err)
	}
	w.Surf = &surf
	return nil
}
