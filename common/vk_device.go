package common

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"GPU_render_layer/logging"
)

var DEVICE_EXTENSIONS = []string{
	"VK_KHR_swapchain",
}

// Device represents the interfacing objects between the SDL window, the Hardware running Vulkan and the rest of
// the rendering engine. It encapsulates the corresponding objects to make initialization and teardown neater.
type Device struct {
	PD            vk.PhysicalDevice
	PdProps       vk.PhysicalDeviceProperties
	PdFeatures    vk.PhysicalDeviceFeatures
	PdMemoryProps vk.PhysicalDeviceMemoryProperties
	QFamilies     QueueFamilyIndices

	D         vk.Device
	GraphicsQ vk.Queue
	PresentQ  vk.Queue
}

// NewDevice picks a physical device able to render to and present on the window surface and creates the logical
// device with one graphics and one present queue. layers are enabled on the device as well, older implementations
// still expect them there.
func NewDevice(w *Window, layers []string) (*Device, error) {
	dc := &Device{}
	if err := dc.selectPhysicalDevice(*w.Inst, *w.Surf); err != nil {
		return nil, err
	}
	if err := dc.createLogicalDevice(layers); err != nil {
		return nil, err
	}
	return dc, nil
}

// Destroy all objects created by itself. It does not destroy the window provided for instantiation.
func (dc *Device) Destroy() {
	if dc.D != nil {
		vk.DestroyDevice(dc.D, nil)
		dc.D = nil
	}
}

func (dc *Device) selectPhysicalDevice(in vk.Instance, su vk.Surface) error {
	availableDevices, err := ReadPhysicalDevices(in)
	if err != nil {
		return err
	}
	candidates := make([]deviceCandidate, 0, len(availableDevices))
	for i := range availableDevices {
		c, ok := inspectDevice(availableDevices[i], su)
		if ok {
			candidates = append(candidates, c)
		}
	}
	best, ok := pickDevice(candidates)
	if !ok {
		return fmt.Errorf("no suitable physical device (GPU) found among %d", len(availableDevices))
	}
	dc.PD = best.pd
	dc.PdProps = best.props
	dc.PdFeatures = best.features
	dc.QFamilies = best.queues
	dc.PdMemoryProps = ReadDeviceMemoryProperties(dc.PD)
	logging.Infof("Selected device %q", vk.ToString(dc.PdProps.DeviceName[:]))
	logging.Debugf("Memory types of selected device:\n%s", DescribeMemoryProperties(dc.PdMemoryProps))
	return nil
}

type deviceCandidate struct {
	pd       vk.PhysicalDevice
	props    vk.PhysicalDeviceProperties
	features vk.PhysicalDeviceFeatures
	queues   QueueFamilyIndices
}

func inspectDevice(pd vk.PhysicalDevice, su vk.Surface) (deviceCandidate, bool) {
	c := deviceCandidate{
		pd:       pd,
		props:    ReadPhysicalDeviceProperties(pd),
		features: ReadPhysicalDeviceFeatures(pd),
	}
	logging.Debugf("Physical device\n%s", DescribePhysicalDevice(c.props, c.features, ReadQueueFamilies(pd)))

	indices, err := findQueueFamilies(pd, su)
	if err != nil {
		logging.Debugf("Skipping device, required queue families missing: %s", err)
		return c, false
	}
	c.queues = *indices

	if !checkDeviceExtensionSupport(pd, DEVICE_EXTENSIONS) {
		return c, false
	}
	if !checkSwapChainAdequacy(ReadSwapChainSupportDetails(pd, su)) {
		logging.Debugf("Skipping device, surface offers no formats or present modes")
		return c, false
	}
	return c, true
}

// pickDevice prefers discrete GPUs and falls back to the first usable device of any other type.
func pickDevice(candidates []deviceCandidate) (deviceCandidate, bool) {
	for i := range candidates {
		if candidates[i].props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			return candidates[i], true
		}
	}
	if len(candidates) > 0 {
		return candidates[0], true
	}
	return deviceCandidate{}, false
}

func (dc *Device) createLogicalDevice(layers []string) error {
	queueInfos := dc.QFamilies.toQueueCreateInfos()
	deviceFeatures := vk.PhysicalDeviceFeatures{
		SparseBinding:         dc.PdFeatures.SparseBinding,
		SparseResidencyBuffer: dc.PdFeatures.SparseResidencyBuffer,
	}
	deviceCreatInfo := &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   nil,
		Flags:                   0,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     TerminatedStrs(layers),
		EnabledExtensionCount:   uint32(len(DEVICE_EXTENSIONS)),
		PpEnabledExtensionNames: TerminatedStrs(DEVICE_EXTENSIONS),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
	}

	var err error
	dc.D, err = VkCreateDevice(dc.PD, deviceCreatInfo, nil)
	if err != nil {
		return fmt.Errorf("create logical device: %w", err)
	}
	dc.GraphicsQ, err = VkGetDeviceQueue(dc.D, dc.QFamilies.GraphicsFamily, 0)
	if err != nil {
		return fmt.Errorf("get graphics device queue: %w", err)
	}
	dc.PresentQ, err = VkGetDeviceQueue(dc.D, dc.QFamilies.PresentFamily, 0)
	if err != nil {
		return fmt.Errorf("get present device queue: %w", err)
	}
	return nil
}

func checkDeviceExtensionSupport(pd vk.PhysicalDevice, requiredDeviceExt []string) bool {
	supportedExtNames, err := ReadDeviceExtensionPropertyNames(pd)
	if err != nil {
		logging.Warnf("Failed to read device extensions: %s", err)
		return false
	}
	if missing := Missing(requiredDeviceExt, supportedExtNames); len(missing) > 0 {
		logging.Debugf("Skipping device, missing extensions %v", missing)
		return false
	}
	return true
}
