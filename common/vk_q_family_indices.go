package common

import (
	"errors"

	vk "github.com/goki/vulkan"
)

type QueueFamilyIndices struct {
	GraphicsFamily *uint32
	PresentFamily  *uint32
}

func findQueueFamilies(pd vk.PhysicalDevice, surf vk.Surface) (*QueueFamilyIndices, error) {
	qFamilies := ReadQueueFamilies(pd)
	return pickQueueFamilies(qFamilies, func(i uint32) bool {
		var presentSupport vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(pd, i, surf, &presentSupport)
		return presentSupport == vk.True
	})
}

// pickQueueFamilies prefers a single family that can both render and present. Otherwise, the first graphics
// capable and the first present capable family are used.
func pickQueueFamilies(qFamilies []vk.QueueFamilyProperties, presentSupport func(uint32) bool) (*QueueFamilyIndices, error) {
	indices := &QueueFamilyIndices{}
	for i := range qFamilies {
		idx := uint32(i)
		graphics := qFamilies[i].QueueCount > 0 && isBitSet(qFamilies[i], vk.QueueGraphicsBit)
		present := qFamilies[i].QueueCount > 0 && presentSupport(idx)
		if graphics && present {
			return &QueueFamilyIndices{GraphicsFamily: &idx, PresentFamily: &idx}, nil
		}
		if indices.GraphicsFamily == nil && graphics {
			indices.GraphicsFamily = &idx
		}
		if indices.PresentFamily == nil && present {
			indices.PresentFamily = &idx
		}
	}
	if indices.GraphicsFamily == nil {
		return nil, errors.New("unable to find graphics capable queue family")
	}
	if indices.PresentFamily == nil {
		return nil, errors.New("unable to find present capable queue family for given surface")
	}
	return indices, nil
}

func isBitSet(qFamily vk.QueueFamilyProperties, bit vk.QueueFlagBits) bool {
	return vk.QueueFlagBits(qFamily.QueueFlags)&bit > 0
}

func (q *QueueFamilyIndices) IsComplete() bool {
	return q.GraphicsFamily != nil && q.PresentFamily != nil
}

// IsShared reports whether rendering and presentation use the same family.
func (q *QueueFamilyIndices) IsShared() bool {
	return q.IsComplete() && *q.GraphicsFamily == *q.PresentFamily
}

// Unique returns the distinct family indices, graphics first. Resources used by both queues share these.
func (q *QueueFamilyIndices) Unique() []uint32 {
	var all []uint32
	if q.GraphicsFamily != nil {
		all = append(all, *q.GraphicsFamily)
	}
	if q.PresentFamily != nil {
		all = append(all, *q.PresentFamily)
	}
	return uniqueIndices(all)
}

func (q *QueueFamilyIndices) toQueueCreateInfos() []vk.DeviceQueueCreateInfo {
	uniq := q.Unique()
	infos := make([]vk.DeviceQueueCreateInfo, len(uniq))
	for i := range uniq {
		infos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			PNext:            nil,
			Flags:            0,
			QueueFamilyIndex: uniq[i],
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}
	return infos
}
