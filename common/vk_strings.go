package common

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"
)

// Debug formatting of the properties read during device selection.

// DescribePhysicalDevice renders properties, features and queue families of a device as a small tree.
func DescribePhysicalDevice(
	pdProps vk.PhysicalDeviceProperties,
	pdFeatures vk.PhysicalDeviceFeatures,
	qFamilies []vk.QueueFamilyProperties,
) string {
	strBuilder := strings.Builder{}
	for i := range qFamilies {
		prefix := "| "
		if i == len(qFamilies)-1 {
			prefix = "|_"
		}
		strBuilder.WriteString(fmt.Sprintf("%sQfamily[%d] %s\n", prefix, i, describeQueueFamily(qFamilies[i])))
	}
	return fmt.Sprintf(
		"%s:\n|_%s\n|_geometryShader: %t, samplerAnisotropy: %t, sparseBinding: %t\n%s",
		vk.ToString(pdProps.DeviceName[:]),
		describePhysicalDeviceProps(pdProps),
		pdFeatures.GeometryShader == vk.True,
		pdFeatures.SamplerAnisotropy == vk.True,
		pdFeatures.SparseBinding == vk.True,
		strBuilder.String(),
	)
}

func asVendorName(v uint32) string {
	switch v {
	case 0x1002:
		return "AMD"
	case 0x1010:
		return "ImgTec"
	case 0x10DE:
		return "NVIDIA"
	case 0x13B5:
		return "ARM"
	case 0x5143:
		return "Qualcomm"
	case 0x8086:
		return "INTEL"
	case 0x10005:
		return "Mesa"
	default:
		return "unknown"
	}
}

// asDriverVersion decodes the vendor specific driver version. NVIDIA packs it differently, all others follow the api
// version layout.
func asDriverVersion(vendor uint32, raw uint32) string {
	if vendor == 0x10DE {
		return fmt.Sprintf("%d.%d.%d.%d", (raw>>22)&0x3ff, (raw>>14)&0x0ff, (raw>>6)&0x0ff, raw&0x003f)
	}
	return vk.Version(raw).String()
}

func describePhysicalDeviceProps(pdProps vk.PhysicalDeviceProperties) string {
	return fmt.Sprintf("api: %s, driver: %s, vendorId: %d (%s), deviceId: %d, deviceType: %s",
		vk.Version(pdProps.ApiVersion).String(),
		asDriverVersion(pdProps.VendorID, pdProps.DriverVersion),
		pdProps.VendorID,
		asVendorName(pdProps.VendorID),
		pdProps.DeviceID,
		describeDeviceType(pdProps.DeviceType),
	)
}

func describeDeviceType(dt vk.PhysicalDeviceType) string {
	switch dt {
	case vk.PhysicalDeviceTypeOther:
		return "other"
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated gpu"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete gpu"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual gpu"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	default:
		return "unknown"
	}
}

// DescribeMemoryProperties lists the memory types of a device with their property flags, one per line.
func DescribeMemoryProperties(pdMemProps vk.PhysicalDeviceMemoryProperties) string {
	b := strings.Builder{}
	n := min(int(pdMemProps.MemoryTypeCount), len(pdMemProps.MemoryTypes))
	for i := 0; i < n; i++ {
		mt := pdMemProps.MemoryTypes[i]
		b.WriteString(fmt.Sprintf(" type[%d] heap: %d, flags: %v\n", i, mt.HeapIndex, describeMemoryFlags(mt.PropertyFlags)))
	}
	return b.String()
}

func describeMemoryFlags(flags vk.MemoryPropertyFlags) []string {
	var names []string
	bits := vk.MemoryPropertyFlagBits(flags)
	if bits&vk.MemoryPropertyDeviceLocalBit > 0 {
		names = append(names, "DEVICE_LOCAL")
	}
	if bits&vk.MemoryPropertyHostVisibleBit > 0 {
		names = append(names, "HOST_VISIBLE")
	}
	if bits&vk.MemoryPropertyHostCoherentBit > 0 {
		names = append(names, "HOST_COHERENT")
	}
	if bits&vk.MemoryPropertyHostCachedBit > 0 {
		names = append(names, "HOST_CACHED")
	}
	if bits&vk.MemoryPropertyLazilyAllocatedBit > 0 {
		names = append(names, "LAZILY_ALLOCATED")
	}
	return names
}

func describeQueueFamily(q vk.QueueFamilyProperties) string {
	return fmt.Sprintf(
		"Count: %2d, Valid ts bits: %d, ImageGranularity: (%d,%d,%d), Flags: %v",
		q.QueueCount,
		q.TimestampValidBits,
		q.MinImageTransferGranularity.Width,
		q.MinImageTransferGranularity.Height,
		q.MinImageTransferGranularity.Depth,
		describeQueueFlags(q.QueueFlags),
	)
}

func describeQueueFlags(bits vk.QueueFlags) []string {
	var properties []string
	flags := vk.QueueFlagBits(bits)
	if flags&vk.QueueGraphicsBit > 0 {
		properties = append(properties, "GRAPHICS")
	}
	if flags&vk.QueueComputeBit > 0 {
		properties = append(properties, "COMPUTE")
	}
	if flags&vk.QueueTransferBit > 0 {
		properties = append(properties, "TRANSFER")
	}
	if flags&vk.QueueSparseBindingBit > 0 {
		properties = append(properties, "SPARSE_BINDING")
	}
	if flags&vk.QueueProtectedBit > 0 {
		properties = append(properties, "PROTECTED")
	}
	return properties
}
