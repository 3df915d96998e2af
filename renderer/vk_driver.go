package renderer

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Driver is the slice of the device level Vulkan API the builders and the frame coordinator call into. It is
// implemented by common.Device on top of the real bindings. Every method maps to exactly one Vulkan call, results
// other than VK_SUCCESS come back as errors.
type Driver interface {
	// Handle returns the logical device passed to record callbacks.
	Handle() vk.Device
	MemoryProperties() vk.PhysicalDeviceMemoryProperties

	CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, error)
	DestroyBuffer(buf vk.Buffer)
	BufferMemoryRequirements(buf vk.Buffer) vk.MemoryRequirements
	AllocateMemory(size vk.DeviceSize, memoryTypeIndex uint32) (vk.DeviceMemory, error)
	FreeMemory(mem vk.DeviceMemory)
	MapMemory(mem vk.DeviceMemory, offset vk.DeviceSize, size vk.DeviceSize) (unsafe.Pointer, error)
	UnmapMemory(mem vk.DeviceMemory)
	BindBufferMemory(buf vk.Buffer, mem vk.DeviceMemory, offset vk.DeviceSize) error

	CreateShaderModule(code []uint32) (vk.ShaderModule, error)
	DestroyShaderModule(module vk.ShaderModule)

	CreateFence(signaled bool) (vk.Fence, error)
	DestroyFence(fence vk.Fence)
	CreateSemaphore() (vk.Semaphore, error)
	DestroySemaphore(sem vk.Semaphore)
	// WaitForFence blocks without timeout until the fence is signaled.
	WaitForFence(fence vk.Fence) error
	ResetFence(fence vk.Fence) error

	AllocateCommandBuffers(pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, error)
	FreeCommandBuffers(pool vk.CommandPool, cmds []vk.CommandBuffer)
	// ResetCommandBuffer discards the recorded commands and releases the resources they hold.
	ResetCommandBuffer(cmd vk.CommandBuffer) error
	BeginCommandBuffer(cmd vk.CommandBuffer, flags vk.CommandBufferUsageFlags) error
	EndCommandBuffer(cmd vk.CommandBuffer) error
	QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error

	// WaitIdle blocks until all queues of the device are idle.
	WaitIdle() error
}
