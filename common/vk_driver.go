package common

import (
	"math"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// The methods below forward to the bindings one to one, so the renderer can drive a Device through a narrow
// interface and be tested without a GPU.

func (dc *Device) Handle() vk.Device {
	return dc.D
}

func (dc *Device) MemoryProperties() vk.PhysicalDeviceMemoryProperties {
	return dc.PdMemoryProps
}

func (dc *Device) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, error) {
	return VkCreateBuffer(dc.D, info, nil)
}

func (dc *Device) DestroyBuffer(buf vk.Buffer) {
	vk.DestroyBuffer(dc.D, buf, nil)
}

func (dc *Device) BufferMemoryRequirements(buf vk.Buffer) vk.MemoryRequirements {
	return ReadBufferMemoryRequirements(dc.D, buf)
}

func (dc *Device) AllocateMemory(size vk.DeviceSize, memoryTypeIndex uint32) (vk.DeviceMemory, error) {
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		PNext:           nil,
		AllocationSize:  size,
		MemoryTypeIndex: memoryTypeIndex,
	}
	return VkAllocateMemory(dc.D, &allocInfo, nil)
}

func (dc *Device) FreeMemory(mem vk.DeviceMemory) {
	vk.FreeMemory(dc.D, mem, nil)
}

func (dc *Device) MapMemory(mem vk.DeviceMemory, offset vk.DeviceSize, size vk.DeviceSize) (unsafe.Pointer, error) {
	return VkMapMemory(dc.D, mem, offset, size, 0)
}

func (dc *Device) UnmapMemory(mem vk.DeviceMemory) {
	vk.UnmapMemory(dc.D, mem)
}

func (dc *Device) BindBufferMemory(buf vk.Buffer, mem vk.DeviceMemory, offset vk.DeviceSize) error {
	return VkBindBufferMemory(dc.D, buf, mem, offset)
}

func (dc *Device) CreateShaderModule(code []uint32) (vk.ShaderModule, error) {
	return VKSCreateShaderModule(dc.D, code)
}

func (dc *Device) DestroyShaderModule(module vk.ShaderModule) {
	vk.DestroyShaderModule(dc.D, module, nil)
}

func (dc *Device) CreateFence(signaled bool) (vk.Fence, error) {
	return VKSCreateFence(dc.D, signaled)
}

func (dc *Device) DestroyFence(fence vk.Fence) {
	vk.DestroyFence(dc.D, fence, nil)
}

func (dc *Device) CreateSemaphore() (vk.Semaphore, error) {
	return VKSCreateSemaphore(dc.D)
}

func (dc *Device) DestroySemaphore(sem vk.Semaphore) {
	vk.DestroySemaphore(dc.D, sem, nil)
}

func (dc *Device) WaitForFence(fence vk.Fence) error {
	return vk.Error(vk.WaitForFences(dc.D, 1, []vk.Fence{fence}, vk.True, math.MaxUint64))
}

func (dc *Device) ResetFence(fence vk.Fence) error {
	return vk.Error(vk.ResetFences(dc.D, 1, []vk.Fence{fence}))
}

func (dc *Device) AllocateCommandBuffers(pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, error) {
	return VKSAllocateCommandBuffers(dc.D, pool, count)
}

func (dc *Device) FreeCommandBuffers(pool vk.CommandPool, cmds []vk.CommandBuffer) {
	if len(cmds) == 0 {
		return
	}
	vk.FreeCommandBuffers(dc.D, pool, uint32(len(cmds)), cmds)
}

func (dc *Device) ResetCommandBuffer(cmd vk.CommandBuffer) error {
	return vk.Error(vk.ResetCommandBuffer(cmd, vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit)))
}

func (dc *Device) BeginCommandBuffer(cmd vk.CommandBuffer, flags vk.CommandBufferUsageFlags) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	}
	return vk.Error(vk.BeginCommandBuffer(cmd, &beginInfo))
}

func (dc *Device) EndCommandBuffer(cmd vk.CommandBuffer) error {
	return vk.Error(vk.EndCommandBuffer(cmd))
}

func (dc *Device) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error {
	return vk.Error(vk.QueueSubmit(queue, uint32(len(submits)), submits, fence))
}

func (dc *Device) WaitIdle() error {
	return vk.Error(vk.DeviceWaitIdle(dc.D))
}
