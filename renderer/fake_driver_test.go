package renderer

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

var errInjected = errors.New("injected driver failure")

type fakeFence struct {
	signaled bool
	// pending is set between a submit and the wait that observes its completion
	pending bool
}

type cmdState int

const (
	cmdInitial cmdState = iota
	cmdRecording
	cmdExecutable
)

// fakeDriver simulates just enough of a device for the builders and the submitter. Memory lives in Go slices,
// submitted work completes as soon as its fence is waited on.
type fakeDriver struct {
	device   vk.Device
	props    vk.PhysicalDeviceMemoryProperties
	typeBits uint32
	next     uintptr

	buffers    map[vk.Buffer]vk.BufferCreateInfo
	memory     map[vk.DeviceMemory][]byte
	memoryType map[vk.DeviceMemory]uint32
	mapped     map[vk.DeviceMemory]bool
	bound      map[vk.Buffer]vk.DeviceMemory
	modules    map[vk.ShaderModule][]uint32
	fences     map[vk.Fence]*fakeFence
	semaphores map[vk.Semaphore]bool
	cmds       map[vk.CommandBuffer]cmdState
	cmdFence   map[vk.CommandBuffer]vk.Fence
	submits    []vk.SubmitInfo

	calls     []string
	failOn    map[string]error
	idleCalls int
}

func newFakeDriver() *fakeDriver {
	d := &fakeDriver{
		typeBits:   0b1111,
		buffers:    map[vk.Buffer]vk.BufferCreateInfo{},
		memory:     map[vk.DeviceMemory][]byte{},
		memoryType: map[vk.DeviceMemory]uint32{},
		mapped:     map[vk.DeviceMemory]bool{},
		bound:      map[vk.Buffer]vk.DeviceMemory{},
		modules:    map[vk.ShaderModule][]uint32{},
		fences:     map[vk.Fence]*fakeFence{},
		semaphores: map[vk.Semaphore]bool{},
		cmds:       map[vk.CommandBuffer]cmdState{},
		cmdFence:   map[vk.CommandBuffer]vk.Fence{},
		failOn:     map[string]error{},
	}
	d.device = vk.Device(d.nextHandle())
	d.props = memoryProps(
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit),
		HostVisibleCoherent,
		HostVisibleCoherent|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCachedBit),
	)
	return d
}

func memoryProps(flags ...vk.MemoryPropertyFlags) vk.PhysicalDeviceMemoryProperties {
	var props vk.PhysicalDeviceMemoryProperties
	props.MemoryTypeCount = uint32(len(flags))
	for i, f := range flags {
		props.MemoryTypes[i] = vk.MemoryType{PropertyFlags: f, HeapIndex: 0}
	}
	props.MemoryHeapCount = 1
	return props
}

func (d *fakeDriver) nextHandle() unsafe.Pointer {
	d.next += 8
	return unsafe.Add(unsafe.Pointer(nil), d.next)
}

func (d *fakeDriver) call(name string) error {
	d.calls = append(d.calls, name)
	return d.failOn[name]
}

func (d *fakeDriver) count(name string) int {
	n := 0
	for _, c := range d.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (d *fakeDriver) Handle() vk.Device { return d.device }

func (d *fakeDriver) MemoryProperties() vk.PhysicalDeviceMemoryProperties { return d.props }

func (d *fakeDriver) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, error) {
	if err := d.call("CreateBuffer"); err != nil {
		return nil, err
	}
	if info.Size == 0 {
		return nil, errors.New("zero sized buffer")
	}
	buf := vk.Buffer(d.nextHandle())
	d.buffers[buf] = *info
	return buf, nil
}

func (d *fakeDriver) DestroyBuffer(buf vk.Buffer) {
	d.calls = append(d.calls, "DestroyBuffer")
	delete(d.buffers, buf)
	delete(d.bound, buf)
}

// BufferMemoryRequirements rounds sizes up to 256 bytes like most drivers do for small buffers.
func (d *fakeDriver) BufferMemoryRequirements(buf vk.Buffer) vk.MemoryRequirements {
	d.calls = append(d.calls, "BufferMemoryRequirements")
	size := d.buffers[buf].Size
	return vk.MemoryRequirements{
		Size:           (size + 255) &^ 255,
		Alignment:      256,
		MemoryTypeBits: d.typeBits,
	}
}

func (d *fakeDriver) AllocateMemory(size vk.DeviceSize, memoryTypeIndex uint32) (vk.DeviceMemory, error) {
	if err := d.call("AllocateMemory"); err != nil {
		return nil, err
	}
	mem := vk.DeviceMemory(d.nextHandle())
	d.memory[mem] = make([]byte, size)
	d.memoryType[mem] = memoryTypeIndex
	return mem, nil
}

func (d *fakeDriver) FreeMemory(mem vk.DeviceMemory) {
	d.calls = append(d.calls, "FreeMemory")
	delete(d.memory, mem)
	delete(d.memoryType, mem)
}

func (d *fakeDriver) MapMemory(mem vk.DeviceMemory, offset vk.DeviceSize, size vk.DeviceSize) (unsafe.Pointer, error) {
	if err := d.call("MapMemory"); err != nil {
		return nil, err
	}
	data, ok := d.memory[mem]
	if !ok || offset+size > vk.DeviceSize(len(data)) {
		return nil, fmt.Errorf("mapping %d bytes at %d out of range", size, offset)
	}
	if d.mapped[mem] {
		return nil, errors.New("memory already mapped")
	}
	d.mapped[mem] = true
	return unsafe.Pointer(&data[offset]), nil
}

func (d *fakeDriver) UnmapMemory(mem vk.DeviceMemory) {
	d.calls = append(d.calls, "UnmapMemory")
	d.mapped[mem] = false
}

func (d *fakeDriver) BindBufferMemory(buf vk.Buffer, mem vk.DeviceMemory, offset vk.DeviceSize) error {
	if err := d.call("BindBufferMemory"); err != nil {
		return err
	}
	d.bound[buf] = mem
	return nil
}

func (d *fakeDriver) CreateShaderModule(code []uint32) (vk.ShaderModule, error) {
	if err := d.call("CreateShaderModule"); err != nil {
		return nil, err
	}
	mod := vk.ShaderModule(d.nextHandle())
	d.modules[mod] = code
	return mod, nil
}

func (d *fakeDriver) DestroyShaderModule(module vk.ShaderModule) {
	d.calls = append(d.calls, "DestroyShaderModule")
	delete(d.modules, module)
}

func (d *fakeDriver) CreateFence(signaled bool) (vk.Fence, error) {
	if err := d.call("CreateFence"); err != nil {
		return nil, err
	}
	f := vk.Fence(d.nextHandle())
	d.fences[f] = &fakeFence{signaled: signaled}
	return f, nil
}

func (d *fakeDriver) DestroyFence(fence vk.Fence) {
	d.calls = append(d.calls, "DestroyFence")
	delete(d.fences, fence)
}

func (d *fakeDriver) CreateSemaphore() (vk.Semaphore, error) {
	if err := d.call("CreateSemaphore"); err != nil {
		return nil, err
	}
	s := vk.Semaphore(d.nextHandle())
	d.semaphores[s] = true
	return s, nil
}

func (d *fakeDriver) DestroySemaphore(sem vk.Semaphore) {
	d.calls = append(d.calls, "DestroySemaphore")
	delete(d.semaphores, sem)
}

func (d *fakeDriver) WaitForFence(fence vk.Fence) error {
	if err := d.call("WaitForFence"); err != nil {
		return err
	}
	f, ok := d.fences[fence]
	if !ok {
		return errors.New("unknown fence")
	}
	if f.pending {
		f.pending = false
		f.signaled = true
	}
	if !f.signaled {
		return errors.New("deadlock: fence is unsignaled and no work is pending")
	}
	return nil
}

func (d *fakeDriver) ResetFence(fence vk.Fence) error {
	if err := d.call("ResetFence"); err != nil {
		return err
	}
	f, ok := d.fences[fence]
	if !ok {
		return errors.New("unknown fence")
	}
	if f.pending {
		return errors.New("fence reset while its work is in flight")
	}
	f.signaled = false
	return nil
}

func (d *fakeDriver) AllocateCommandBuffers(pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, error) {
	if err := d.call("AllocateCommandBuffers"); err != nil {
		return nil, err
	}
	cmds := make([]vk.CommandBuffer, count)
	for i := range cmds {
		cmds[i] = vk.CommandBuffer(d.nextHandle())
		d.cmds[cmds[i]] = cmdInitial
	}
	return cmds, nil
}

func (d *fakeDriver) FreeCommandBuffers(pool vk.CommandPool, cmds []vk.CommandBuffer) {
	d.calls = append(d.calls, "FreeCommandBuffers")
	for _, c := range cmds {
		delete(d.cmds, c)
		delete(d.cmdFence, c)
	}
}

func (d *fakeDriver) inFlight(cmd vk.CommandBuffer) bool {
	f, ok := d.cmdFence[cmd]
	return ok && d.fences[f] != nil && d.fences[f].pending
}

func (d *fakeDriver) ResetCommandBuffer(cmd vk.CommandBuffer) error {
	if err := d.call("ResetCommandBuffer"); err != nil {
		return err
	}
	if d.inFlight(cmd) {
		return errors.New("command buffer reset while in flight")
	}
	d.cmds[cmd] = cmdInitial
	return nil
}

func (d *fakeDriver) BeginCommandBuffer(cmd vk.CommandBuffer, flags vk.CommandBufferUsageFlags) error {
	if err := d.call("BeginCommandBuffer"); err != nil {
		return err
	}
	if d.cmds[cmd] != cmdInitial {
		return errors.New("command buffer not in initial state")
	}
	d.cmds[cmd] = cmdRecording
	return nil
}

func (d *fakeDriver) EndCommandBuffer(cmd vk.CommandBuffer) error {
	if err := d.call("EndCommandBuffer"); err != nil {
		return err
	}
	if d.cmds[cmd] != cmdRecording {
		return errors.New("command buffer not recording")
	}
	d.cmds[cmd] = cmdExecutable
	return nil
}

func (d *fakeDriver) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error {
	if err := d.call("QueueSubmit"); err != nil {
		return err
	}
	f, ok := d.fences[fence]
	if !ok || f.signaled || f.pending {
		return errors.New("submit fence must be unsignaled and idle")
	}
	for _, s := range submits {
		if int(s.WaitSemaphoreCount) != len(s.PWaitDstStageMask) {
			return errors.New("wait stage mask count mismatch")
		}
		for _, c := range s.PCommandBuffers {
			if d.cmds[c] != cmdExecutable {
				return errors.New("submitted command buffer is not executable")
			}
			d.cmdFence[c] = fence
		}
	}
	f.pending = true
	d.submits = append(d.submits, submits...)
	return nil
}

func (d *fakeDriver) WaitIdle() error {
	if err := d.call("WaitIdle"); err != nil {
		return err
	}
	d.idleCalls++
	for _, f := range d.fences {
		if f.pending {
			f.pending = false
			f.signaled = true
		}
	}
	return nil
}

// gpuCalls are the calls that touch device state, the read-only queries are left out.
func (d *fakeDriver) gpuCalls() []string {
	var calls []string
	for _, c := range d.calls {
		if c != "BufferMemoryRequirements" {
			calls = append(calls, c)
		}
	}
	return calls
}

// spirv builds a minimal little endian module: the magic number followed by words.
func spirv(words ...uint32) []byte {
	code := make([]byte, 0, 4*(len(words)+1))
	for _, w := range append([]uint32{spirvMagic}, words...) {
		code = append(code, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	return code
}
