package renderer

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"GPU_render_layer/logging"
)

// RecordFunc emits the commands of one frame into cmd. It runs synchronously between begin and end of the
// recording and must not block on GPU completion.
type RecordFunc func(device vk.Device, cmd vk.CommandBuffer)

// Frame is a command buffer together with the fence guarding it. The fence is signaled whenever the GPU is done
// with the last recording of the buffer.
type Frame struct {
	CommandBuffer vk.CommandBuffer
	Fence         vk.Fence
}

// FrameSync lists the semaphores a submission waits on, one stage mask per wait semaphore, and the semaphores it
// signals on completion.
type FrameSync struct {
	WaitSemaphores   []vk.Semaphore
	WaitStages       []vk.PipelineStageFlags
	SignalSemaphores []vk.Semaphore
}

// Submitter drives the wait, reset, record, submit cycle of command buffers on one queue. A failed Vulkan call
// leaves the command stream in an unknown state, so the first failure is final: every later call returns
// ErrSubmitterFailed without touching the device.
type Submitter struct {
	drv    Driver
	queue  vk.Queue
	failed error
}

func NewSubmitter(drv Driver, queue vk.Queue) *Submitter {
	return &Submitter{drv: drv, queue: queue}
}

// Err returns the failure that stopped the submitter, nil while it is healthy.
func (s *Submitter) Err() error {
	return s.failed
}

// Wait blocks until the GPU finished the last submission of frame, without resetting anything.
func (s *Submitter) Wait(frame Frame) error {
	if s.failed != nil {
		return fmt.Errorf("%w: %w", ErrSubmitterFailed, s.failed)
	}
	if frame.Fence == nil {
		return fmt.Errorf("%w: frame fence not set", ErrMissingConfig)
	}
	if err := s.drv.WaitForFence(frame.Fence); err != nil {
		return s.fail(apiError("vkWaitForFences", err))
	}
	return nil
}

// RecordSubmit waits for the previous use of frame to complete, re-records its command buffer through record and
// submits it. The call returns once the work is queued, the next call for the same frame blocks until that work
// has finished on the GPU.
func (s *Submitter) RecordSubmit(frame Frame, sync FrameSync, record RecordFunc) error {
	if s.failed != nil {
		return fmt.Errorf("%w: %w", ErrSubmitterFailed, s.failed)
	}
	if err := checkFrame(frame, sync, record); err != nil {
		return err
	}

	if err := s.drv.WaitForFence(frame.Fence); err != nil {
		return s.fail(apiError("vkWaitForFences", err))
	}
	if err := s.drv.ResetFence(frame.Fence); err != nil {
		return s.fail(apiError("vkResetFences", err))
	}
	if err := s.drv.ResetCommandBuffer(frame.CommandBuffer); err != nil {
		return s.fail(apiError("vkResetCommandBuffer", err))
	}
	if err := s.drv.BeginCommandBuffer(frame.CommandBuffer, vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)); err != nil {
		return s.fail(apiError("vkBeginCommandBuffer", err))
	}

	record(s.drv.Handle(), frame.CommandBuffer)

	if err := s.drv.EndCommandBuffer(frame.CommandBuffer); err != nil {
		return s.fail(apiError("vkEndCommandBuffer", err))
	}
	submitInfo := []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		PNext:                nil,
		WaitSemaphoreCount:   uint32(len(sync.WaitSemaphores)),
		PWaitSemaphores:      sync.WaitSemaphores,
		PWaitDstStageMask:    sync.WaitStages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{frame.CommandBuffer},
		SignalSemaphoreCount: uint32(len(sync.SignalSemaphores)),
		PSignalSemaphores:    sync.SignalSemaphores,
	}}
	if err := s.drv.QueueSubmit(s.queue, submitInfo, frame.Fence); err != nil {
		return s.fail(apiError("vkQueueSubmit", err))
	}
	return nil
}

func (s *Submitter) fail(err error) error {
	logging.Errorf("Frame submission failed: %s", err)
	s.failed = err
	return err
}

func checkFrame(frame Frame, sync FrameSync, record RecordFunc) error {
	if frame.CommandBuffer == nil || frame.Fence == nil {
		return fmt.Errorf("%w: frame needs a command buffer and a fence", ErrMissingConfig)
	}
	if record == nil {
		return fmt.Errorf("%w: no record function", ErrMissingConfig)
	}
	if len(sync.WaitStages) != len(sync.WaitSemaphores) {
		return fmt.Errorf("%w: %d wait semaphores but %d wait stage masks", ErrContract, len(sync.WaitSemaphores), len(sync.WaitStages))
	}
	return nil
}

// FrameSlot is one entry of a FrameRing. ImageAvailable is meant to be signaled by swap chain image
// acquisition, RenderFinished is signaled by the slot's submission and waited on by presentation.
type FrameSlot struct {
	Frame
	ImageAvailable vk.Semaphore
	RenderFinished vk.Semaphore
}

// FrameRing cycles through depth command buffer, fence and semaphore sets so that up to depth frames can be in
// flight. Depth 1 keeps a single reusable command buffer.
type FrameRing struct {
	drv       Driver
	pool      vk.CommandPool
	slots     []FrameSlot
	current   int
	submitter *Submitter
}

// NewFrameRing allocates the per slot objects from pool. Fences start signaled so the first wait on every slot
// returns immediately.
func NewFrameRing(drv Driver, queue vk.Queue, pool vk.CommandPool, depth int) (*FrameRing, error) {
	if depth < 1 {
		return nil, fmt.Errorf("%w: frame ring depth must be at least 1, got %d", ErrMissingConfig, depth)
	}
	r := &FrameRing{
		drv:       drv,
		pool:      pool,
		submitter: NewSubmitter(drv, queue),
	}

	cmds, err := drv.AllocateCommandBuffers(pool, uint32(depth))
	if err != nil {
		return nil, apiError("vkAllocateCommandBuffers", err)
	}
	r.slots = make([]FrameSlot, len(cmds))
	for i := range cmds {
		r.slots[i].CommandBuffer = cmds[i]
	}

	for i := range r.slots {
		if err := r.createSyncObjects(&r.slots[i]); err != nil {
			r.Destroy()
			return nil, fmt.Errorf("frame slot %d: %w", i, err)
		}
	}
	logging.Debugf("Created frame ring of depth %d", depth)
	return r, nil
}

func (r *FrameRing) createSyncObjects(slot *FrameSlot) error {
	var err error
	if slot.ImageAvailable, err = r.drv.CreateSemaphore(); err != nil {
		return apiError("vkCreateSemaphore", err)
	}
	if slot.RenderFinished, err = r.drv.CreateSemaphore(); err != nil {
		return apiError("vkCreateSemaphore", err)
	}
	if slot.Fence, err = r.drv.CreateFence(true); err != nil {
		return apiError("vkCreateFence", err)
	}
	return nil
}

func (r *FrameRing) Depth() int {
	return len(r.slots)
}

func (r *FrameRing) Index() int {
	return r.current
}

func (r *FrameRing) Current() FrameSlot {
	return r.slots[r.current]
}

// Err returns the failure that stopped the ring's submitter.
func (r *FrameRing) Err() error {
	return r.submitter.Err()
}

// WaitCurrent blocks until the current slot's previous submission has completed. Swap chain images have to be
// acquired with the slot's ImageAvailable semaphore only after this returned.
func (r *FrameRing) WaitCurrent() error {
	return r.submitter.Wait(r.Current().Frame)
}

// Submit records and submits the current slot. The submission waits on ImageAvailable at waitStage and signals
// RenderFinished.
func (r *FrameRing) Submit(waitStage vk.PipelineStageFlags, record RecordFunc) error {
	slot := r.Current()
	return r.submitter.RecordSubmit(slot.Frame, FrameSync{
		WaitSemaphores:   []vk.Semaphore{slot.ImageAvailable},
		WaitStages:       []vk.PipelineStageFlags{waitStage},
		SignalSemaphores: []vk.Semaphore{slot.RenderFinished},
	}, record)
}

// Advance moves on to the next slot.
func (r *FrameRing) Advance() {
	r.current = (r.current + 1) % len(r.slots)
}

// Destroy releases all slots. The device has to be idle.
func (r *FrameRing) Destroy() {
	cmds := make([]vk.CommandBuffer, 0, len(r.slots))
	for i := range r.slots {
		s := &r.slots[i]
		if s.ImageAvailable != nil {
			r.drv.DestroySemaphore(s.ImageAvailable)
		}
		if s.RenderFinished != nil {
			r.drv.DestroySemaphore(s.RenderFinished)
		}
		if s.Fence != nil {
			r.drv.DestroyFence(s.Fence)
		}
		if s.CommandBuffer != nil {
			cmds = append(cmds, s.CommandBuffer)
		}
	}
	if len(cmds) > 0 {
		r.drv.FreeCommandBuffers(r.pool, cmds)
	}
	r.slots = nil
	r.current = 0
}

// Release lets an Arena own the ring.
func (r *FrameRing) Release(Driver) {
	r.Destroy()
}

