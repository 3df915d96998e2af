package renderer

import (
	"fmt"

	"GPU_render_layer/logging"
)

// Releaser is any GPU resource that is released through the device that created it.
type Releaser interface {
	Release(drv Driver)
}

// ReleaseFunc adapts a plain function, e.g. destroying a pipeline, to Releaser.
type ReleaseFunc func(drv Driver)

func (f ReleaseFunc) Release(drv Driver) {
	f(drv)
}

// Arena owns resources until device teardown. Release waits for the device to become idle and only then releases
// everything in reverse order of tracking, so a resource is never freed while the GPU may still use it.
type Arena struct {
	drv     Driver
	tracked []Releaser
}

func NewArena(drv Driver) *Arena {
	return &Arena{drv: drv}
}

func (a *Arena) Track(r Releaser) {
	a.tracked = append(a.tracked, r)
}

// Keep tracks r in a and hands it back, so resources can be registered where they are built.
func Keep[R Releaser](a *Arena, r R) R {
	a.Track(r)
	return r
}

func (a *Arena) Len() int {
	return len(a.tracked)
}

// Release releases every tracked resource exactly once. If the device cannot be brought to idle nothing is
// released and the error is returned.
func (a *Arena) Release() error {
	if len(a.tracked) == 0 {
		return nil
	}
	if err := a.drv.WaitIdle(); err != nil {
		return fmt.Errorf("releasing %d resources: %w", len(a.tracked), apiError("vkDeviceWaitIdle", err))
	}
	for i := len(a.tracked) - 1; i >= 0; i-- {
		a.tracked[i].Release(a.drv)
		a.tracked[i] = nil
	}
	logging.Debugf("Released %d resources", len(a.tracked))
	a.tracked = a.tracked[:0]
	return nil
}
