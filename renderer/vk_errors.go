package renderer

import (
	"errors"
	"fmt"
)

// Two error classes. Contract errors are programmer mistakes in how a builder or the submitter is used and are
// reported before any GPU work happens. Resource errors come from the device or driver and leave the GPU state
// undefined for the failing step. Check with errors.Is against the class or a specific sentinel.
var (
	ErrContract = errors.New("contract violation")
	ErrResource = errors.New("resource failure")
)

var (
	ErrMissingConfig     = fmt.Errorf("%w: missing configuration", ErrContract)
	ErrUnsupported       = fmt.Errorf("%w: unsupported configuration", ErrContract)
	ErrStageCapacity     = fmt.Errorf("%w: shader stage index out of range", ErrContract)
	ErrStageGap          = fmt.Errorf("%w: shader stages not contiguous", ErrContract)
	ErrMalformedBytecode = fmt.Errorf("%w: malformed SPIR-V bytecode", ErrContract)

	ErrNoMemoryType    = fmt.Errorf("%w: no suitable memory type", ErrResource)
	ErrSubmitterFailed = fmt.Errorf("%w: submitter failed earlier", ErrResource)
)

// apiError attaches the failing Vulkan step to a driver error and puts it into the resource class.
func apiError(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrResource, step, err)
}
