package liftoff

import "errors"

// Error taxonomy, per the spec's error handling design.
var (
	// ErrInvalidArgument is returned for caller mistakes that mutate no
	// state: an over-long property name, an unknown CRTC id, or a
	// composition layer that belongs to another output. Operations on a
	// destroyed Output are not checked and do not return it.
	ErrInvalidArgument = errors.New("liftoff: invalid argument")

	// ErrKernelRejected marks a failed TEST_ONLY probe. During search it
	// is recovered internally by backtracking and never surfaces. Apply
	// returns it only if an output's search ends with no assignment
	// recorded; the empty (all-composited) assignment is accepted without
	// a probe, so a search always records at least one.
	ErrKernelRejected = errors.New("liftoff: kernel rejected atomic request")

	// ErrResourceExhausted names the resource-exhaustion case of the
	// error taxonomy. No function in this package returns it.
	ErrResourceExhausted = errors.New("liftoff: resource exhausted")
)

// drmPropNameLen mirrors DRM_PROP_NAME_LEN from the kernel UAPI.
const drmPropNameLen = 32
