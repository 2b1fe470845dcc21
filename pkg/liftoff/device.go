package liftoff

import (
	"fmt"
	"log/slog"
)

// PriorityPeriod is the page-flip interval over which pending priority
// updates accumulate before being promoted to current_priority
// (spec.md §4.4's LIFTOFF_PRIORITY_PERIOD).
const PriorityPeriod = 60

// PlaneDiscoverer enumerates the hardware planes and CRTCs a Device
// should manage. spec.md §1 treats property discovery as an external
// collaborator; this is the seam that lets a Device be built either
// against a real DRM node (the default, Linux-only, ioctl-backed
// implementation) or against a fake for tests.
type PlaneDiscoverer interface {
	DiscoverCRTCs(fd uintptr) ([]uint32, error)
	DiscoverPlanes(fd uintptr, crtcIDs []uint32) ([]PlaneDescriptor, error)
}

// TestCommitter runs a DRM atomic TEST_ONLY probe against a Request.
// The real, Linux-only implementation issues DRM_IOCTL_MODE_ATOMIC with
// the TEST_ONLY flag set and ALLOW_MODESET cleared, per spec.md §6's
// kernel wire contract; tests substitute a fake that emulates kernel
// acceptance/rejection rules deterministically.
type TestCommitter interface {
	TestOnlyCommit(req *Request) error
}

// Device owns the DRM file descriptor (borrowed — the Device never
// closes it), the discovered planes, the outputs built on top of it,
// and the two monotonic counters from spec.md §3.
type Device struct {
	fd     uintptr
	logger *slog.Logger

	planes  []*Plane
	outputs []*Output
	crtcIDs []uint32

	committer TestCommitter

	pageFlipCounter   int
	testCommitCounter int

	// cursorWidth/cursorHeight, if both non-zero, give the allocator a
	// hint for the cursor-size pre-filter in spec.md §4.6; zero means no
	// hint, leaving cursor-plane compatibility entirely to TEST_ONLY.
	cursorWidth, cursorHeight uint32
}

// DeviceOption configures a Device at construction time.
type DeviceOption func(*deviceConfig)

type deviceConfig struct {
	logger                    *slog.Logger
	discoverer                PlaneDiscoverer
	committer                 TestCommitter
	cursorWidth, cursorHeight uint32
}

// WithLogger sets the structured logger the Device and everything it
// creates will log through. Defaults to slog.Default() if unset.
func WithLogger(logger *slog.Logger) DeviceOption {
	return func(c *deviceConfig) { c.logger = logger }
}

// WithPlaneDiscoverer overrides the default ioctl-backed plane and CRTC
// discovery, primarily for tests.
func WithPlaneDiscoverer(d PlaneDiscoverer) DeviceOption {
	return func(c *deviceConfig) { c.discoverer = d }
}

// WithTestCommitter overrides the default ioctl-backed TEST_ONLY probe,
// primarily for tests.
func WithTestCommitter(t TestCommitter) DeviceOption {
	return func(c *deviceConfig) { c.committer = t }
}

// WithCursorSize gives the allocator the expected cursor-plane size, so
// it can reject incompatible layers for cursor planes before spending a
// TEST_ONLY probe on them (spec.md §4.6).
func WithCursorSize(width, height uint32) DeviceOption {
	return func(c *deviceConfig) { c.cursorWidth, c.cursorHeight = width, height }
}

// DeviceCreate queries planes and CRTCs on the given DRM fd and builds
// a Device around them. The fd's lifetime belongs to the caller; the
// Device borrows it and never closes it (spec.md §5).
func DeviceCreate(fd uintptr, opts ...DeviceOption) (*Device, error) {
	cfg := deviceConfig{discoverer: defaultDiscoverer{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := orDefault(cfg.logger)

	crtcIDs, err := cfg.discoverer.DiscoverCRTCs(fd)
	if err != nil {
		return nil, fmt.Errorf("discover crtcs: %w", err)
	}

	descs, err := cfg.discoverer.DiscoverPlanes(fd, crtcIDs)
	if err != nil {
		return nil, fmt.Errorf("discover planes: %w", err)
	}

	planes := make([]*Plane, len(descs))
	for i, d := range descs {
		planes[i] = newPlane(d)
	}
	sortPlanes(planes)

	committer := cfg.committer
	if committer == nil {
		committer = newIOCTLCommitter(fd)
	}

	logger.Info("device created", "planes", len(planes), "crtcs", len(crtcIDs))

	return &Device{
		fd:            fd,
		logger:        logger,
		planes:        planes,
		crtcIDs:       crtcIDs,
		committer:     committer,
		cursorWidth:   cfg.cursorWidth,
		cursorHeight:  cfg.cursorHeight,
	}, nil
}

// Destroy releases the Device's bookkeeping. It does not close the DRM
// fd, which the caller owns.
func (d *Device) Destroy() {
	d.planes = nil
	d.outputs = nil
}

// TestCommitCounter returns the number of TEST_ONLY probes issued so
// far.
func (d *Device) TestCommitCounter() int {
	return d.testCommitCounter
}

// PageFlipCounter returns the number of page-flip notifications
// received so far.
func (d *Device) PageFlipCounter() int {
	return d.pageFlipCounter
}

func (d *Device) crtcIndex(crtcID uint32) (int, bool) {
	for i, id := range d.crtcIDs {
		if id == crtcID {
			return i, true
		}
	}
	return 0, false
}

// planesForCRTC returns the device's globally-ordered plane list
// restricted to planes compatible with the given CRTC index, preserving
// the §4.3 order.
func (d *Device) planesForCRTC(crtcIndex int) []*Plane {
	out := make([]*Plane, 0, len(d.planes))
	for _, p := range d.planes {
		if p.CompatibleWithCRTC(crtcIndex) {
			out = append(out, p)
		}
	}
	return out
}

// testCommit runs a TEST_ONLY probe of req and increments the device's
// probe counter regardless of outcome.
func (d *Device) testCommit(req *Request) error {
	d.testCommitCounter++
	return d.committer.TestOnlyCommit(req)
}

// NotifyPageFlip increments the page-flip counter and, every
// PriorityPeriod flips, rotates every layer's priority on every output:
// current_priority <- pending_priority, pending_priority <- 0
// (spec.md §4.4, property P5).
func (d *Device) NotifyPageFlip() {
	d.pageFlipCounter++
	if d.pageFlipCounter%PriorityPeriod != 0 {
		return
	}
	for _, o := range d.outputs {
		for _, l := range o.layers {
			l.updatePriority(true)
		}
	}
}
