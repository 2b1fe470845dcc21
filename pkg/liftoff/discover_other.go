//go:build !linux

package liftoff

import "fmt"

// Stubs for non-Linux platforms. The real discoverer and TEST_ONLY
// committer only run on Linux; WithPlaneDiscoverer/WithTestCommitter
// let callers substitute fakes on any platform for testing.

type defaultDiscoverer struct{}

func (defaultDiscoverer) DiscoverCRTCs(fd uintptr) ([]uint32, error) {
	return nil, fmt.Errorf("DRM ioctls only supported on Linux")
}

func (defaultDiscoverer) DiscoverPlanes(fd uintptr, crtcIDs []uint32) ([]PlaneDescriptor, error) {
	return nil, fmt.Errorf("DRM ioctls only supported on Linux")
}

type ioctlCommitter struct{}

func newIOCTLCommitter(fd uintptr) TestCommitter {
	return ioctlCommitter{}
}

func (ioctlCommitter) TestOnlyCommit(req *Request) error {
	return fmt.Errorf("DRM ioctls only supported on Linux")
}
