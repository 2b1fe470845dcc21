package liftoff

import "fmt"

// defaultDiscoverer is the real, ioctl-backed PlaneDiscoverer used
// whenever DeviceCreate isn't given WithPlaneDiscoverer.
type defaultDiscoverer struct{}

func (defaultDiscoverer) DiscoverCRTCs(fd uintptr) ([]uint32, error) {
	return discoverCRTCIDs(fd)
}

func (defaultDiscoverer) DiscoverPlanes(fd uintptr, crtcIDs []uint32) ([]PlaneDescriptor, error) {
	planeIDs, err := discoverPlaneIDs(fd)
	if err != nil {
		return nil, err
	}

	descs := make([]PlaneDescriptor, 0, len(planeIDs))
	for _, id := range planeIDs {
		gp, err := getPlane(fd, id)
		if err != nil {
			return nil, err
		}
		props, values, err := getObjectProperties(fd, id)
		if err != nil {
			return nil, fmt.Errorf("plane %d properties: %w", id, err)
		}

		d := PlaneDescriptor{
			ID:            id,
			PossibleCRTCs: gp.PossibleCrtcs,
			Properties:    props,
		}
		for _, p := range props {
			switch p.Name {
			case "type":
				d.Type = planeTypeFromValue(values[p.ID])
			case "zpos":
				d.Zpos = int(int32(values[p.ID]))
			}
		}
		descs = append(descs, d)
	}
	return descs, nil
}

type ioctlCommitter struct {
	fd uintptr
}

func newIOCTLCommitter(fd uintptr) TestCommitter {
	return ioctlCommitter{fd: fd}
}

func (c ioctlCommitter) TestOnlyCommit(req *Request) error {
	if err := atomicTestOnlyCommit(c.fd, req); err != nil {
		return fmt.Errorf("%w: %v", ErrKernelRejected, err)
	}
	return nil
}
