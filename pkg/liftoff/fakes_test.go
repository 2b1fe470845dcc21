package liftoff

// fakeDiscoverer is a hand-written PlaneDiscoverer for tests, in place
// of mocking the real ioctl path, which can't run outside a kernel.
type fakeDiscoverer struct {
	crtcIDs []uint32
	planes  []PlaneDescriptor
}

func (f *fakeDiscoverer) DiscoverCRTCs(fd uintptr) ([]uint32, error) {
	return f.crtcIDs, nil
}

func (f *fakeDiscoverer) DiscoverPlanes(fd uintptr, crtcIDs []uint32) ([]PlaneDescriptor, error) {
	return f.planes, nil
}

// fullPlaneProps builds a plane property list from a name -> id map.
// The fake planes in newTestDevice use standardPlaneProperties instead.
func fullPlaneProps(ids map[string]uint32) []PlaneProperty {
	props := make([]PlaneProperty, 0, len(ids))
	for name, id := range ids {
		props = append(props, PlaneProperty{ID: id, Name: name})
	}
	return props
}

func standardPlaneProperties(base uint32) []PlaneProperty {
	names := []string{
		"FB_ID", "CRTC_ID", "CRTC_X", "CRTC_Y", "CRTC_W", "CRTC_H",
		"SRC_X", "SRC_Y", "SRC_W", "SRC_H", "ZPOS", "ALPHA", "ROTATION",
	}
	props := make([]PlaneProperty, len(names))
	for i, n := range names {
		props[i] = PlaneProperty{ID: base + uint32(i), Name: n}
	}
	return props
}

// fakeCommitter accepts every TEST_ONLY probe unless the request
// assigns a specific (plane id, property id) pair a rejected value, or
// the plane id itself is in rejectedPlanes.
type fakeCommitter struct {
	rejectedPlanes map[uint32]bool
	rejectValue    map[uint32]map[uint32]uint64 // planeID -> propID -> rejected value
	commits        int
}

func newFakeCommitter() *fakeCommitter {
	return &fakeCommitter{
		rejectedPlanes: map[uint32]bool{},
		rejectValue:    map[uint32]map[uint32]uint64{},
	}
}

func (f *fakeCommitter) rejectPlane(planeID uint32) {
	f.rejectedPlanes[planeID] = true
}

func (f *fakeCommitter) rejectPropValue(planeID, propID uint32, value uint64) {
	m, ok := f.rejectValue[planeID]
	if !ok {
		m = map[uint32]uint64{}
		f.rejectValue[planeID] = m
	}
	m[propID] = value
}

func (f *fakeCommitter) TestOnlyCommit(req *Request) error {
	f.commits++
	for _, e := range req.Entries() {
		if f.rejectedPlanes[e.ObjectID] {
			return ErrKernelRejected
		}
		if m, ok := f.rejectValue[e.ObjectID]; ok {
			if v, ok := m[e.PropertyID]; ok && v == e.Value {
				return ErrKernelRejected
			}
		}
	}
	return nil
}

// newTestDevice builds a Device over a fixed three-plane layout: one
// primary, two overlays, all compatible with CRTC index 0, all
// advertising the full standard property set.
func newTestDevice(t testingT, committer TestCommitter) (*Device, *Output) {
	planes := []PlaneDescriptor{
		{ID: 10, PossibleCRTCs: 1, Type: PlaneTypePrimary, Zpos: 0, Properties: standardPlaneProperties(100)},
		{ID: 11, PossibleCRTCs: 1, Type: PlaneTypeOverlay, Zpos: 1, Properties: standardPlaneProperties(200)},
		{ID: 12, PossibleCRTCs: 1, Type: PlaneTypeOverlay, Zpos: 2, Properties: standardPlaneProperties(300)},
	}
	disc := &fakeDiscoverer{crtcIDs: []uint32{1}, planes: planes}

	dev, err := DeviceCreate(0, WithPlaneDiscoverer(disc), WithTestCommitter(committer))
	if err != nil {
		t.Fatalf("DeviceCreate: %v", err)
	}
	out, err := dev.OutputCreate(1)
	if err != nil {
		t.Fatalf("OutputCreate: %v", err)
	}
	return dev, out
}

// testingT is the minimal subset of *testing.T this file needs, so it
// doesn't have to import "testing" directly (kept for the helpers
// above that run before a *testing.T is in scope in some callers).
type testingT interface {
	Fatalf(format string, args ...any)
}

func setFullScreenLayer(l *Layer, fb uint64, zpos uint64) {
	_ = l.SetProperty("FB_ID", fb)
	_ = l.SetProperty("CRTC_X", 0)
	_ = l.SetProperty("CRTC_Y", 0)
	_ = l.SetProperty("CRTC_W", 1920)
	_ = l.SetProperty("CRTC_H", 1080)
	_ = l.SetProperty("ZPOS", zpos)
}

func setRectLayer(l *Layer, fb uint64, x, y, w, h int, zpos uint64) {
	_ = l.SetProperty("FB_ID", fb)
	_ = l.SetProperty("CRTC_X", uint64(int32(x)))
	_ = l.SetProperty("CRTC_Y", uint64(int32(y)))
	_ = l.SetProperty("CRTC_W", uint64(w))
	_ = l.SetProperty("CRTC_H", uint64(h))
	_ = l.SetProperty("ZPOS", zpos)
}
