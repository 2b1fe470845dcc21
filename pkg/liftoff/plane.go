package liftoff

// PlaneType mirrors the kernel's DRM_PLANE_TYPE_* enumeration.
type PlaneType int

const (
	PlaneTypePrimary PlaneType = iota
	PlaneTypeOverlay
	PlaneTypeCursor
)

// typeRank orders plane types for the §4.3 DFS axis: primary first,
// then overlay, then cursor.
func (t PlaneType) typeRank() int {
	switch t {
	case PlaneTypePrimary:
		return 0
	case PlaneTypeOverlay:
		return 1
	case PlaneTypeCursor:
		return 2
	default:
		return 3
	}
}

// Plane represents one hardware scanout plane.
type Plane struct {
	ID            uint32
	PossibleCRTCs uint32
	Type          PlaneType
	Zpos          int

	props *planeProperties

	// layer is a non-owning back-reference to the layer assigned to this
	// plane by the last completed search on its output, or nil. It is
	// rewritten at the end of each fresh search.
	layer *Layer
}

// PlaneProperty describes one property a plane advertises, as reported
// by a PlaneDiscoverer.
type PlaneProperty struct {
	ID   uint32
	Name string
}

// PlaneDescriptor is everything the Device needs to know about a plane
// before it can be used in a search: its identity, CRTC compatibility,
// type, stacking position, and advertised properties. Produced by a
// PlaneDiscoverer.
type PlaneDescriptor struct {
	ID            uint32
	PossibleCRTCs uint32
	Type          PlaneType
	Zpos          int
	Properties    []PlaneProperty
}

func newPlane(d PlaneDescriptor) *Plane {
	props := make([]planeProperty, len(d.Properties))
	for i, p := range d.Properties {
		props[i] = planeProperty{ID: p.ID, Name: p.Name}
	}
	return &Plane{
		ID:            d.ID,
		PossibleCRTCs: d.PossibleCRTCs,
		Type:          d.Type,
		Zpos:          d.Zpos,
		props:         newPlaneProperties(props),
	}
}

// CompatibleWithCRTC reports whether this plane can be driven by the
// CRTC at the given index, per the possible_crtcs bitmask invariant in
// spec.md §3.
func (p *Plane) CompatibleWithCRTC(crtcIndex int) bool {
	if crtcIndex < 0 || crtcIndex >= 32 {
		return false
	}
	return p.PossibleCRTCs&(uint32(1)<<uint(crtcIndex)) != 0
}

// Layer returns the layer assigned to this plane by the last completed
// search, or nil.
func (p *Plane) Layer() *Layer {
	return p.layer
}

// sortPlanes orders planes once per device in the stable order used as
// the outer DFS axis (spec.md §4.3): ascending type rank, ties broken
// by ascending zpos.
func sortPlanes(planes []*Plane) {
	// Insertion sort: plane counts are small (single digits to low
	// tens) and this keeps the ordering obviously stable, which the
	// spec requires of ties.
	for i := 1; i < len(planes); i++ {
		j := i
		for j > 0 && planeLess(planes[j], planes[j-1]) {
			planes[j], planes[j-1] = planes[j-1], planes[j]
			j--
		}
	}
}

func planeLess(a, b *Plane) bool {
	ra, rb := a.Type.typeRank(), b.Type.typeRank()
	if ra != rb {
		return ra < rb
	}
	return a.Zpos < b.Zpos
}
