package liftoff

// CoreProperty enumerates the KMS properties the allocator understands
// by name and needs to read or write on a hot path. Everything else is
// a plain name in a plane's or layer's property list.
type CoreProperty int

const (
	PropFBID CoreProperty = iota
	PropCRTCID
	PropCRTCX
	PropCRTCY
	PropCRTCW
	PropCRTCH
	PropSRCX
	PropSRCY
	PropSRCW
	PropSRCH
	PropZPos
	PropAlpha
	PropRotation
	propLast // keep last
)

var corePropertyNames = [propLast]string{
	PropFBID:     "FB_ID",
	PropCRTCID:   "CRTC_ID",
	PropCRTCX:    "CRTC_X",
	PropCRTCY:    "CRTC_Y",
	PropCRTCW:    "CRTC_W",
	PropCRTCH:    "CRTC_H",
	PropSRCX:     "SRC_X",
	PropSRCY:     "SRC_Y",
	PropSRCW:     "SRC_W",
	PropSRCH:     "SRC_H",
	PropZPos:     "ZPOS",
	PropAlpha:    "ALPHA",
	PropRotation: "ROTATION",
}

func corePropertyIndex(name string) (CoreProperty, bool) {
	for i, n := range corePropertyNames {
		if n == name {
			return CoreProperty(i), true
		}
	}
	return 0, false
}

// planeProperty is a single property a plane advertises, as discovered
// from the kernel (or a fake, in tests): a stable id plus its name.
type planeProperty struct {
	ID   uint32
	Name string
}

// planeProperties is the property table owned by a Plane: the set of
// properties the kernel reports it supports, plus a fast lookup from
// CoreProperty to the matching entry (or nil if the plane doesn't
// advertise it).
type planeProperties struct {
	all  []planeProperty
	core [propLast]*planeProperty
}

func newPlaneProperties(props []planeProperty) *planeProperties {
	pp := &planeProperties{all: props}
	for i := range pp.all {
		p := &pp.all[i]
		if idx, ok := corePropertyIndex(p.Name); ok {
			pp.core[idx] = p
		}
	}
	return pp
}

func (pp *planeProperties) find(name string) (*planeProperty, bool) {
	for i := range pp.all {
		if pp.all[i].Name == name {
			return &pp.all[i], true
		}
	}
	return nil, false
}

func (pp *planeProperties) core_(prop CoreProperty) (*planeProperty, bool) {
	p := pp.core[prop]
	return p, p != nil
}

// layerProperty is one entry in a Layer's property bag: the value the
// client last set, the value it had before that, and (if this name
// matches a well-known KMS property) the core index for O(1) lookups.
type layerProperty struct {
	Name       string
	Value      uint64
	PrevValue  uint64
	coreIndex  CoreProperty
	isCoreProp bool
}

// layerProperties is the sparse name -> value map a Layer carries.
// Typical planes expose under 20 properties, so a linearly scanned
// slice is adequate for the non-core path; core properties get an
// array indexed by CoreProperty for the allocator's hot loop.
type layerProperties struct {
	all  []*layerProperty
	core [propLast]*layerProperty
}

func newLayerProperties() *layerProperties {
	return &layerProperties{}
}

// set stamps previous_value <- current_value, writes the new value,
// and returns true if this write actually changed something (used by
// the caller to decide whether to mark the layer dirty).
func (lp *layerProperties) set(name string, value uint64) bool {
	for _, p := range lp.all {
		if p.Name == name {
			if p.Value == value {
				return false
			}
			p.PrevValue = p.Value
			p.Value = value
			return true
		}
	}

	p := &layerProperty{Name: name, Value: value, PrevValue: value}
	if idx, ok := corePropertyIndex(name); ok {
		p.coreIndex = idx
		p.isCoreProp = true
		lp.core[idx] = p
	}
	lp.all = append(lp.all, p)
	return true
}

func (lp *layerProperties) get(name string) (uint64, bool) {
	for _, p := range lp.all {
		if p.Name == name {
			return p.Value, true
		}
	}
	return 0, false
}

func (lp *layerProperties) coreValue(prop CoreProperty) (uint64, bool) {
	p := lp.core[prop]
	if p == nil {
		return 0, false
	}
	return p.Value, true
}

// markClean stamps prev_value := current_value for every property,
// per spec.md §4.7 post-apply bookkeeping.
func (lp *layerProperties) markClean() {
	for _, p := range lp.all {
		p.PrevValue = p.Value
	}
}
