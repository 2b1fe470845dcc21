package liftoff

// priorityCap bounds pending_priority growth per period (spec.md §4.4,
// a tuning knob the spec leaves open; see SPEC_FULL.md's Open Question
// Decisions for the rationale).
const priorityCap = 4

// Layer is a client-facing logical surface targeting one Output.
type Layer struct {
	output *Output
	props  *layerProperties

	forceComposition bool
	changed          bool

	currentPriority int
	pendingPriority int

	// plane is the non-owning back-reference to the plane this layer was
	// assigned to on the last successful apply, or nil.
	plane *Plane
}

// NewLayer creates a layer belonging to the given output.
func (o *Output) NewLayer() *Layer {
	l := &Layer{output: o, props: newLayerProperties()}
	o.layers = append(o.layers, l)
	o.layersChanged = true
	return l
}

// Destroy removes the layer from its output. If it was the output's
// composition layer, that pointer is cleared too.
func (l *Layer) Destroy() {
	o := l.output
	for i, other := range o.layers {
		if other == l {
			o.layers = append(o.layers[:i], o.layers[i+1:]...)
			break
		}
	}
	if o.compositionLayer == l {
		o.compositionLayer = nil
	}
	o.layersChanged = true
}

// SetProperty sets a named property on the layer. Setting a new value
// stamps previous_value <- current_value, writes the new value, and
// marks the layer changed; writing the value the property already
// holds changes nothing. Unknown property names are accepted; their validity
// against the eventually-assigned plane is only discovered at TEST_ONLY
// time (spec.md §4.1).
func (l *Layer) SetProperty(name string, value uint64) error {
	if len(name) > drmPropNameLen {
		return ErrInvalidArgument
	}
	if l.props.set(name, value) {
		l.changed = true
		l.updatePriority(false)
	}
	return nil
}

// GetProperty reads a named property's current value.
func (l *Layer) GetProperty(name string) (uint64, bool) {
	return l.props.get(name)
}

// SetForceComposition marks whether this layer must never be assigned
// to a plane during allocation, always falling back to the output's
// composition layer.
func (l *Layer) SetForceComposition(force bool) {
	if l.forceComposition != force {
		l.forceComposition = force
		l.changed = true
	}
}

// ForceComposition reports the current force-composition state.
func (l *Layer) ForceComposition() bool {
	return l.forceComposition
}

// PlaneID returns the id of the plane this layer is currently assigned
// to, or 0 if it is being composited.
func (l *Layer) PlaneID() uint32 {
	if l.plane == nil {
		return 0
	}
	return l.plane.ID
}

// BumpPriorityNow rotates this single layer's priority immediately,
// independent of the page-flip period boundary: current_priority takes
// whatever pending_priority has accumulated so far and pending_priority
// resets to 0. This is the `make_current=true` path from
// layer_update_priority (spec.md §9's Open Question); callers use it
// when they know out of band that a layer just became critical (e.g. a
// freshly-visible video layer) and don't want to wait out a full
// LIFTOFF_PRIORITY_PERIOD before it can win a plane.
func (l *Layer) BumpPriorityNow() {
	l.updatePriority(true)
}

// updatePriority is the shared priority-update path. make_current=false
// is the steady-state per-property-write increment (capped); true is
// the immediate-rotation path used both here and by Device.NotifyPageFlip
// at the period boundary.
func (l *Layer) updatePriority(makeCurrent bool) {
	if makeCurrent {
		l.currentPriority = l.pendingPriority
		l.pendingPriority = 0
		return
	}
	if l.pendingPriority < priorityCap {
		l.pendingPriority++
	}
}

func (l *Layer) markClean() {
	l.changed = false
	l.props.markClean()
}
