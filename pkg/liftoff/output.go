package liftoff

import "log/slog"

// Output groups the layers targeting one CRTC.
type Output struct {
	device    *Device
	crtcID    uint32
	crtcIndex int

	layers           []*Layer
	compositionLayer *Layer

	layersChanged     bool
	allocReusedCount  int

	pageFlipCount int
	lastAlloc     *allocation
}

// OutputCreate creates an Output bound to the given CRTC. The CRTC must
// be present in the Device's CRTC table (populated at device creation).
func (d *Device) OutputCreate(crtcID uint32) (*Output, error) {
	idx, ok := d.crtcIndex(crtcID)
	if !ok {
		return nil, ErrInvalidArgument
	}
	o := &Output{
		device:        d,
		crtcID:        crtcID,
		crtcIndex:     idx,
		layersChanged: true,
	}
	d.outputs = append(d.outputs, o)
	return o, nil
}

// Destroy removes the output (and, implicitly, stops it from being
// considered by future Apply calls) from its device.
func (o *Output) Destroy() {
	d := o.device
	for i, other := range d.outputs {
		if other == o {
			d.outputs = append(d.outputs[:i], d.outputs[i+1:]...)
			break
		}
	}
}

// CRTCID returns the CRTC this output targets.
func (o *Output) CRTCID() uint32 {
	return o.crtcID
}

// SetCompositionLayer designates one of this output's layers as the
// scratch framebuffer that absorbs layers not assigned to planes. Pass
// nil to clear it. The layer must belong to this output.
func (o *Output) SetCompositionLayer(l *Layer) error {
	if l != nil {
		owned := false
		for _, other := range o.layers {
			if other == l {
				owned = true
				break
			}
		}
		if !owned {
			return ErrInvalidArgument
		}
	}
	if o.compositionLayer != l {
		o.compositionLayer = l
		o.layersChanged = true
	}
	return nil
}

// CompositionLayer returns the output's designated composition layer,
// or nil.
func (o *Output) CompositionLayer() *Layer {
	return o.compositionLayer
}

// AllocReusedCount returns how many times this output's allocation was
// reused verbatim (spec.md §4.5, P4) rather than freshly searched.
func (o *Output) AllocReusedCount() int {
	return o.allocReusedCount
}

// anyLayerChanged reports whether any layer on this output has an
// unflushed property write or force-composition toggle.
func (o *Output) anyLayerChanged() bool {
	for _, l := range o.layers {
		if l.changed {
			return true
		}
	}
	return false
}

// LogLayers dumps every layer's current rect, priority, and plane
// assignment at DEBUG level. Corresponds to output_log_layers in the
// original library; useful standalone for diagnostics, and called by
// the allocator after each search.
func (o *Output) LogLayers(logger *slog.Logger) {
	logger = orDefault(logger)
	for i, l := range o.layers {
		r := l.GetRect()
		logger.Debug("layer",
			"output_crtc", o.crtcID,
			"index", i,
			"rect", r,
			"current_priority", l.currentPriority,
			"pending_priority", l.pendingPriority,
			"force_composition", l.forceComposition,
			"plane_id", l.PlaneID(),
		)
	}
}
