package liftoff

import (
	"fmt"

	"github.com/google/uuid"
)

// maxProbesPerOutput bounds TEST_ONLY probes per output per Apply, per
// spec.md §5's "implementations MAY impose a probe budget" — the bound
// only ever trims alternatives the search would have explored after
// already having *a* valid candidate, so it can't turn a satisfiable
// output into a failed one; it can only stop it from finding a
// strictly better-scoring assignment. The DFS order is fixed, so the
// result stays deterministic for identical inputs (spec.md §5).
const maxProbesPerOutput = 512

// allocation is the cached result of a successful search: for each
// plane position considered, which layer (if any) ended up assigned to
// it. Reused verbatim while nothing on the output changed (spec.md
// §4.5).
type allocation struct {
	planes []*Plane
	layers []*Layer // parallel to planes; nil means that plane is unused
}

// Apply runs the allocator across every output managed by this device
// and appends the chosen assignments to req. It returns
// ErrKernelRejected if the search for some output ends with no
// assignment recorded. The all-composited assignment is accepted
// without a TEST_ONLY probe, and probes run on a scratch request that
// holds only the allocator's own writes, so entries already in req are
// never validated here and a search always ends with at least one
// assignment recorded.
func (d *Device) Apply(req *Request) error {
	for _, o := range d.outputs {
		if err := d.applyOutput(o, req); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) applyOutput(o *Output, req *Request) error {
	attemptID := uuid.NewString()
	logger := d.logger.With("output_crtc", o.crtcID, "attempt_id", attemptID)

	if !o.layersChanged && !o.anyLayerChanged() && o.lastAlloc != nil {
		logger.Debug("reusing cached allocation", "probes", 0)
		emitAllocation(req, o, o.lastAlloc)
		o.allocReusedCount++
		return nil
	}

	planes := d.planesForCRTC(o.crtcIndex)
	layers := orderedLayers(o)

	s := &searchState{
		device:    d,
		output:    o,
		planes:    planes,
		layers:    layers,
		assign:    make([]*Layer, len(planes)),
		usedLayer: make([]bool, len(layers)),
		scratch:   NewRequest(),
		logger:    logger,
	}
	s.countEligible()
	s.run(0)

	if s.best == nil {
		return fmt.Errorf("%w: output crtc %d", ErrKernelRejected, o.crtcID)
	}

	alloc := &allocation{planes: planes, layers: s.best}
	emitAllocation(req, o, alloc)

	for _, p := range planes {
		p.layer = nil
	}
	for i, layer := range alloc.layers {
		if layer != nil {
			planes[i].layer = layer
		}
	}
	for _, l := range layers {
		if plane := findAssignedPlane(planes, alloc.layers, l); plane != nil {
			l.plane = plane
		} else {
			l.plane = nil
		}
		l.markClean()
	}
	o.layersChanged = false
	o.lastAlloc = alloc
	o.LogLayers(logger)

	logger.Info("allocation complete", "probes", s.probes, "assigned", countAssigned(alloc.layers))

	return nil
}

func findAssignedPlane(planes []*Plane, layers []*Layer, l *Layer) *Plane {
	for i, pl := range layers {
		if pl == l {
			return planes[i]
		}
	}
	return nil
}

func countAssigned(layers []*Layer) int {
	n := 0
	for _, l := range layers {
		if l != nil {
			n++
		}
	}
	return n
}

// searchState carries one output's backtracking search over the
// Cartesian product of plane positions and eligible layers.
type searchState struct {
	device *Device
	output *Output

	planes []*Plane
	layers []*Layer

	assign    []*Layer // per plane position, current tentative assignment
	usedLayer []bool   // per layer index, currently assigned somewhere

	scratch *Request
	probes  int
	logger  interface {
		Debug(msg string, args ...any)
	}

	eligible  int // count of layers that could ever be assigned (visible, not force-composited)
	best      []*Layer
	bestScore searchScore
	foundFull bool
}

func (s *searchState) countEligible() {
	for _, l := range s.layers {
		if l.IsVisible() && !l.forceComposition {
			s.eligible++
		}
	}
}

// searchScore is compared lexicographically, highest wins: number of
// assigned layers first, then the priority-weighted sum, then fewer
// z-order inversions, then a preference for lower-ranked planes (by
// type first, primary before overlay before cursor, then by lower
// zpos) among otherwise-tied assignments (spec.md §4.6 step 4).
type searchScore struct {
	assignedCount int
	weightedSum   int
	inversions    int
	planeRankSum  int
}

func (a searchScore) better(b searchScore) bool {
	if a.assignedCount != b.assignedCount {
		return a.assignedCount > b.assignedCount
	}
	if a.weightedSum != b.weightedSum {
		return a.weightedSum > b.weightedSum
	}
	if a.inversions != b.inversions {
		return a.inversions < b.inversions
	}
	return a.planeRankSum < b.planeRankSum
}

func (s *searchState) run(pos int) {
	if s.foundFull || s.probes >= maxProbesPerOutput {
		s.evaluateLeaf()
		return
	}
	if pos == len(s.planes) {
		s.evaluateLeaf()
		return
	}

	// Assignment branches are tried before the skip branch: §4.6 step 2
	// orders plane positions outer, layers inner, and prefers using a
	// plane over leaving it idle, so a single full-screen layer lands on
	// the first (lowest type-rank/zpos, i.e. primary) compatible plane
	// rather than whichever plane the search happens to reach last.
	plane := s.planes[pos]
	for li, layer := range s.layers {
		if s.foundFull || s.probes >= maxProbesPerOutput {
			break
		}
		if s.usedLayer[li] || layer.forceComposition || !layer.IsVisible() {
			continue
		}
		if !s.candidateCompatible(plane, layer) {
			continue
		}

		base := s.scratch.Len()
		stampAssignment(s.scratch, plane, layer, s.output.crtcID)
		s.probes++
		err := s.device.testCommit(s.scratch)
		s.logger.Debug("candidate probe", "plane_id", plane.ID, "layer_index", li, "ok", err == nil)
		if err != nil {
			s.scratch.Truncate(base)
			continue
		}

		s.usedLayer[li] = true
		s.assign[pos] = layer
		s.run(pos + 1)
		s.usedLayer[li] = false
		s.assign[pos] = nil
		s.scratch.Truncate(base)

		if s.foundFull {
			return
		}
	}

	if s.foundFull {
		return
	}

	// Skip branch: always a valid local choice, no probe needed. Tried
	// last so it never preempts a plane this layer could have used. Once
	// the probe budget is spent, this branch still runs so the current
	// (already probed) partial assignment gets evaluated as a leaf.
	s.assign[pos] = nil
	s.run(pos + 1)
}

// candidateCompatible applies the §4.6 pre-filter: the cursor-plane
// size hint if the device has one. Z-order sanity is not a hard
// pre-filter here — a pair of overlapping layers assigned to
// mis-ordered planes is still a valid, TEST_ONLY-acceptable
// assignment, just a worse one, so it is scored (and penalized) in
// evaluateLeaf's inversions count instead of excluded from the search.
func (s *searchState) candidateCompatible(plane *Plane, layer *Layer) bool {
	if plane.Type == PlaneTypeCursor && s.device.cursorWidth > 0 && s.device.cursorHeight > 0 {
		r := layer.GetRect()
		if uint32(r.Width) != s.device.cursorWidth || uint32(r.Height) != s.device.cursorHeight {
			return false
		}
	}
	return true
}

func (s *searchState) evaluateLeaf() {
	score := searchScore{}
	for pos, layer := range s.assign {
		if layer == nil {
			continue
		}
		score.assignedCount++
		score.weightedSum += layer.currentPriority + 1
		score.planeRankSum += s.planes[pos].Type.typeRank()*1000 + s.planes[pos].Zpos
		for pos2, other := range s.assign {
			if other == nil || pos2 == pos {
				continue
			}
			if !intersects(layer.GetRect(), other.GetRect()) {
				continue
			}
			lz, lok := layer.props.coreValue(PropZPos)
			oz, ook := other.props.coreValue(PropZPos)
			if !lok || !ook {
				continue
			}
			if lz < oz && s.planes[pos].Zpos > s.planes[pos2].Zpos {
				score.inversions++
			}
		}
	}

	if s.best == nil || score.better(s.bestScore) {
		s.best = append([]*Layer(nil), s.assign...)
		s.bestScore = score
	}
	if score.assignedCount == s.eligible {
		s.foundFull = true
	}
}

// stampAssignment stages the plane's core and advertised non-core
// property writes for assigning layer to plane (spec.md §4.6 step 3,
// §4.7): CRTC_ID plus every core property the layer has and the plane
// advertises, then every non-core property the layer sets that the
// plane also advertises. Properties the plane doesn't advertise are
// silently dropped.
func stampAssignment(req *Request, plane *Plane, layer *Layer, crtcID uint32) {
	if pp, ok := plane.props.core_(PropCRTCID); ok {
		req.AddProperty(plane.ID, pp.ID, uint64(crtcID))
	}
	for prop := PropFBID; prop < propLast; prop++ {
		if prop == PropCRTCID {
			continue
		}
		pp, ok := plane.props.core_(prop)
		if !ok {
			continue
		}
		v, ok := layer.props.coreValue(prop)
		if !ok {
			continue
		}
		req.AddProperty(plane.ID, pp.ID, v)
	}
	for _, p := range layer.props.all {
		if p.isCoreProp {
			continue
		}
		if pp, ok := plane.props.find(p.Name); ok {
			req.AddProperty(plane.ID, pp.ID, p.Value)
		}
	}
}

// emitAllocation writes the final, chosen assignment into req: unused
// planes get disabled (CRTC_ID=0, FB_ID=0 if advertised), used planes
// get the full property stamp (spec.md §4.7).
func emitAllocation(req *Request, o *Output, alloc *allocation) {
	for i, plane := range alloc.planes {
		layer := alloc.layers[i]
		if layer == nil {
			if pp, ok := plane.props.core_(PropCRTCID); ok {
				req.AddProperty(plane.ID, pp.ID, 0)
			}
			if pp, ok := plane.props.core_(PropFBID); ok {
				req.AddProperty(plane.ID, pp.ID, 0)
			}
			continue
		}
		stampAssignment(req, plane, layer, o.crtcID)
	}
}
