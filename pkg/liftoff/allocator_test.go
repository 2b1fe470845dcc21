package liftoff

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S1: a single full-screen layer lands on the primary plane.
func TestApply_SingleFullScreenLayer_UsesPrimaryPlane(t *testing.T) {
	committer := newFakeCommitter()
	dev, out := newTestDevice(t, committer)

	l := out.NewLayer()
	setFullScreenLayer(l, 1, 0)

	req := NewRequest()
	require.NoError(t, dev.Apply(req))

	assert.EqualValues(t, 10, l.PlaneID())
	assert.Greater(t, req.Len(), 0)
}

// S2: three non-overlapping layers each land on a distinct plane.
func TestApply_ThreeNonOverlappingLayers_GetDistinctPlanes(t *testing.T) {
	committer := newFakeCommitter()
	dev, out := newTestDevice(t, committer)

	l1 := out.NewLayer()
	setRectLayer(l1, 1, 0, 0, 640, 360, 0)
	l2 := out.NewLayer()
	setRectLayer(l2, 2, 640, 0, 640, 360, 1)
	l3 := out.NewLayer()
	setRectLayer(l3, 3, 0, 360, 640, 360, 2)

	req := NewRequest()
	require.NoError(t, dev.Apply(req))

	ids := map[uint32]bool{l1.PlaneID(): true, l2.PlaneID(): true, l3.PlaneID(): true}
	assert.Len(t, ids, 3, "each layer should win a distinct plane")
	for _, id := range []uint32{l1.PlaneID(), l2.PlaneID(), l3.PlaneID()} {
		assert.NotZero(t, id)
	}
}

// S3: more overlapping visible layers than planes forces at least one
// layer into composition (plane id 0).
func TestApply_OversubscribedOverlappingLayers_ForcesComposition(t *testing.T) {
	committer := newFakeCommitter()
	dev, out := newTestDevice(t, committer)

	layers := make([]*Layer, 5)
	for i := range layers {
		l := out.NewLayer()
		setFullScreenLayer(l, uint64(i+1), uint64(i))
		layers[i] = l
	}

	req := NewRequest()
	require.NoError(t, dev.Apply(req))

	composited := 0
	for _, l := range layers {
		if l.PlaneID() == 0 {
			composited++
		}
	}
	assert.Greater(t, composited, 0, "with only 3 planes and 5 overlapping layers some must composite")
}

// S4: priority rotation over 120 flips (two full periods) promotes
// pending priority into current priority at each period boundary.
func TestNotifyPageFlip_RotatesPriorityAtPeriodBoundary(t *testing.T) {
	committer := newFakeCommitter()
	dev, out := newTestDevice(t, committer)

	l := out.NewLayer()
	setFullScreenLayer(l, 1, 0)

	for i := 0; i < PriorityPeriod-1; i++ {
		require.NoError(t, l.SetProperty("FB_ID", uint64(i+2)))
		dev.NotifyPageFlip()
	}
	assert.Equal(t, 0, l.currentPriority, "priority should not rotate before the period boundary")

	require.NoError(t, l.SetProperty("FB_ID", 999))
	dev.NotifyPageFlip()
	assert.Equal(t, PriorityPeriod, dev.PageFlipCounter())
	assert.Greater(t, l.currentPriority, 0, "priority should rotate exactly at the period boundary")

	for i := 0; i < PriorityPeriod; i++ {
		dev.NotifyPageFlip()
	}
	assert.Equal(t, 2*PriorityPeriod, dev.PageFlipCounter())
}

// S5: a kernel rejection on one plane forces the search to backtrack
// onto a different plane for the same layer.
func TestApply_KernelRejectsOnePlane_BacktracksToAnother(t *testing.T) {
	committer := newFakeCommitter()
	committer.rejectPlane(10) // reject the primary plane outright

	dev, out := newTestDevice(t, committer)
	l := out.NewLayer()
	setFullScreenLayer(l, 1, 0)

	req := NewRequest()
	require.NoError(t, dev.Apply(req))

	assert.NotEqualValues(t, 10, l.PlaneID())
	assert.NotZero(t, l.PlaneID(), "layer should still land on an overlay plane")
}

// S6: an unchanged output reuses its cached allocation and issues zero
// additional TEST_ONLY probes.
func TestApply_UnchangedOutput_ReusesCacheWithoutProbing(t *testing.T) {
	committer := newFakeCommitter()
	dev, out := newTestDevice(t, committer)

	l := out.NewLayer()
	setFullScreenLayer(l, 1, 0)

	req1 := NewRequest()
	require.NoError(t, dev.Apply(req1))
	firstProbeCount := dev.TestCommitCounter()
	assert.Greater(t, firstProbeCount, 0)

	req2 := NewRequest()
	require.NoError(t, dev.Apply(req2))
	assert.Equal(t, firstProbeCount, dev.TestCommitCounter(), "second apply on an unchanged output must not probe")
	assert.Equal(t, 1, out.AllocReusedCount())
	assert.Equal(t, req1.Len(), req2.Len())
}

// Changing a layer's property invalidates the cache and forces a
// fresh search on the next Apply.
func TestApply_ChangedLayer_InvalidatesCache(t *testing.T) {
	committer := newFakeCommitter()
	dev, out := newTestDevice(t, committer)

	l := out.NewLayer()
	setFullScreenLayer(l, 1, 0)

	req1 := NewRequest()
	require.NoError(t, dev.Apply(req1))
	firstProbeCount := dev.TestCommitCounter()

	require.NoError(t, l.SetProperty("FB_ID", 2))
	req2 := NewRequest()
	require.NoError(t, dev.Apply(req2))
	assert.Greater(t, dev.TestCommitCounter(), firstProbeCount)
	assert.Equal(t, 0, out.AllocReusedCount())
}

// A layer marked force-composition is never assigned a plane, even
// when one is free.
func TestApply_ForceCompositionLayer_NeverGetsAPlane(t *testing.T) {
	committer := newFakeCommitter()
	dev, out := newTestDevice(t, committer)

	l := out.NewLayer()
	setFullScreenLayer(l, 1, 0)
	l.SetForceComposition(true)

	req := NewRequest()
	require.NoError(t, dev.Apply(req))
	assert.Zero(t, l.PlaneID())
}

// When every plane rejects any use, Apply still succeeds and the layer
// falls back to composition instead of surfacing ErrKernelRejected.
func TestApply_EverythingRejected_FallsBackToComposition(t *testing.T) {
	committer := newFakeCommitter()
	committer.rejectPlane(10)
	committer.rejectPlane(11)
	committer.rejectPlane(12)

	dev, out := newTestDevice(t, committer)
	l := out.NewLayer()
	setFullScreenLayer(l, 1, 0)
	_ = out

	req := NewRequest()
	err := dev.Apply(req)
	// All three planes reject any use, but the all-composited (no
	// plane used at all) assignment issues no probes and always
	// succeeds, so Apply should still succeed with the layer composited.
	require.NoError(t, err)
	assert.Zero(t, l.PlaneID())
	assert.False(t, errors.Is(err, ErrKernelRejected))
}

// An invisible layer (zero size, or no framebuffer) is never assigned
// a plane and never probed.
func TestApply_InvisibleLayer_NeverProbed(t *testing.T) {
	committer := newFakeCommitter()
	dev, out := newTestDevice(t, committer)

	l := out.NewLayer()
	_ = l.SetProperty("CRTC_X", 0)
	_ = l.SetProperty("CRTC_Y", 0)
	_ = l.SetProperty("CRTC_W", 100)
	_ = l.SetProperty("CRTC_H", 100)
	// No FB_ID set: HasFB() is false, so IsVisible() is false.

	req := NewRequest()
	require.NoError(t, dev.Apply(req))
	assert.Zero(t, l.PlaneID())
	assert.Equal(t, 0, committer.commits)
}
