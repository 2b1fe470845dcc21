package liftoff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayerProperties_SetReturnsWhetherValueChanged(t *testing.T) {
	lp := newLayerProperties()
	assert.True(t, lp.set("ZPOS", 1))
	assert.False(t, lp.set("ZPOS", 1), "setting the same value again should report no change")
	assert.True(t, lp.set("ZPOS", 2))
}

func TestLayerProperties_SetStampsPreviousValue(t *testing.T) {
	lp := newLayerProperties()
	lp.set("ALPHA", 10)
	lp.set("ALPHA", 20)

	var found *layerProperty
	for _, p := range lp.all {
		if p.Name == "ALPHA" {
			found = p
		}
	}
	if assert.NotNil(t, found) {
		assert.EqualValues(t, 20, found.Value)
		assert.EqualValues(t, 10, found.PrevValue)
	}
}

func TestLayerProperties_CoreValueFastPath(t *testing.T) {
	lp := newLayerProperties()
	lp.set("ZPOS", 5)

	v, ok := lp.coreValue(PropZPos)
	assert.True(t, ok)
	assert.EqualValues(t, 5, v)

	_, ok = lp.coreValue(PropAlpha)
	assert.False(t, ok)
}

func TestLayerProperties_UnknownNameIsNotCore(t *testing.T) {
	lp := newLayerProperties()
	lp.set("VENDOR_SPECIAL_THING", 1)

	v, ok := lp.get("VENDOR_SPECIAL_THING")
	assert.True(t, ok)
	assert.EqualValues(t, 1, v)

	for _, p := range lp.all {
		assert.False(t, p.isCoreProp)
	}
}

func TestLayerProperties_MarkCleanStampsPrevValue(t *testing.T) {
	lp := newLayerProperties()
	lp.set("ZPOS", 1)
	lp.set("ZPOS", 2)
	lp.markClean()

	for _, p := range lp.all {
		assert.Equal(t, p.Value, p.PrevValue)
	}
}

func TestPlaneProperties_CoreLookup(t *testing.T) {
	pp := newPlaneProperties([]planeProperty{
		{ID: 1, Name: "CRTC_ID"},
		{ID: 2, Name: "FB_ID"},
		{ID: 3, Name: "VENDOR_X"},
	})

	p, ok := pp.core_(PropCRTCID)
	if assert.True(t, ok) {
		assert.EqualValues(t, 1, p.ID)
	}

	_, ok = pp.core_(PropZPos)
	assert.False(t, ok, "ZPOS wasn't advertised by this plane")

	found, ok := pp.find("VENDOR_X")
	if assert.True(t, ok) {
		assert.EqualValues(t, 3, found.ID)
	}
}

func TestCorePropertyIndex_KnownAndUnknownNames(t *testing.T) {
	idx, ok := corePropertyIndex("ZPOS")
	assert.True(t, ok)
	assert.Equal(t, PropZPos, idx)

	_, ok = corePropertyIndex("NOT_A_REAL_PROPERTY")
	assert.False(t, ok)
}
