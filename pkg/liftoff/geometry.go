package liftoff

// Rect is an axis-aligned integer rectangle derived from a Layer's
// CRTC_{X,Y,W,H} properties.
type Rect struct {
	X, Y          int
	Width, Height int
}

// GetRect reads CRTC_{X,Y,W,H} off the layer; any component not yet set
// defaults to 0.
func (l *Layer) GetRect() Rect {
	x, _ := l.props.coreValue(PropCRTCX)
	y, _ := l.props.coreValue(PropCRTCY)
	w, _ := l.props.coreValue(PropCRTCW)
	h, _ := l.props.coreValue(PropCRTCH)
	return Rect{X: int(int32(x)), Y: int(int32(y)), Width: int(w), Height: int(h)}
}

// intersects reports axis-aligned overlap between two rects.
func intersects(a, b Rect) bool {
	if a.Width <= 0 || a.Height <= 0 || b.Width <= 0 || b.Height <= 0 {
		return false
	}
	return a.X < b.X+b.Width && b.X < a.X+a.Width &&
		a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
}

// Intersects reports whether two layers' CRTC rects overlap.
func (l *Layer) Intersects(other *Layer) bool {
	return intersects(l.GetRect(), other.GetRect())
}

// HasFB reports whether the layer has a non-zero FB_ID set.
func (l *Layer) HasFB() bool {
	fb, ok := l.props.coreValue(PropFBID)
	return ok && fb != 0
}

// IsVisible reports whether the layer has positive width and height and
// a framebuffer.
func (l *Layer) IsVisible() bool {
	r := l.GetRect()
	return r.Width > 0 && r.Height > 0 && l.HasFB()
}
