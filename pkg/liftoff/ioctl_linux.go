package liftoff

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DRM ioctl numbers and wire structs, following the same _IO/_IOR/_IOW/_IOWR
// encoding the kernel UAPI uses:
//
//	_IOR(type, nr, size)  = 0x80000000 | (size << 16) | (type << 8) | nr
//	_IOW(type, nr, size)  = 0x40000000 | (size << 16) | (type << 8) | nr
//	_IOWR(type, nr, size) = 0xC0000000 | (size << 16) | (type << 8) | nr
//
// 'd' (0x64) is the DRM ioctl type on every architecture this module
// targets.
const (
	// DRM_IOCTL_MODE_GETRESOURCES = _IOWR('d', 0xA0, struct drm_mode_card_res), 64 bytes
	ioctlModeGetResources = 0xc04064a0

	// DRM_IOCTL_MODE_GETPLANERESOURCES = _IOWR('d', 0xB5, struct drm_mode_get_plane_res), 16 bytes
	ioctlModeGetPlaneResources = 0xc01064b5

	// DRM_IOCTL_MODE_GETPLANE = _IOWR('d', 0xB6, struct drm_mode_get_plane), 32 bytes
	ioctlModeGetPlane = 0xc02064b6

	// DRM_IOCTL_MODE_OBJ_GETPROPERTIES = _IOWR('d', 0xB9, struct drm_mode_obj_get_properties), 32 bytes
	ioctlModeObjGetProperties = 0xc02064b9

	// DRM_IOCTL_MODE_GETPROPERTY = _IOWR('d', 0xAA, struct drm_mode_get_property), 24+32+... bytes
	ioctlModeGetProperty = 0xc05064aa

	// DRM_IOCTL_MODE_ATOMIC = _IOWR('d', 0xBC, struct drm_mode_atomic), 56 bytes
	ioctlModeAtomic = 0xc03864bc
)

// DRM_MODE_OBJECT_PLANE identifies the object type passed to
// OBJ_GETPROPERTIES for a plane.
const drmModeObjectPlane = 0xeeeeeeee

// DRM atomic commit flags (spec.md §6).
const (
	drmModeAtomicFlagTestOnly   = 0x0100
	drmModeAtomicFlagAllowModeset = 0x0400
)

// DRM_PLANE_TYPE_* values, reported as the plane's "type" property.
const (
	drmPlaneTypeOverlay = 0
	drmPlaneTypePrimary = 1
	drmPlaneTypeCursor  = 2
)

type drmModeCardRes struct {
	FbIDPtr         uint64
	CrtcIDPtr       uint64
	ConnectorIDPtr  uint64
	EncoderIDPtr    uint64
	CountFbs        uint32
	CountCrtcs      uint32
	CountConnectors uint32
	CountEncoders   uint32
	MinWidth        uint32
	MaxWidth        uint32
	MinHeight       uint32
	MaxHeight       uint32
}

type drmModeGetPlaneRes struct {
	PlaneIDPtr  uint64
	CountPlanes uint32
	pad         uint32
}

type drmModeGetPlane struct {
	PlaneID          uint32
	CrtcID           uint32
	FbID             uint32
	PossibleCrtcs    uint32
	GammaSize        uint32
	CountFormatTypes uint32
	FormatTypePtr    uint64
}

type drmModeObjGetProperties struct {
	PropsPtr      uint64
	PropValuesPtr uint64
	CountProps    uint32
	ObjID         uint32
	ObjType       uint32
	pad           uint32
}

type drmModeGetProperty struct {
	ValuesPtr  uint64
	EnumBlobPtr uint64
	PropID     uint32
	Flags      uint32
	Name       [drmPropNameLen]byte
	CountValues uint32
	CountEnum  uint32
	BlobIDsPtr uint64
	CountBlobs uint32
	pad        uint32
}

// drmModeAtomic corresponds to struct drm_mode_atomic: parallel arrays
// of object ids, one property count per object, and a flattened
// property-id/value array.
type drmModeAtomic struct {
	Flags         uint32
	CountObjs     uint32
	ObjsPtr       uint64
	CountPropsPtr uint64
	PropsPtr      uint64
	PropValuesPtr uint64
	Reserved      uint64
	UserData      uint64
}

func ioctl(fd uintptr, request uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, request, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// discoverCRTCIDs fetches the CRTC id table via DRM_IOCTL_MODE_GETRESOURCES,
// the same two-call (count, then fill) pattern as the teacher's
// getResources.
func discoverCRTCIDs(fd uintptr) ([]uint32, error) {
	var res drmModeCardRes
	if err := ioctl(fd, ioctlModeGetResources, unsafe.Pointer(&res)); err != nil {
		return nil, fmt.Errorf("GETRESOURCES (count): %w", err)
	}
	if res.CountCrtcs == 0 {
		return nil, fmt.Errorf("no CRTCs reported")
	}

	crtcIDs := make([]uint32, res.CountCrtcs)
	res2 := drmModeCardRes{
		CrtcIDPtr:  uint64(uintptr(unsafe.Pointer(&crtcIDs[0]))),
		CountCrtcs: res.CountCrtcs,
	}
	if err := ioctl(fd, ioctlModeGetResources, unsafe.Pointer(&res2)); err != nil {
		return nil, fmt.Errorf("GETRESOURCES (fill): %w", err)
	}
	return crtcIDs, nil
}

func discoverPlaneIDs(fd uintptr) ([]uint32, error) {
	var res drmModeGetPlaneRes
	if err := ioctl(fd, ioctlModeGetPlaneResources, unsafe.Pointer(&res)); err != nil {
		return nil, fmt.Errorf("GETPLANERESOURCES (count): %w", err)
	}
	if res.CountPlanes == 0 {
		return nil, nil
	}

	planeIDs := make([]uint32, res.CountPlanes)
	res2 := drmModeGetPlaneRes{
		PlaneIDPtr:  uint64(uintptr(unsafe.Pointer(&planeIDs[0]))),
		CountPlanes: res.CountPlanes,
	}
	if err := ioctl(fd, ioctlModeGetPlaneResources, unsafe.Pointer(&res2)); err != nil {
		return nil, fmt.Errorf("GETPLANERESOURCES (fill): %w", err)
	}
	return planeIDs, nil
}

func getPlane(fd uintptr, planeID uint32) (drmModeGetPlane, error) {
	p := drmModeGetPlane{PlaneID: planeID}
	if err := ioctl(fd, ioctlModeGetPlane, unsafe.Pointer(&p)); err != nil {
		return drmModeGetPlane{}, fmt.Errorf("GETPLANE(%d): %w", planeID, err)
	}
	return p, nil
}

func getPropertyName(fd uintptr, propID uint32) (string, error) {
	var prop drmModeGetProperty
	prop.PropID = propID
	if err := ioctl(fd, ioctlModeGetProperty, unsafe.Pointer(&prop)); err != nil {
		return "", fmt.Errorf("GETPROPERTY(%d): %w", propID, err)
	}
	n := 0
	for n < len(prop.Name) && prop.Name[n] != 0 {
		n++
	}
	return string(prop.Name[:n]), nil
}

// getObjectProperties fetches every (property id, value) pair a plane
// advertises via DRM_IOCTL_MODE_OBJ_GETPROPERTIES, then resolves each
// id's name with GETPROPERTY.
func getObjectProperties(fd uintptr, objID uint32) ([]PlaneProperty, map[uint32]uint64, error) {
	var req drmModeObjGetProperties
	req.ObjID = objID
	req.ObjType = drmModeObjectPlane
	if err := ioctl(fd, ioctlModeObjGetProperties, unsafe.Pointer(&req)); err != nil {
		return nil, nil, fmt.Errorf("OBJ_GETPROPERTIES(%d) (count): %w", objID, err)
	}
	if req.CountProps == 0 {
		return nil, nil, nil
	}

	propIDs := make([]uint32, req.CountProps)
	values := make([]uint64, req.CountProps)
	req2 := drmModeObjGetProperties{
		PropsPtr:      uint64(uintptr(unsafe.Pointer(&propIDs[0]))),
		PropValuesPtr: uint64(uintptr(unsafe.Pointer(&values[0]))),
		CountProps:    req.CountProps,
		ObjID:         objID,
		ObjType:       drmModeObjectPlane,
	}
	if err := ioctl(fd, ioctlModeObjGetProperties, unsafe.Pointer(&req2)); err != nil {
		return nil, nil, fmt.Errorf("OBJ_GETPROPERTIES(%d) (fill): %w", objID, err)
	}

	props := make([]PlaneProperty, 0, len(propIDs))
	valuesByID := make(map[uint32]uint64, len(propIDs))
	for i, id := range propIDs {
		name, err := getPropertyName(fd, id)
		if err != nil {
			return nil, nil, err
		}
		props = append(props, PlaneProperty{ID: id, Name: name})
		valuesByID[id] = values[i]
	}
	return props, valuesByID, nil
}

func planeTypeFromValue(v uint64) PlaneType {
	switch v {
	case drmPlaneTypePrimary:
		return PlaneTypePrimary
	case drmPlaneTypeCursor:
		return PlaneTypeCursor
	default:
		return PlaneTypeOverlay
	}
}

// atomicTestOnlyCommit issues DRM_IOCTL_MODE_ATOMIC with TEST_ONLY set
// and ALLOW_MODESET cleared, per spec.md §6.
func atomicTestOnlyCommit(fd uintptr, req *Request) error {
	entries := req.Entries()
	if len(entries) == 0 {
		a := drmModeAtomic{Flags: drmModeAtomicFlagTestOnly}
		return ioctl(fd, ioctlModeAtomic, unsafe.Pointer(&a))
	}

	objOrder := make([]uint32, 0, len(entries))
	countByObj := make(map[uint32]uint32)
	for _, e := range entries {
		if _, ok := countByObj[e.ObjectID]; !ok {
			objOrder = append(objOrder, e.ObjectID)
		}
		countByObj[e.ObjectID]++
	}

	objs := make([]uint32, len(objOrder))
	counts := make([]uint32, len(objOrder))
	for i, id := range objOrder {
		objs[i] = id
		counts[i] = countByObj[id]
	}

	propIDs := make([]uint32, len(entries))
	values := make([]uint64, len(entries))
	// Entries must be grouped by object to match counts[]; Request
	// already stages them per-plane in order, so a stable partition by
	// first-seen object order reproduces that grouping.
	idx := 0
	for _, id := range objOrder {
		for _, e := range entries {
			if e.ObjectID == id {
				propIDs[idx] = e.PropertyID
				values[idx] = e.Value
				idx++
			}
		}
	}

	a := drmModeAtomic{
		Flags:         drmModeAtomicFlagTestOnly,
		CountObjs:     uint32(len(objs)),
		ObjsPtr:       uint64(uintptr(unsafe.Pointer(&objs[0]))),
		CountPropsPtr: uint64(uintptr(unsafe.Pointer(&counts[0]))),
		PropsPtr:      uint64(uintptr(unsafe.Pointer(&propIDs[0]))),
		PropValuesPtr: uint64(uintptr(unsafe.Pointer(&values[0]))),
	}
	return ioctl(fd, ioctlModeAtomic, unsafe.Pointer(&a))
}
