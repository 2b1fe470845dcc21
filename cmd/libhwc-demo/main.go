// libhwc-demo exercises the plane allocator against a real DRM node.
// It assumes the caller already knows which CRTC to drive and already
// has framebuffers for each layer (both out of this library's scope,
// per spec.md §1) — it only demonstrates the plane<->layer allocation
// and the atomic request it produces.
//
// Usage: [LIBHWC_DRM_DEVICE=/dev/dri/card0] [LIBHWC_CRTC_ID=N] libhwc-demo
package main

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/go-kms/libhwc/pkg/liftoff"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	drmDevice := envOrDefault("LIBHWC_DRM_DEVICE", "/dev/dri/card0")
	crtcID := envUintOrDefault("LIBHWC_CRTC_ID", 0)

	f, err := os.OpenFile(drmDevice, os.O_RDWR, 0)
	if err != nil {
		logger.Error("open DRM device", "device", drmDevice, "err", err)
		os.Exit(1)
	}
	defer f.Close()

	dev, err := liftoff.DeviceCreate(f.Fd(), liftoff.WithLogger(logger))
	if err != nil {
		logger.Error("device create", "err", err)
		os.Exit(1)
	}
	defer dev.Destroy()

	out, err := dev.OutputCreate(uint32(crtcID))
	if err != nil {
		logger.Error("output create", "crtc_id", crtcID, "err", err)
		os.Exit(1)
	}

	layers := buildDemoLayers(out)

	req := liftoff.NewRequest()
	if err := dev.Apply(req); err != nil {
		logger.Error("apply failed", "err", err)
		os.Exit(1)
	}

	for i, l := range layers {
		logger.Info("layer result", "index", i, "plane_id", l.PlaneID())
	}

	logger.Info("summary",
		"test_commits", humanize.Comma(int64(dev.TestCommitCounter())),
		"entries", humanize.Comma(int64(len(req.Entries()))),
	)
}

// buildDemoLayers mirrors the fixed six-layer scene from the original
// example compositor: one full-screen background layer plus five
// smaller, overlapping overlay candidates, each with a distinct zpos.
// Framebuffer ids here are placeholders — this demo doesn't create
// real framebuffers, since doing so is explicitly the caller's job.
func buildDemoLayers(out *liftoff.Output) []*liftoff.Layer {
	type rect struct{ x, y, w, h int }
	rects := []rect{
		{0, 0, 1920, 1080},
		{100, 100, 256, 256},
		{200, 200, 256, 256},
		{300, 300, 256, 256},
		{400, 400, 256, 256},
		{500, 500, 256, 256},
	}

	layers := make([]*liftoff.Layer, len(rects))
	for i, r := range rects {
		l := out.NewLayer()
		_ = l.SetProperty("FB_ID", uint64(i+1))
		_ = l.SetProperty("CRTC_X", uint64(r.x))
		_ = l.SetProperty("CRTC_Y", uint64(r.y))
		_ = l.SetProperty("CRTC_W", uint64(r.w))
		_ = l.SetProperty("CRTC_H", uint64(r.h))
		_ = l.SetProperty("SRC_X", 0)
		_ = l.SetProperty("SRC_Y", 0)
		_ = l.SetProperty("SRC_W", uint64(r.w)<<16)
		_ = l.SetProperty("SRC_H", uint64(r.h)<<16)
		_ = l.SetProperty("ZPOS", uint64(i))
		layers[i] = l
	}
	return layers
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envUintOrDefault(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return def
	}
	return n
}
