// Package xrsys defines the boundary between this repository and the
// OpenXR runtime: loader initialization, session/state-machine bring-up,
// and the concrete GLES swapchain are all out of scope (external
// collaborators per the system's contracts), so this package states them
// as a Go interface the render loop drives, with a deterministic fake
// implementation for tests.
package xrsys

import (
	"time"

	"github.com/collabora-pluto/xrrelay/libs/wire"
)

// ViewPose is one eye's view pose plus field of view, as returned by
// LocateViews.
type ViewPose struct {
	Pose wire.Pose
	Fov  Fov
}

// Fov is a symmetric-or-asymmetric field of view in radians, matching
// OpenXR's XrFovf layout.
type Fov struct {
	AngleLeft, AngleRight, AngleUp, AngleDown float32
}

// WaitFrameResult is returned by WaitFrame.
type WaitFrameResult struct {
	PredictedDisplayTime XrTime
	ShouldRender         bool
}

// XrTime is a runtime-domain monotonic timestamp (XrTime is int64
// nanoseconds in the real API); host-clock values must go through
// ConvertTimespecToTime before being compared against or embedded
// alongside XrTime values.
type XrTime int64

// SwapchainImage identifies one image in the shared color swapchain by
// its framebuffer object name.
type SwapchainImage struct {
	Index          int
	FramebufferObj uint32
}

// Runtime is the subset of the OpenXR + GLES surface the render loop
// needs. A real implementation binds this to actual xrWaitFrame /
// xrBeginFrame / ... calls; xrsimfake.Runtime binds it to an in-memory
// clock for tests.
type Runtime interface {
	// WaitFrame blocks until the runtime is ready to accept the next
	// frame. The sole legal suspension point besides WaitSwapchainImage.
	WaitFrame() (WaitFrameResult, error)

	// BeginFrame must be paired with exactly one EndFrame call, even
	// when nothing is rendered (see the "always end-frame" decision in
	// the accompanying design notes).
	BeginFrame() error

	// LocateViews returns both eye poses and fields of view relative to
	// the stage reference space, predicted for displayTime.
	LocateViews(displayTime XrTime) ([2]ViewPose, error)

	// AcquireSwapchainImage reserves the next image in the shared color
	// swapchain for exclusive use until ReleaseSwapchainImage.
	AcquireSwapchainImage() (SwapchainImage, error)

	// WaitSwapchainImage blocks until the acquired image is safe to
	// render into. Callers should log a warning, not fail, if this call
	// takes longer than 2ms.
	WaitSwapchainImage() error

	// ReleaseSwapchainImage returns the currently acquired image to the
	// runtime.
	ReleaseSwapchainImage() error

	// EndFrame submits the frame's composition layers.
	EndFrame(displayTime XrTime, blendMode wire.EnvBlendMode, layers []CompositionLayer) error

	// ConvertTimespecToTime converts a host monotonic timestamp into the
	// XR time domain, using the conversion extension acquired at init.
	ConvertTimespecToTime(t time.Time) (XrTime, error)

	// LocateViewSpace returns the view-space pose in the world (stage)
	// reference space at the given XR time, used for the tracking
	// telemetry message independent of any rendering decision.
	LocateViewSpace(at XrTime) (wire.Pose, error)

	// EyeWidth and EyeHeight report the swapchain's per-eye pixel
	// dimensions, fixed for the session's lifetime.
	EyeWidth() int
	EyeHeight() int
}

// CompositionLayer is one layer submitted to EndFrame. Exactly one of
// Projection or Passthrough is set.
type CompositionLayer struct {
	Projection *ProjectionLayer
	Passthrough *PassthroughLayer
}

// ProjectionLayer carries the two per-eye views the compositor should
// project into the final image.
type ProjectionLayer struct {
	Views [2]ProjectionView
}

// ProjectionView describes one eye's contribution to a projection layer:
// which swapchain image and sub-rectangle to sample, and the pose/fov it
// was rendered for.
type ProjectionView struct {
	Image    SwapchainImage
	ImageX   int
	ImageY   int
	ImageW   int
	ImageH   int
	Pose     wire.Pose
	Fov      Fov
}

// PassthroughLayer is an opaque layer handle supplied by a passthrough
// backend (e.g. XR_FB_passthrough); nil when the current mode does not
// contribute a composition layer of its own.
type PassthroughLayer struct {
	Handle uint64
}
