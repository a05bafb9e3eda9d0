// Package xrsimfake provides a deterministic in-memory implementation of
// xrsys.Runtime for use in tests, standing in for a real OpenXR loader
// and GLES context the way a hardware-in-the-loop test never could in
// this exercise.
package xrsimfake

import (
	"errors"
	"time"

	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/xrsys"
	"github.com/collabora-pluto/xrrelay/libs/wire"
)

// Runtime is a scriptable fake: each call returns its *Err field when that
// field is set and a default success value otherwise, so most tests only
// need to set the handful of errors they care about.
type Runtime struct {
	FrameIntervalNS int64
	EyeW, EyeH      int

	WaitFrameErr   error
	BeginFrameErr  error
	LocateViewsErr error
	AcquireErr     error
	WaitImageErr   error
	ReleaseErr     error
	EndFrameErr    error
	LocateSpaceErr error

	// Sequence tracks state so successive WaitFrame calls advance a
	// synthetic clock without the caller needing to.
	nextDisplayTime xrsys.XrTime
	acquired        bool

	// EndFrameCalls records every EndFrame invocation, letting tests
	// assert the "always end-frame" contract even when a prior step in
	// the same iteration failed.
	EndFrameCalls []EndFrameCall

	viewPose wire.Pose
}

// EndFrameCall records one recorded call to EndFrame.
type EndFrameCall struct {
	DisplayTime xrsys.XrTime
	BlendMode   wire.EnvBlendMode
	NumLayers   int
}

// New returns a Runtime with a 90Hz frame interval and a 1024x1024 eye
// buffer, both overridable before use.
func New() *Runtime {
	return &Runtime{
		FrameIntervalNS: int64(time.Second / 90),
		EyeW:            1024,
		EyeH:            1024,
	}
}

func (r *Runtime) WaitFrame() (xrsys.WaitFrameResult, error) {
	if r.WaitFrameErr != nil {
		return xrsys.WaitFrameResult{}, r.WaitFrameErr
	}
	r.nextDisplayTime += xrsys.XrTime(r.FrameIntervalNS)
	return xrsys.WaitFrameResult{
		PredictedDisplayTime: r.nextDisplayTime,
		ShouldRender:         true,
	}, nil
}

func (r *Runtime) BeginFrame() error {
	return r.BeginFrameErr
}

func (r *Runtime) LocateViews(displayTime xrsys.XrTime) ([2]xrsys.ViewPose, error) {
	if r.LocateViewsErr != nil {
		return [2]xrsys.ViewPose{}, r.LocateViewsErr
	}
	fov := xrsys.Fov{AngleLeft: -0.7, AngleRight: 0.7, AngleUp: 0.7, AngleDown: -0.7}
	return [2]xrsys.ViewPose{
		{Pose: r.viewPose, Fov: fov},
		{Pose: r.viewPose, Fov: fov},
	}, nil
}

func (r *Runtime) AcquireSwapchainImage() (xrsys.SwapchainImage, error) {
	if r.AcquireErr != nil {
		return xrsys.SwapchainImage{}, r.AcquireErr
	}
	if r.acquired {
		return xrsys.SwapchainImage{}, errors.New("xrsimfake: image already acquired")
	}
	r.acquired = true
	return xrsys.SwapchainImage{Index: 0, FramebufferObj: 1}, nil
}

func (r *Runtime) WaitSwapchainImage() error {
	return r.WaitImageErr
}

func (r *Runtime) ReleaseSwapchainImage() error {
	if r.ReleaseErr != nil {
		return r.ReleaseErr
	}
	r.acquired = false
	return nil
}

func (r *Runtime) EndFrame(displayTime xrsys.XrTime, blendMode wire.EnvBlendMode, layers []xrsys.CompositionLayer) error {
	r.EndFrameCalls = append(r.EndFrameCalls, EndFrameCall{
		DisplayTime: displayTime,
		BlendMode:   blendMode,
		NumLayers:   len(layers),
	})
	return r.EndFrameErr
}

func (r *Runtime) ConvertTimespecToTime(t time.Time) (xrsys.XrTime, error) {
	return xrsys.XrTime(t.UnixNano()), nil
}

func (r *Runtime) LocateViewSpace(at xrsys.XrTime) (wire.Pose, error) {
	if r.LocateSpaceErr != nil {
		return wire.Pose{}, r.LocateSpaceErr
	}
	return r.viewPose, nil
}

func (r *Runtime) EyeWidth() int  { return r.EyeW }
func (r *Runtime) EyeHeight() int { return r.EyeH }

// SetViewPose lets a test move the head so LocateViews/LocateViewSpace
// return a non-identity pose.
func (r *Runtime) SetViewPose(p wire.Pose) {
	r.viewPose = p
}

var _ xrsys.Runtime = (*Runtime)(nil)
