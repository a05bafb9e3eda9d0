package passthrough

import (
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/xrsys"
	"github.com/collabora-pluto/xrrelay/libs/wire"
)

// FBBackend models the XR_FB_passthrough extension: a persistent
// reconstruction-purpose passthrough layer that is paused/resumed as the
// blend mode changes rather than destroyed and recreated. Actually
// creating the extension's OpenXR objects is out of scope here (no real
// loader is available in this exercise); supported reports whatever the
// caller's extension-enumeration step determined.
type FBBackend struct {
	base
	supported bool
	active    bool
}

// NewFBBackend returns a backend that reports supported exactly when the
// caller determined XR_FB_passthrough is enabled on the current session.
func NewFBBackend(supported bool) *FBBackend {
	return &FBBackend{supported: supported}
}

func (f *FBBackend) Supported() bool                { return f.supported }
func (f *FBBackend) UseAlphaBlendForAdditive() bool { return true }
func (f *FBBackend) ClearColor() ClearColor         { return f.clearColorFor(f.UseAlphaBlendForAdditive()) }

func (f *FBBackend) SetBlendMode(mode wire.EnvBlendMode) bool {
	if !f.supported || mode == f.mode {
		return false
	}
	switch mode {
	case wire.EnvBlendModeAdditive, wire.EnvBlendModeAlphaBlend:
		f.active = true
	default:
		f.active = false
	}
	f.mode = mode
	return true
}

func (f *FBBackend) CompositionLayer() Layer {
	if !f.active {
		return Layer{EnvBlendMode: wire.EnvBlendModeOpaque}
	}
	switch f.mode {
	case wire.EnvBlendModeAdditive, wire.EnvBlendModeAlphaBlend:
		return Layer{
			Layer:                &xrsys.PassthroughLayer{Handle: 1},
			ProjectionAlphaBlend: true,
			EnvBlendMode:         wire.EnvBlendModeOpaque,
		}
	default:
		return Layer{EnvBlendMode: wire.EnvBlendModeOpaque}
	}
}
