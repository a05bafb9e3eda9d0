package passthrough

import (
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/xrsys"
	"github.com/collabora-pluto/xrrelay/libs/wire"
)

// HTCBackend models the XR_HTC_passthrough extension: unlike FB, HTC has
// no pause/resume distinction — the passthrough object is created on
// entry to additive/alpha-blend and destroyed on return to opaque.
type HTCBackend struct {
	base
	supported bool
	created   bool
}

// NewHTCBackend returns a backend that reports supported exactly when
// the caller determined XR_HTC_passthrough is enabled on the session.
func NewHTCBackend(supported bool) *HTCBackend {
	return &HTCBackend{supported: supported}
}

func (h *HTCBackend) Supported() bool                { return h.supported }
func (h *HTCBackend) UseAlphaBlendForAdditive() bool { return true }
func (h *HTCBackend) ClearColor() ClearColor         { return h.clearColorFor(h.UseAlphaBlendForAdditive()) }

func (h *HTCBackend) SetBlendMode(mode wire.EnvBlendMode) bool {
	if !h.supported {
		return false
	}
	switch mode {
	case wire.EnvBlendModeAdditive, wire.EnvBlendModeAlphaBlend:
		h.created = true
	default:
		h.created = false
	}
	h.mode = mode
	return true
}

func (h *HTCBackend) CompositionLayer() Layer {
	if !h.created {
		return Layer{EnvBlendMode: wire.EnvBlendModeOpaque}
	}
	switch h.mode {
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
