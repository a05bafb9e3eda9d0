// Package passthrough selects and drives one of several strategies for
// presenting camera passthrough behind an additive/alpha-blended scene,
// mirroring the probe order and per-mode composition-layer contract of
// the reference client's passthrough backends.
package passthrough

import (
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/xrsys"
	"github.com/collabora-pluto/xrrelay/libs/wire"
)

// Layer is the composition layer, if any, a backend wants included for
// the current blend mode plus the flags/blend-mode a projection layer
// paired with it should use.
type Layer struct {
	Layer                *xrsys.PassthroughLayer
	ProjectionAlphaBlend bool
	EnvBlendMode         wire.EnvBlendMode
}

// ClearColor is the RGBA color the projection layer's background should
// be cleared to before compositing: transparent for alpha-blend and for
// additive simulated through alpha-blend, opaque black for opaque and for
// native additive.
type ClearColor struct {
	R, G, B, A float32
}

// Backend is one strategy for entering/leaving passthrough and reporting
// its composition layer. Extensions (FB, HTC) are probed for support
// before the always-available fallback.
type Backend interface {
	Supported() bool
	UseAlphaBlendForAdditive() bool
	SetBlendMode(mode wire.EnvBlendMode) bool
	CompositionLayer() Layer
	ClearColor() ClearColor
	BlendMode() wire.EnvBlendMode
}

// base holds the current blend mode, shared by every Backend
// implementation the way Passthrough::m_eb_mode does in the reference.
type base struct {
	mode wire.EnvBlendMode
}

func (b *base) BlendMode() wire.EnvBlendMode { return b.mode }

// clearColorFor derives the projection layer's background clear color
// from the backend's own current mode and its own
// useAlphaBlendForAdditive policy, rather than from mode alone: additive
// is only opaque when this backend's mode is genuinely native additive
// (useAlphaBlendForAdditive false), since FB/HTC always report true and
// EBM reports true only when it lacks native additive support.
func (b *base) clearColorFor(useAlphaBlendForAdditive bool) ClearColor {
	switch b.mode {
	case wire.EnvBlendModeAlphaBlend:
		return ClearColor{0, 0, 0, 0}
	case wire.EnvBlendModeAdditive:
		if useAlphaBlendForAdditive {
			return ClearColor{0, 0, 0, 0}
		}
		return ClearColor{0, 0, 0, 1}
	default:
		return ClearColor{0, 0, 0, 1}
	}
}

// Select probes backends in the order the reference client does — FB
// passthrough first, then HTC, falling back to the environment-blend-mode
// strategy that needs no extension at all — and returns the first
// supported one.
func Select(supportsFB, supportsHTC bool, availableBlendModes []wire.EnvBlendMode) Backend {
	fb := NewFBBackend(supportsFB)
	if fb.Supported() {
		return fb
	}
	htc := NewHTCBackend(supportsHTC)
	if htc.Supported() {
		return htc
	}
	return NewEBMBackend(availableBlendModes)
}
