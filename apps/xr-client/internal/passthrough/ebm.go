package passthrough

import "github.com/collabora-pluto/xrrelay/libs/wire"

// EBMBackend is the fallback strategy for runtimes with neither the FB
// nor HTC passthrough extension: it contributes no composition layer of
// its own and instead relies on the runtime's native environment blend
// mode enumeration (additive/alpha-blend show through whatever the
// device's passthrough cameras already composite at the display level).
type EBMBackend struct {
	base
	available            map[wire.EnvBlendMode]bool
	useAlphaForAdditive  bool
}

// NewEBMBackend records which blend modes xrEnumerateEnvironmentBlendModes
// reported as available, and — mirroring the reference implementation —
// decides to substitute alpha-blend for additive when the runtime
// supports alpha-blend but not additive.
func NewEBMBackend(availableBlendModes []wire.EnvBlendMode) *EBMBackend {
	available := make(map[wire.EnvBlendMode]bool, len(availableBlendModes))
	for _, m := range availableBlendModes {
		available[m] = true
	}
	return &EBMBackend{
		available:           available,
		useAlphaForAdditive: !available[wire.EnvBlendModeAdditive] && available[wire.EnvBlendModeAlphaBlend],
	}
}

func (e *EBMBackend) Supported() bool {
	return e.available[wire.EnvBlendModeAdditive] || e.available[wire.EnvBlendModeAlphaBlend]
}

func (e *EBMBackend) UseAlphaBlendForAdditive() bool { return e.useAlphaForAdditive }
func (e *EBMBackend) ClearColor() ClearColor         { return e.clearColorFor(e.UseAlphaBlendForAdditive()) }

func (e *EBMBackend) SetBlendMode(mode wire.EnvBlendMode) bool {
	if !e.available[mode] {
		return false
	}
	e.mode = mode
	return true
}

func (e *EBMBackend) CompositionLayer() Layer {
	l := Layer{EnvBlendMode: e.mode}
	if e.mode == wire.EnvBlendModeAlphaBlend ||
		(e.mode == wire.EnvBlendModeAdditive && e.UseAlphaBlendForAdditive()) {
		l.ProjectionAlphaBlend = true
	}
	return l
}
