package passthrough

import (
	"testing"

	"github.com/collabora-pluto/xrrelay/libs/wire"
)

func TestSelectPrefersFBThenHTCThenFallback(t *testing.T) {
	if b := Select(true, true, nil); b.(*FBBackend) == nil {
		t.Fatal("expected FB backend when both supported")
	}
	if b := Select(false, true, nil); b.(*HTCBackend) == nil {
		t.Fatal("expected HTC backend when FB unsupported")
	}
	modes := []wire.EnvBlendMode{wire.EnvBlendModeOpaque, wire.EnvBlendModeAdditive}
	if b := Select(false, false, modes); b.(*EBMBackend) == nil {
		t.Fatal("expected EBM fallback when neither extension supported")
	}
}

func TestFBBackendOpaqueHasNoLayer(t *testing.T) {
	fb := NewFBBackend(true)
	fb.SetBlendMode(wire.EnvBlendModeOpaque)
	layer := fb.CompositionLayer()
	if layer.Layer != nil {
		t.Fatal("expected no composition layer in opaque mode")
	}
}

func TestFBBackendAdditiveProducesLayer(t *testing.T) {
	fb := NewFBBackend(true)
	fb.SetBlendMode(wire.EnvBlendModeAdditive)
	layer := fb.CompositionLayer()
	if layer.Layer == nil || !layer.ProjectionAlphaBlend {
		t.Fatalf("expected an alpha-blended composition layer, got %+v", layer)
	}
	if layer.EnvBlendMode != wire.EnvBlendModeOpaque {
		t.Fatalf("expected the paired projection layer's blend mode to report opaque, got %v", layer.EnvBlendMode)
	}
}

func TestEBMBackendUsesAlphaBlendWhenAdditiveUnavailable(t *testing.T) {
	e := NewEBMBackend([]wire.EnvBlendMode{wire.EnvBlendModeOpaque, wire.EnvBlendModeAlphaBlend})
	if !e.UseAlphaBlendForAdditive() {
		t.Fatal("expected alpha-blend substitution when additive is unavailable")
	}
	if !e.Supported() {
		t.Fatal("expected EBM to report supported when alpha-blend is available")
	}
	if e.SetBlendMode(wire.EnvBlendModeAdditive) {
		t.Fatal("expected SetBlendMode(Additive) to fail: additive itself isn't in the available set, only alpha-blend is")
	}
	if !e.SetBlendMode(wire.EnvBlendModeAlphaBlend) {
		t.Fatal("expected SetBlendMode(AlphaBlend) to succeed")
	}
}

func TestEBMBackendUnsupportedWhenNoBlendModesAvailable(t *testing.T) {
	e := NewEBMBackend([]wire.EnvBlendMode{wire.EnvBlendModeOpaque})
	if e.Supported() {
		t.Fatal("expected unsupported when only opaque is available")
	}
}

func TestEBMBackendClearColorOpaqueForNativeAdditive(t *testing.T) {
	e := NewEBMBackend([]wire.EnvBlendMode{wire.EnvBlendModeOpaque, wire.EnvBlendModeAdditive})
	if e.UseAlphaBlendForAdditive() {
		t.Fatal("expected no substitution when additive is natively available")
	}
	if !e.SetBlendMode(wire.EnvBlendModeAdditive) {
		t.Fatal("expected SetBlendMode(Additive) to succeed against native support")
	}
	if got := e.ClearColor(); got != (ClearColor{0, 0, 0, 1}) {
		t.Fatalf("expected opaque clear color for native additive, got %+v", got)
	}
}

func TestEBMBackendClearColorTransparentForSubstitutedAdditive(t *testing.T) {
	e := NewEBMBackend([]wire.EnvBlendMode{wire.EnvBlendModeOpaque, wire.EnvBlendModeAlphaBlend})
	if !e.SetBlendMode(wire.EnvBlendModeAlphaBlend) {
		t.Fatal("expected SetBlendMode(AlphaBlend) to succeed")
	}
	if got := e.ClearColor(); got != (ClearColor{0, 0, 0, 0}) {
		t.Fatalf("expected transparent clear color for the alpha-blend substitute, got %+v", got)
	}
}

func TestFBBackendClearColorTransparentForAdditive(t *testing.T) {
	fb := NewFBBackend(true)
	fb.SetBlendMode(wire.EnvBlendModeAdditive)
	if got := fb.ClearColor(); got != (ClearColor{0, 0, 0, 0}) {
		t.Fatalf("expected transparent clear color: FB always composites additive via its passthrough layer, got %+v", got)
	}
}
