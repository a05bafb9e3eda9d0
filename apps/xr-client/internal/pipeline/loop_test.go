package pipeline

import (
	"context"
	"testing"

	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/passthrough"
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/samplequeue"
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/telemetry"
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/xrsys"
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/xrsys/xrsimfake"
	"github.com/collabora-pluto/xrrelay/libs/wire"
)

type nopPool struct{}

func (nopPool) Release(samplequeue.Sample) {}

type fakeRenderer struct {
	calls int
	err   error
}

func (r *fakeRenderer) Render(img xrsys.SwapchainImage, s samplequeue.Sample, clear passthrough.ClearColor, additiveToAlpha bool) error {
	r.calls++
	return r.err
}

func newTestLoop() (*Loop, *xrsimfake.Runtime, *samplequeue.Queue, *telemetry.Recorder, *fakeRenderer) {
	rt := xrsimfake.New()
	q := samplequeue.New(nopPool{})
	rec := &telemetry.Recorder{}
	rend := &fakeRenderer{}
	backend := passthrough.NewEBMBackend([]wire.EnvBlendMode{wire.EnvBlendModeOpaque, wire.EnvBlendModeAdditive, wire.EnvBlendModeAlphaBlend})
	l := NewLoop(rt, q, backend, rec, rend, nil)
	return l, rt, q, rec, rend
}

// Scenario 1: cold start, one frame.
func TestColdStartOneFrame(t *testing.T) {
	l, _, q, rec, rend := newTestLoop()

	q.Publish(samplequeue.Sample{
		FrameSequenceID: 1,
		Poses:           [2]wire.Pose{{}, {}},
		EnvBlendMode:    wire.EnvBlendModeOpaque,
	})

	result, err := l.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != ResultNewSample {
		t.Fatalf("expected NEW_SAMPLE, got %s", result)
	}
	if rend.calls != 1 {
		t.Fatalf("expected renderer called once, got %d", rend.calls)
	}
	if len(rec.Sent) != 2 {
		t.Fatalf("expected tracking + frame telemetry, got %d messages", len(rec.Sent))
	}
	if rec.Sent[0].UpMessageID != 1 || rec.Sent[0].Tracking == nil {
		t.Fatalf("expected first message to be tracking with id 1, got %+v", rec.Sent[0])
	}
	if rec.Sent[1].UpMessageID != 2 || rec.Sent[1].Frame == nil || rec.Sent[1].Frame.FrameSequenceID != 1 {
		t.Fatalf("expected second message to be frame timing with id 2 and sequence 1, got %+v", rec.Sent[1])
	}
}

// Scenario 2: reuse — no new sample arrives on the next iteration.
func TestReuseSample(t *testing.T) {
	l, _, q, rec, _ := newTestLoop()
	q.Publish(samplequeue.Sample{FrameSequenceID: 1})
	if _, err := l.RunOnce(context.Background()); err != nil {
		t.Fatalf("first iteration: %v", err)
	}

	rec.Sent = nil
	result, err := l.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second iteration: %v", err)
	}
	if result != ResultReusedSample {
		t.Fatalf("expected REUSED_SAMPLE, got %s", result)
	}
	if len(rec.Sent) != 2 || rec.Sent[1].Frame.FrameSequenceID != 1 {
		t.Fatalf("expected reused frame telemetry to still report sequence 1, got %+v", rec.Sent)
	}
}

// Scenario 3: blend-mode switch to additive on a runtime with no native
// additive support (only alpha-blend advertised) routes through the
// alpha-blend substitution.
func TestBlendModeSwitchToAdditiveWithoutNativeSupport(t *testing.T) {
	rt := xrsimfake.New()
	q := samplequeue.New(nopPool{})
	rec := &telemetry.Recorder{}
	backend := passthrough.NewEBMBackend([]wire.EnvBlendMode{wire.EnvBlendModeOpaque, wire.EnvBlendModeAlphaBlend})
	l := NewLoop(rt, q, backend, rec, &fakeRenderer{}, nil)

	if !backend.UseAlphaBlendForAdditive() {
		t.Fatal("expected alpha-blend substitution when additive is unavailable natively")
	}

	q.Publish(samplequeue.Sample{
		FrameSequenceID:        1,
		EnvBlendMode:           wire.EnvBlendModeAdditive,
		AdditiveBlackThreshold: 0.1,
	})

	if _, err := l.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clear := backend.ClearColor()
	if clear != (passthrough.ClearColor{}) {
		t.Fatalf("expected transparent clear color, got %+v", clear)
	}
	layer := backend.CompositionLayer()
	if !layer.ProjectionAlphaBlend {
		t.Fatal("expected the projection layer to carry the blend-texture-source-alpha flag")
	}
}

// Boundary: no should_render still calls end-frame, with zero layers. The
// fake runtime always reports ShouldRender, so the loop's should-render
// decision is turned off here through a locate-views failure.
func TestNoShouldRenderStillEndsFrameWithZeroLayers(t *testing.T) {
	l, rt, _, _, rend := newTestLoop()
	rt.LocateViewsErr = errNotSupported

	result, err := l.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != ResultShouldNotRender {
		t.Fatalf("expected SHOULD_NOT_RENDER, got %s", result)
	}
	if len(rt.EndFrameCalls) != 1 || rt.EndFrameCalls[0].NumLayers != 0 {
		t.Fatalf("expected exactly one end-frame call with zero layers, got %+v", rt.EndFrameCalls)
	}
	if rend.calls != 0 {
		t.Fatal("expected the renderer not to be invoked")
	}
}

// Boundary: decoder emits no samples for a while, then one arrives —
// result oscillates NO_SAMPLE_AVAILABLE -> NEW_SAMPLE -> REUSED_SAMPLE.
func TestNoSampleThenNewThenReused(t *testing.T) {
	l, _, q, _, _ := newTestLoop()

	result, err := l.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("iteration 1: %v", err)
	}
	if result != ResultNoSampleAvailable {
		t.Fatalf("expected NO_SAMPLE_AVAILABLE, got %s", result)
	}

	q.Publish(samplequeue.Sample{FrameSequenceID: 1})
	if result, err = l.RunOnce(context.Background()); err != nil || result != ResultNewSample {
		t.Fatalf("expected NEW_SAMPLE, got %s (err=%v)", result, err)
	}

	if result, err = l.RunOnce(context.Background()); err != nil || result != ResultReusedSample {
		t.Fatalf("expected REUSED_SAMPLE, got %s (err=%v)", result, err)
	}
}

// A fatal XR failure (begin-frame) must be reported as such so the
// caller aborts rather than retrying.
func TestBeginFrameFailureIsFatal(t *testing.T) {
	l, rt, _, _, _ := newTestLoop()
	rt.BeginFrameErr = errNotSupported

	_, err := l.RunOnce(context.Background())
	if !IsFatal(err) {
		t.Fatalf("expected a fatal error, got %v", err)
	}
}

// A wait-frame failure is recoverable: the caller may retry.
func TestWaitFrameFailureIsNotFatal(t *testing.T) {
	l, rt, _, _, _ := newTestLoop()
	rt.WaitFrameErr = errNotSupported

	result, err := l.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if IsFatal(err) {
		t.Fatal("expected wait-frame failure to be recoverable, not fatal")
	}
	if result != ResultErrorWaitFrame {
		t.Fatalf("expected ERROR_WAITFRAME, got %s", result)
	}
}

var errNotSupported = &testError{"xrsimfake: not supported"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
