// Package pipeline drives the client's synchronized XR frame loop: wait
// for the runtime, pull the latest decoded sample, composite it with
// whatever passthrough contributes, submit the frame, and report pose
// and timing telemetry upstream. See the package's accompanying design
// notes for the per-step failure-handling contract this file implements
// exactly.
package pipeline

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/passthrough"
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/samplequeue"
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/telemetry"
	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/xrsys"
	"github.com/collabora-pluto/xrrelay/libs/wire"
)

// waitSwapchainWarnThreshold is the latency past which a slow
// WaitSwapchainImage call is logged but never treated as an error.
const waitSwapchainWarnThreshold = 2 * time.Millisecond

// Metrics is the narrow observability surface the loop reports through.
// Defined here (not imported) so a metrics package can depend on
// pipeline.Result without pipeline needing to depend back on it.
type Metrics interface {
	IterationResult(result Result)
	TelemetrySendFailed()
	WaitSwapchainSlow()
}

// Loop owns everything the render thread touches: the runtime, the
// sample queue, the passthrough backend, and the telemetry sender. It is
// not safe for concurrent use — the render thread is its sole caller,
// matching the single-threaded discipline described in the concurrency
// design.
type Loop struct {
	Runtime   xrsys.Runtime
	Queue     *samplequeue.Queue
	Backend   passthrough.Backend
	Telemetry telemetry.Sender
	Renderer  Renderer
	Metrics   Metrics

	prevSample  *samplequeue.Sample
	nextUpMsgID atomic.Int64
}

// NewLoop returns a Loop whose up_message_id counter starts at 1, as
// required by the ordering guarantee. metrics may be nil.
func NewLoop(rt xrsys.Runtime, q *samplequeue.Queue, backend passthrough.Backend, sender telemetry.Sender, renderer Renderer, metrics Metrics) *Loop {
	return &Loop{Runtime: rt, Queue: q, Backend: backend, Telemetry: sender, Renderer: renderer, Metrics: metrics}
}

// Run drives RunOnce until ctx is cancelled or a fatal error occurs.
// ERROR_WAITFRAME and ERROR_EGL results are logged and retried on the
// next iteration; every other error aborts the loop.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := l.RunOnce(ctx)
		if err != nil {
			if IsFatal(err) {
				return err
			}
			log.Printf("pipeline: iteration returned %s: %v", result, err)
		}
	}
}

// RunOnce executes exactly one iteration of the ten-step frame loop.
func (l *Loop) RunOnce(ctx context.Context) (Result, error) {
	wf, err := l.Runtime.WaitFrame()
	if err != nil {
		return ResultErrorWaitFrame, err
	}

	if err := l.Runtime.BeginFrame(); err != nil {
		return ResultErrorWaitFrame, fatalf("begin-frame failed: %v", err)
	}
	beginFrameTime := time.Now()

	views, locateErr := l.Runtime.LocateViews(wf.PredictedDisplayTime)
	shouldRender := wf.ShouldRender && locateErr == nil

	var (
		result        Result = ResultShouldNotRender
		layers        []xrsys.CompositionLayer
		renderedNow   bool
		renderErr     error
	)

	if shouldRender {
		result = l.pullSample()

		if result == ResultNewSample || result == ResultReusedSample {
			sample := *l.prevSample

			if mode := sample.EnvBlendMode; mode != wire.EnvBlendModeUnspecified {
				if mode == wire.EnvBlendModeAdditive && l.Backend.UseAlphaBlendForAdditive() {
					mode = wire.EnvBlendModeAlphaBlend
				}
				l.Backend.SetBlendMode(mode)
			}
			ptLayer := l.Backend.CompositionLayer()
			clear := l.Backend.ClearColor()

			img, err := l.Runtime.AcquireSwapchainImage()
			if err != nil {
				return result, fatalf("acquire-swapchain failed: %v", err)
			}

			waitStart := time.Now()
			if err := l.Runtime.WaitSwapchainImage(); err != nil {
				return result, fatalf("wait-swapchain-image failed: %v", err)
			}
			if waited := time.Since(waitStart); waited > waitSwapchainWarnThreshold {
				log.Printf("pipeline: wait-swapchain-image took %s, exceeding %s", waited, waitSwapchainWarnThreshold)
				if l.Metrics != nil {
					l.Metrics.WaitSwapchainSlow()
				}
			}

			if l.Renderer != nil {
				if err := l.Renderer.Render(img, sample, clear, ptLayer.ProjectionAlphaBlend); err != nil {
					renderErr = err
					result = ResultErrorEGL
				}
			}

			if err := l.Runtime.ReleaseSwapchainImage(); err != nil {
				return result, fatalf("release-swapchain-image failed: %v", err)
			}

			if ptLayer.Layer != nil {
				layers = append(layers, xrsys.CompositionLayer{Passthrough: ptLayer.Layer})
			}
			if renderErr == nil {
				layers = append(layers, xrsys.CompositionLayer{Projection: buildProjectionLayer(img, sample, views, l.Runtime.EyeWidth(), l.Runtime.EyeHeight())})
				renderedNow = true
			}
		}
	}

	blendMode := l.Backend.BlendMode()
	if err := l.Runtime.EndFrame(wf.PredictedDisplayTime, blendMode, layers); err != nil {
		log.Printf("pipeline: end-frame failed: %v", err)
	}

	l.emitTelemetry(wf.PredictedDisplayTime, beginFrameTime, renderedNow)

	if l.Metrics != nil {
		l.Metrics.IterationResult(result)
	}

	return result, renderErr
}

// pullSample implements step 5: consult the sample queue and update the
// held prev_sample accordingly.
func (l *Loop) pullSample() Result {
	if s, ok := l.Queue.TryPull(); ok {
		if l.prevSample != nil {
			l.Queue.HandBack(*l.prevSample)
		}
		l.prevSample = &s
		return ResultNewSample
	}
	if l.prevSample != nil {
		return ResultReusedSample
	}
	return ResultNoSampleAvailable
}

func buildProjectionLayer(img xrsys.SwapchainImage, sample samplequeue.Sample, views [2]xrsys.ViewPose, eyeWidth, eyeHeight int) *xrsys.ProjectionLayer {
	return &xrsys.ProjectionLayer{
		Views: [2]xrsys.ProjectionView{
			{
				Image: img, ImageX: 0, ImageY: 0, ImageW: eyeWidth, ImageH: eyeHeight,
				Pose: sample.Poses[0], Fov: views[0].Fov,
			},
			{
				Image: img, ImageX: eyeWidth, ImageY: 0, ImageW: eyeWidth, ImageH: eyeHeight,
				Pose: sample.Poses[1], Fov: views[1].Fov,
			},
		},
	}
}

// emitTelemetry implements step 10: a tracking message is always
// attempted; a frame timing message follows only when a sample was
// rendered this iteration. beginFrameTime is the wall time sampled
// immediately after BeginFrame returned, not resampled here, so it
// reflects step 2's timestamp rather than everything render/end-frame
// spent afterward.
func (l *Loop) emitTelemetry(displayTime xrsys.XrTime, beginFrameTime time.Time, renderedNow bool) {
	pose, err := l.Runtime.LocateViewSpace(displayTime)
	if err != nil {
		log.Printf("pipeline: locate-view-space failed, skipping tracking telemetry: %v", err)
	} else {
		l.send(&wire.UpMessage{Tracking: &wire.TrackingMessage{XrTime: int64(displayTime), Pose: pose}})
	}

	if !renderedNow || l.prevSample == nil {
		return
	}
	sample := l.prevSample

	beginTime, err := l.Runtime.ConvertTimespecToTime(beginFrameTime)
	if err != nil {
		log.Printf("pipeline: begin-frame time conversion failed, skipping frame telemetry: %v", err)
		return
	}
	decodeTime, err := l.Runtime.ConvertTimespecToTime(sample.DecodeCompleteTime)
	if err != nil {
		log.Printf("pipeline: decode-complete time conversion failed, skipping frame telemetry: %v", err)
		return
	}

	l.send(&wire.UpMessage{Frame: &wire.FrameMessage{
		FrameSequenceID:    sample.FrameSequenceID,
		DecodeCompleteTime: int64(decodeTime),
		BeginFrameTime:     int64(beginTime),
		DisplayTime:        int64(displayTime),
	}})
}

func (l *Loop) send(msg *wire.UpMessage) {
	msg.UpMessageID = l.nextUpMsgID.Add(1)
	if err := l.Telemetry.Send(msg); err != nil {
		log.Printf("pipeline: telemetry send failed: %v", err)
		if l.Metrics != nil {
			l.Metrics.TelemetrySendFailed()
		}
	}
}
