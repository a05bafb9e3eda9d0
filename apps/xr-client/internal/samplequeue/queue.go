// Package samplequeue implements the single-slot hand-off of decoded
// video frames between the decode thread and the render thread. The
// producer always publishes only the latest sample; the consumer pulls
// it at most once and must hand it back exactly once when done with it.
package samplequeue

import (
	"sync/atomic"
	"time"

	"github.com/collabora-pluto/xrrelay/libs/wire"
)

// Sample is a decoded video frame plus the per-frame metadata the server
// attached to it (see wire.DownMessage), owned by exactly one side at a
// time: the decode thread until Publish, the render thread from TryPull
// until HandBack.
type Sample struct {
	TextureHandle          uint32
	TextureTarget          uint32
	Poses                  [2]wire.Pose
	EnvBlendMode           wire.EnvBlendMode
	AdditiveBlackThreshold float32
	FrameSequenceID        uint64
	DecodeCompleteTime     time.Time
}

// Pool receives samples handed back by the render thread so their
// textures can be reused for a future decode, and samples that were
// displaced by a newer publish before ever being pulled.
type Pool interface {
	Release(s Sample)
}

// Queue is the single-slot handoff described in package samplequeue's
// doc comment. Create one with New; its pool is fixed at construction.
type Queue struct {
	pending atomic.Pointer[Sample]
	pool    Pool
}

// New returns a Queue that returns displaced/handed-back samples to pool.
func New(pool Pool) *Queue {
	return &Queue{pool: pool}
}

// Publish atomically replaces the pending sample. If one was already
// pending and unconsumed, it is released back to the pool immediately.
// Never blocks.
func (q *Queue) Publish(s Sample) {
	old := q.pending.Swap(&s)
	if old != nil {
		q.pool.Release(*old)
	}
}

// TryPull removes and returns the pending sample, if any. Non-blocking.
func (q *Queue) TryPull() (Sample, bool) {
	old := q.pending.Swap(nil)
	if old == nil {
		return Sample{}, false
	}
	return *old, true
}

// HandBack releases a previously pulled sample back to the pool. Must be
// called exactly once per successful TryPull, before the next TryPull's
// result is itself handed back — enforced by the render thread being the
// queue's sole consumer (see the concurrency model).
func (q *Queue) HandBack(s Sample) {
	q.pool.Release(s)
}
