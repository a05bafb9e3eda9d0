// Package texturepool stands in for the GL texture cache the video
// decoder writes into: real OpenGL ES texture allocation is an external
// collaborator out of scope here, so this hands out a small ring of
// synthetic handles instead, enough to exercise the sample queue and
// frame loop end to end.
package texturepool

import (
	"sync"

	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/samplequeue"
)

// Ring is a fixed-size pool of texture handles cycled round-robin.
// TextureTarget is fixed for the lifetime of the pool, matching a real
// external/oes texture cache backed by a single format.
type Ring struct {
	mu     sync.Mutex
	next   uint32
	target uint32
	size   uint32
}

// NewRing creates a Ring of size synthetic handles numbered 1..size, all
// reporting textureTarget.
func NewRing(size uint32, textureTarget uint32) *Ring {
	if size == 0 {
		size = 1
	}
	return &Ring{size: size, target: textureTarget}
}

// Acquire returns the next handle in the ring and its texture target.
func (r *Ring) Acquire() (handle uint32, target uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next = (r.next % r.size) + 1
	return r.next, r.target
}

// Release is a no-op: handles are recycled purely by round-robin order,
// not by explicit return, since the decoder writing into them is not
// modeled here.
func (r *Ring) Release(uint32) {}

// SamplePool adapts a Ring to samplequeue.Pool, so displaced and handed-
// back samples free their texture handle the same way explicit releases
// do.
type SamplePool struct {
	Ring *Ring
}

// Release implements samplequeue.Pool.
func (p SamplePool) Release(s samplequeue.Sample) {
	p.Ring.Release(s.TextureHandle)
}
