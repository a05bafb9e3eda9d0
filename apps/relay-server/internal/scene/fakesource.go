package scene

import (
	"context"
	"time"

	"github.com/collabora-pluto/xrrelay/libs/wire"
)

// FakeSource produces synthetic access units at a fixed frame rate,
// standing in for the real GPU render + x264 encode pipeline that this
// system treats as an external collaborator. Useful for exercising the
// broadcaster, RTP tagging and session wiring without a real encoder.
type FakeSource struct {
	FrameInterval time.Duration
	seq           uint64
}

// NewFakeSource returns a FakeSource producing frames at the given rate.
func NewFakeSource(fps int) *FakeSource {
	interval := time.Second / time.Duration(fps)
	return &FakeSource{FrameInterval: interval}
}

// NextFrame blocks until the next tick, then returns a minimal access
// unit (a single-NAL placeholder payload) and a DownMessage describing
// it, with a strictly increasing frame_sequence_id.
func (s *FakeSource) NextFrame(ctx context.Context) (AccessUnit, *wire.DownMessage, error) {
	select {
	case <-ctx.Done():
		return AccessUnit{}, nil, ctx.Err()
	case <-time.After(s.FrameInterval):
	}

	s.seq++
	au := AccessUnit{
		Data:      []byte{0x65, 0x88, 0x84, 0x00}, // placeholder IDR-slice-like NAL
		Keyframe:  s.seq%30 == 1,
		Timestamp: uint32(s.seq * (90000 / 30)),
	}
	down := &wire.DownMessage{
		FrameSequenceID: s.seq,
		EnvBlendMode:    wire.EnvBlendModeOpaque,
	}
	return au, down, nil
}
