package scene

import (
	"context"
	"log"

	"github.com/collabora-pluto/xrrelay/libs/wire"
)

// Source yields the next rendered frame: its encoded access unit and the
// per-frame metadata the RTP tagging probe should attach to it. The
// concrete renderer/encoder (GPU stereo render, x264 encode) is the "video
// decoder and WebRTC stack" collaborator this system treats as external;
// Source is the seam a real encoder implementation plugs into.
type Source interface {
	NextFrame(ctx context.Context) (AccessUnit, *wire.DownMessage, error)
}

// DownMessageSink is the write side of session.DownMessageState, kept as
// an interface here so this package does not import session (which
// itself depends on scene for the Broadcaster type).
type DownMessageSink interface {
	Set([]byte)
}

// Loop pulls frames from src, publishes each access unit to the
// broadcaster, and encodes+publishes the accompanying DownMessage to
// sink, corresponding to the "scene-producer thread" of the concurrency
// model: it may update the DownMessage at any time, independent of the
// RTP tagging probe reading it on its own goroutine.
type Loop struct {
	Source      Source
	Broadcaster *Broadcaster
	DownSink    DownMessageSink
}

// Run drives the loop until ctx is cancelled or src returns an error.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		au, down, err := l.Source.NextFrame(ctx)
		if err != nil {
			return err
		}

		if down != nil {
			l.DownSink.Set(wire.EncodeDownMessage(down))
		}

		if dropped := l.Broadcaster.Publish(au); len(dropped) > 0 {
			log.Printf("scene: dropped frame for slow subscribers: %v", dropped)
		}
	}
}
