package session

import (
	"testing"

	"github.com/pion/rtp"

	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/samplequeue"
	"github.com/collabora-pluto/xrrelay/libs/rtpext"
	"github.com/collabora-pluto/xrrelay/libs/wire"
)

type recordingPool struct {
	next     uint32
	released []samplequeue.Sample
}

func (p *recordingPool) Acquire() (uint32, uint32) {
	p.next++
	return p.next, 0x8D65
}

func (p *recordingPool) Release(s samplequeue.Sample) {
	p.released = append(p.released, s)
}

func taggedMarkerPacket(t *testing.T, down *wire.DownMessage) *rtp.Packet {
	t.Helper()
	pkt := &rtp.Packet{Header: rtp.Header{Marker: true}}
	payload := wire.EncodeDownMessage(down)
	pkt.Header.Extension = true
	pkt.Header.ExtensionProfile = rtpext.ProfileTwoByte
	if err := pkt.Header.SetExtension(rtpext.ExtensionID, payload); err != nil {
		t.Fatalf("SetExtension: %v", err)
	}
	return pkt
}

func TestHandlePacketPublishesSampleOnMarkerPacket(t *testing.T) {
	pool := &recordingPool{}
	q := samplequeue.New(pool)
	p := &Peer{queue: q, pool: pool}

	down := &wire.DownMessage{
		FrameSequenceID: 7,
		EnvBlendMode:    wire.EnvBlendModeAdditive,
	}
	p.handlePacket(taggedMarkerPacket(t, down))

	s, ok := q.TryPull()
	if !ok {
		t.Fatal("expected a published sample")
	}
	if s.FrameSequenceID != 7 || s.EnvBlendMode != wire.EnvBlendModeAdditive {
		t.Fatalf("got %+v", s)
	}
	if s.TextureHandle != 1 {
		t.Fatalf("expected pool-issued handle 1, got %d", s.TextureHandle)
	}
}

func TestHandlePacketIgnoresNonMarkerPacket(t *testing.T) {
	pool := &recordingPool{}
	q := samplequeue.New(pool)
	p := &Peer{queue: q, pool: pool}

	pkt := &rtp.Packet{Header: rtp.Header{Marker: false}}
	p.handlePacket(pkt)

	if _, ok := q.TryPull(); ok {
		t.Fatal("expected no sample published for a non-marker packet")
	}
}

func TestHandlePacketIgnoresMarkerPacketWithoutExtension(t *testing.T) {
	pool := &recordingPool{}
	q := samplequeue.New(pool)
	p := &Peer{queue: q, pool: pool}

	pkt := &rtp.Packet{Header: rtp.Header{Marker: true}}
	p.handlePacket(pkt)

	if _, ok := q.TryPull(); ok {
		t.Fatal("expected no sample published without a DownMessage extension")
	}
}
