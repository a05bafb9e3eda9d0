package telemetry

import (
	"testing"

	"github.com/collabora-pluto/xrrelay/libs/wire"
)

type fakeDataChannel struct {
	sent [][]byte
}

func (f *fakeDataChannel) Send(data []byte) error {
	f.sent = append(f.sent, data)
	return nil
}

func TestDataChannelSenderRoundTrips(t *testing.T) {
	dc := &fakeDataChannel{}
	s := NewDataChannelSender(dc)

	msg := &wire.UpMessage{UpMessageID: 7, Tracking: &wire.TrackingMessage{XrTime: 42}}
	if err := s.Send(msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(dc.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(dc.sent))
	}

	decoded, err := wire.DecodeUpMessage(dc.sent[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.UpMessageID != 7 || decoded.Tracking == nil || decoded.Tracking.XrTime != 42 {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}
