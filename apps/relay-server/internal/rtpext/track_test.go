package rtpext

import (
	"testing"

	"github.com/pion/rtp"

	"github.com/collabora-pluto/xrrelay/libs/rtpext"
)

type recordingMetrics struct {
	tagged   int
	oversize int
}

func (m *recordingMetrics) DownMessageTagged(string)        { m.tagged++ }
func (m *recordingMetrics) DownMessageOversize(string, int) { m.oversize++ }

// testDownState is a minimal stand-in for session.DownMessageState, kept
// local to avoid this test importing the session package (which imports
// rtpext, and would otherwise form an import cycle in the test binary).
type testDownState struct {
	payload []byte
}

func (d *testDownState) Set(b []byte) { d.payload = b }
func (d *testDownState) Load() []byte { return d.payload }

func newTestTrack(t *testing.T, downState *testDownState, m Metrics) *Track {
	t.Helper()
	tr, err := NewTrack("client-1", 12345, "stream-1", downState, m)
	if err != nil {
		t.Fatalf("NewTrack: %v", err)
	}
	return tr
}

func TestTagWithDownMessageAttachesExtension(t *testing.T) {
	downState := &testDownState{}
	downState.Set([]byte("fake-down-message-bytes"))

	m := &recordingMetrics{}
	tr := newTestTrack(t, downState, m)

	pkt := &rtp.Packet{Header: rtp.Header{}}
	tr.tagWithDownMessage(pkt)

	got, ok := rtpext.Extract(pkt)
	if !ok {
		t.Fatal("expected extension to be attached")
	}
	if string(got) != "fake-down-message-bytes" {
		t.Fatalf("got %q", got)
	}
	if m.tagged != 1 {
		t.Fatalf("tagged count = %d, want 1", m.tagged)
	}
}

func TestTagWithDownMessageSkipsOversize(t *testing.T) {
	downState := &testDownState{}
	oversized := make([]byte, 256)
	downState.Set(oversized)

	m := &recordingMetrics{}
	tr := newTestTrack(t, downState, m)

	pkt := &rtp.Packet{Header: rtp.Header{}}
	tr.tagWithDownMessage(pkt)

	if _, ok := rtpext.Extract(pkt); ok {
		t.Fatal("expected no extension on oversize DownMessage")
	}
	if m.oversize != 1 {
		t.Fatalf("oversize count = %d, want 1", m.oversize)
	}
}

func TestTagWithDownMessageNoneSetYet(t *testing.T) {
	downState := &testDownState{}
	tr := newTestTrack(t, downState, &recordingMetrics{})

	pkt := &rtp.Packet{Header: rtp.Header{}}
	tr.tagWithDownMessage(pkt)

	if _, ok := rtpext.Extract(pkt); ok {
		t.Fatal("expected no extension when no DownMessage has been produced yet")
	}
}
