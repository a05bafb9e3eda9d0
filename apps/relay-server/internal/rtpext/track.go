// Package rtpext packetizes the server's shared H.264 access units into
// per-client RTP streams and attaches the current DownMessage to the
// marker packet of every access unit, mirroring the reference pipeline's
// buffer probe on the RTP payloader's source pad
// (gst_rtp_buffer_add_extension_twobytes_header, called only when
// GST_BUFFER_FLAG_MARKER is set).
package rtpext

import (
	"fmt"
	"log"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v3"

	"github.com/collabora-pluto/xrrelay/apps/relay-server/internal/scene"
	sharedrtpext "github.com/collabora-pluto/xrrelay/libs/rtpext"
)

const rtpMTU = 1200

// Track packetizes access units pulled from a scene.Broadcaster
// subscription into RTP and writes them to an underlying pion track,
// tagging the marker packet of each access unit with the current
// DownMessage.
type Track struct {
	clientID   string
	local      *webrtc.TrackLocalStaticRTP
	packetizer rtp.Packetizer
	downState  DownStateReader
	metrics    Metrics
	stopCh     chan struct{}
}

// Metrics is the subset of the server's metrics collector this package
// needs, kept narrow so rtpext does not import the concrete Prometheus
// type.
type Metrics interface {
	DownMessageTagged(clientID string)
	DownMessageOversize(clientID string, size int)
}

// DownStateReader is the subset of session.DownMessageState this package
// needs, kept narrow so rtpext does not import the session package.
type DownStateReader interface {
	Load() []byte
}

// NewTrack creates a Track that will packetize into a fresh
// TrackLocalStaticRTP with the given SSRC and stream id.
func NewTrack(clientID string, ssrc uint32, streamID string, downState DownStateReader, m Metrics) (*Track, error) {
	local, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeH264,
			ClockRate:   90000,
			SDPFmtpLine: "packetization-mode=1;profile-level-id=42e01f",
		},
		"video", streamID,
	)
	if err != nil {
		return nil, fmt.Errorf("rtpext: create local track: %w", err)
	}

	packetizer := rtp.NewPacketizer(
		rtpMTU,
		96,
		ssrc,
		&codecs.H264Payloader{},
		rtp.NewRandomSequencer(),
		90000,
	)

	return &Track{
		clientID:   clientID,
		local:      local,
		packetizer: packetizer,
		downState:  downState,
		metrics:    m,
		stopCh:     make(chan struct{}),
	}, nil
}

// Local returns the underlying pion track to attach to a PeerConnection.
func (t *Track) Local() *webrtc.TrackLocalStaticRTP {
	return t.local
}

// Run packetizes every access unit received on units until it is closed
// or Stop is called. Meant to run in its own goroutine, one per
// connected client, since each client's RTP sequence/timestamp state is
// independent even though every client packetizes the same access units.
func (t *Track) Run(units <-chan scene.AccessUnit) {
	for {
		select {
		case au, ok := <-units:
			if !ok {
				return
			}
			t.writeAccessUnit(au)
		case <-t.stopCh:
			return
		}
	}
}

// Stop ends the Run loop.
func (t *Track) Stop() {
	close(t.stopCh)
}

func (t *Track) writeAccessUnit(au scene.AccessUnit) {
	packets := t.packetizer.Packetize(au.Data, 90000/30)
	for i, pkt := range packets {
		last := i == len(packets)-1
		if last {
			pkt.Header.Marker = true
			t.tagWithDownMessage(pkt)
		}
		if err := t.local.WriteRTP(pkt); err != nil {
			log.Printf("rtpext: write RTP for client %s failed: %v", t.clientID, err)
			return
		}
	}
}

// tagWithDownMessage attaches the current DownMessage bytes as a
// two-byte-header RTP extension on pkt, which must be the marker packet
// of its access unit. If the payload does not fit in one extension
// element the packet is sent through untouched and the drop is counted,
// per the "log and pass through" error path.
func (t *Track) tagWithDownMessage(pkt *rtp.Packet) {
	payload := t.downState.Load()
	if payload == nil {
		return
	}
	if len(payload) > sharedrtpext.MaxPayloadSize {
		log.Printf("rtpext: DownMessage for client %s is %d bytes, exceeds %d byte extension limit, passing through untagged", t.clientID, len(payload), sharedrtpext.MaxPayloadSize)
		if t.metrics != nil {
			t.metrics.DownMessageOversize(t.clientID, len(payload))
		}
		return
	}

	pkt.Header.Extension = true
	pkt.Header.ExtensionProfile = sharedrtpext.ProfileTwoByte
	if err := pkt.Header.SetExtension(sharedrtpext.ExtensionID, payload); err != nil {
		log.Printf("rtpext: set DownMessage extension for client %s failed: %v", t.clientID, err)
		return
	}

	if t.metrics != nil {
		t.metrics.DownMessageTagged(t.clientID)
	}
}
