// Package session owns the client's single WebRTC peer connection: SDP
// offer/answer negotiation, ICE candidate exchange, the incoming video
// track's RTP-to-sample pipeline, and the data channel telemetry rides
// on.
package session

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"

	"github.com/collabora-pluto/xrrelay/apps/xr-client/internal/samplequeue"
	"github.com/collabora-pluto/xrrelay/libs/rtpext"
	"github.com/collabora-pluto/xrrelay/libs/signaling"
	"github.com/collabora-pluto/xrrelay/libs/wire"
)

// serverClientID is the fixed peer id offers are addressed to, matching
// this exercise's single-headset, single-relay scope.
const serverClientID = "relay-server"

// TexturePool hands out texture handles for newly decoded frames; the
// real GL texture cache the decoder writes into is out of scope here
// (external collaborator), so this stands in with a small ring of
// handles.
type TexturePool interface {
	Acquire() (handle uint32, target uint32)
}

// Peer negotiates and drives one WebRTC connection to the relay server
// over a signaling.Client it owns.
type Peer struct {
	sig    *signaling.Client
	queue  *samplequeue.Queue
	pool   TexturePool
	onOpen func(dc *webrtc.DataChannel)

	pc        *webrtc.PeerConnection
	connected atomic.Bool
}

// NewPeer creates a Peer and wires its offer/candidate handlers on a new
// signaling.Client dialing uri. onOpen fires once the server's data
// channel is open and ready for telemetry sends.
func NewPeer(uri string, queue *samplequeue.Queue, pool TexturePool, onOpen func(dc *webrtc.DataChannel)) *Peer {
	p := &Peer{
		sig:    signaling.NewClient(uri, ""),
		queue:  queue,
		pool:   pool,
		onOpen: onOpen,
	}
	p.sig.OnEvent(signaling.EventOffer, p.handleOffer)
	p.sig.OnEvent(signaling.EventCandidate, p.handleCandidate)
	return p
}

// Dial connects the underlying signaling client.
func (p *Peer) Dial(ctx context.Context) error {
	return p.sig.Dial(ctx)
}

// Connected reports whether an ICE-connected peer connection currently
// exists.
func (p *Peer) Connected() bool {
	return p.connected.Load()
}

func (p *Peer) handleOffer(_ string, env signaling.Envelope) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeH264,
			ClockRate:   90000,
			SDPFmtpLine: "packetization-mode=1;profile-level-id=42e01f",
		},
		PayloadType: 96,
	}, webrtc.RTPCodecTypeVideo); err != nil {
		log.Printf("session: register codec: %v", err)
		return
	}

	api := webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine))
	pc, err := api.NewPeerConnection(webrtc.Configuration{
		BundlePolicy: webrtc.BundlePolicyMaxBundle,
	})
	if err != nil {
		log.Printf("session: create peer connection: %v", err)
		return
	}
	p.pc = pc

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		p.connected.Store(s == webrtc.PeerConnectionStateConnected)
	})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		mline := uint16(0)
		if init.SDPMLineIndex != nil {
			mline = *init.SDPMLineIndex
		}
		p.sig.Send(signaling.CandidateEnvelope("", serverClientID, mline, init.Candidate))
	})

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		dc.OnOpen(func() {
			if p.onOpen != nil {
				p.onOpen(dc)
			}
		})
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		go p.readTrack(track)
	})

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  env.SDP,
	}); err != nil {
		log.Printf("session: set remote description: %v", err)
		return
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		log.Printf("session: create answer: %v", err)
		return
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		log.Printf("session: set local description: %v", err)
		return
	}

	p.sig.Send(signaling.AnswerEnvelope("", serverClientID, answer.SDP))
}

func (p *Peer) handleCandidate(_ string, env signaling.Envelope) {
	if p.pc == nil {
		return
	}
	mline := uint16(0)
	if env.MLineIndex != nil {
		mline = *env.MLineIndex
	}
	if err := p.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:     env.Candidate,
		SDPMLineIndex: &mline,
	}); err != nil {
		log.Printf("session: add ICE candidate: %v", err)
	}
}

// readTrack consumes RTP packets off the incoming video track, decoding
// the marker packet's DownMessage extension and publishing a Sample for
// every completed access unit. The actual H.264 decode into a GL texture
// is an external collaborator; this stands in with a pool-issued handle
// so the rest of the pipeline can be exercised end to end.
func (p *Peer) readTrack(track *webrtc.TrackRemote) {
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		p.handlePacket(pkt)
	}
}

// handlePacket applies one received RTP packet: non-marker packets carry
// no DownMessage and are ignored, since access-unit metadata only rides
// on the last packet of each frame.
func (p *Peer) handlePacket(pkt *rtp.Packet) {
	if !pkt.Header.Marker {
		return
	}
	payload, ok := rtpext.Extract(pkt)
	if !ok {
		return
	}
	down, err := wire.DecodeDownMessage(payload)
	if err != nil {
		log.Printf("session: decode DownMessage: %v", err)
		return
	}

	handle, target := p.pool.Acquire()
	p.queue.Publish(samplequeue.Sample{
		TextureHandle:          handle,
		TextureTarget:          target,
		Poses:                  down.Poses,
		EnvBlendMode:           down.EnvBlendMode,
		AdditiveBlackThreshold: down.AdditiveBlackThreshold,
		FrameSequenceID:        down.FrameSequenceID,
		DecodeCompleteTime:     time.Now(),
	})
}

// Close tears down the peer connection and the signaling client.
func (p *Peer) Close() error {
	if p.pc != nil {
		if err := p.pc.Close(); err != nil {
			return err
		}
	}
	return p.sig.Close()
}
