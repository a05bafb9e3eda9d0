// Package session owns the per-client WebRTC peer connection lifecycle:
// bringing a peer up on client_connected, wiring its data channel and
// video track, and tearing it down cleanly on disconnect without
// disturbing any other client's media flow.
package session

import (
	"log"
	"math/rand"
	"sync"

	"github.com/pion/webrtc/v3"

	"github.com/collabora-pluto/xrrelay/apps/relay-server/internal/rtpext"
	"github.com/collabora-pluto/xrrelay/apps/relay-server/internal/scene"
	"github.com/collabora-pluto/xrrelay/libs/signaling"
	"github.com/collabora-pluto/xrrelay/libs/wire"
)

// ServerID identifies the relay server as a signaling participant; it is
// its own "client id" from the signaling server's point of view.
const ServerID = "relay-server"

// Metrics is the subset of the ambient metrics collector this package
// needs.
type Metrics interface {
	rtpext.Metrics
	ClientConnected(clientID string)
	ClientDisconnected(clientID string)
	SDPNegotiationFailed(clientID, reason string)
	UpMessageReceived(clientID string)
	UpMessageDecodeError(clientID string)
}

// Manager creates and tears down one WebRTC peer per connected client and
// routes signaling events to the matching peer.
type Manager struct {
	iceServers  []webrtc.ICEServer
	sig         *signaling.Server
	broadcaster *scene.Broadcaster
	downState   *DownMessageState
	metrics     Metrics
	onUpMessage func(clientID string, msg *wire.UpMessage)

	mu    sync.Mutex
	peers map[string]*peerConn
}

type peerConn struct {
	id    string
	pc    *webrtc.PeerConnection
	dc    *webrtc.DataChannel
	track *rtpext.Track
}

// NewManager creates a Manager. Wire it to a signaling.Server with Wire
// before the server starts accepting connections.
func NewManager(iceServers []webrtc.ICEServer, broadcaster *scene.Broadcaster, downState *DownMessageState, m Metrics) *Manager {
	return &Manager{
		iceServers:  iceServers,
		broadcaster: broadcaster,
		downState:   downState,
		metrics:     m,
		peers:       make(map[string]*peerConn),
	}
}

// OnUpMessage registers the callback invoked for every UpMessage decoded
// off a client's data channel.
func (m *Manager) OnUpMessage(fn func(clientID string, msg *wire.UpMessage)) {
	m.onUpMessage = fn
}

// Wire registers this Manager's handlers on sig: connect, disconnect,
// SDP answer and ICE candidate.
func (m *Manager) Wire(sig *signaling.Server) {
	m.sig = sig
	sig.OnConnected(m.handleConnected)
	sig.OnDisconnected(m.handleDisconnected)
	sig.OnEvent(signaling.EventAnswer, m.handleAnswer)
	sig.OnEvent(signaling.EventCandidate, m.handleCandidate)
}

// handleConnected implements spec's on-connect sequence: create a
// max-bundle peer, a reliable ordered data channel, a send-only H.264
// transceiver, then offer.
func (m *Manager) handleConnected(clientID string) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeH264,
			ClockRate:   90000,
			SDPFmtpLine: "packetization-mode=1;profile-level-id=42e01f",
		},
		PayloadType: 96,
	}, webrtc.RTPCodecTypeVideo); err != nil {
		log.Printf("session: register codec for client %s: %v", clientID, err)
		return
	}

	api := webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine))
	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers:   m.iceServers,
		BundlePolicy: webrtc.BundlePolicyMaxBundle,
	})
	if err != nil {
		log.Printf("session: create peer connection for client %s: %v", clientID, err)
		return
	}

	dc, err := pc.CreateDataChannel("channel", nil)
	if err != nil {
		log.Printf("session: create data channel for client %s: %v", clientID, err)
		pc.Close()
		return
	}
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		m.handleUpMessage(clientID, msg.Data)
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
		m.sig.Send(clientID, signaling.CandidateEnvelope(ServerID, clientID, mline, init.Candidate))
	})

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		log.Printf("session: client %s ICE state: %s", clientID, state)
		if state == webrtc.ICEConnectionStateFailed || state == webrtc.ICEConnectionStateClosed {
			m.teardown(clientID)
		}
	})

	track, err := rtpext.NewTrack(clientID, rand.Uint32(), clientID, m.downState, m.metrics)
	if err != nil {
		log.Printf("session: create RTP track for client %s: %v", clientID, err)
		pc.Close()
		return
	}
	transceiver, err := pc.AddTransceiverFromTrack(track.Local(), webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionSendonly,
	})
	if err != nil {
		log.Printf("session: add transceiver for client %s: %v", clientID, err)
		pc.Close()
		return
	}
	go drainRTCP(transceiver.Sender())

	units := m.broadcaster.Subscribe(clientID)
	go track.Run(units)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		log.Printf("session: create offer for client %s: %v", clientID, err)
		m.metrics.SDPNegotiationFailed(clientID, "create_offer")
		pc.Close()
		return
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		log.Printf("session: set local description for client %s: %v", clientID, err)
		m.metrics.SDPNegotiationFailed(clientID, "set_local_description")
		pc.Close()
		return
	}

	m.mu.Lock()
	m.peers[clientID] = &peerConn{id: clientID, pc: pc, dc: dc, track: track}
	m.mu.Unlock()

	m.metrics.ClientConnected(clientID)
	m.sig.Send(clientID, signaling.OfferEnvelope(ServerID, clientID, offer.SDP))
}

// handleAnswer installs the client's SDP answer as the remote description
// of the matching peer.
func (m *Manager) handleAnswer(clientID string, env signaling.Envelope) {
	peer := m.lookup(clientID)
	if peer == nil {
		log.Printf("session: answer for unknown client %s", clientID)
		return
	}
	if err := peer.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  env.SDP,
	}); err != nil {
		log.Printf("session: set remote description for client %s: %v", clientID, err)
		m.metrics.SDPNegotiationFailed(clientID, "set_remote_description")
		m.teardown(clientID)
	}
}

// handleCandidate forwards a remote ICE candidate to the matching peer.
func (m *Manager) handleCandidate(clientID string, env signaling.Envelope) {
	peer := m.lookup(clientID)
	if peer == nil {
		log.Printf("session: candidate for unknown client %s", clientID)
		return
	}
	mline := uint16(0)
	if env.MLineIndex != nil {
		mline = *env.MLineIndex
	}
	if err := peer.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:     env.Candidate,
		SDPMLineIndex: &mline,
	}); err != nil {
		log.Printf("session: add ICE candidate for client %s: %v", clientID, err)
	}
}

// handleDisconnected tears down clientID's peer without disturbing any
// other client's media flow, matching the reference implementation's
// pad-block-probe unlink from the shared tee.
func (m *Manager) handleDisconnected(clientID string) {
	m.teardown(clientID)
}

func (m *Manager) teardown(clientID string) {
	m.mu.Lock()
	peer, ok := m.peers[clientID]
	if ok {
		delete(m.peers, clientID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	m.broadcaster.Unsubscribe(clientID)
	peer.track.Stop()
	peer.pc.Close()
	m.metrics.ClientDisconnected(clientID)
}

func (m *Manager) lookup(clientID string) *peerConn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peers[clientID]
}

func (m *Manager) handleUpMessage(clientID string, data []byte) {
	msg, _, err := wire.DecodeUpMessageNullTerminated(data)
	if err != nil {
		log.Printf("session: decode UpMessage from client %s: %v", clientID, err)
		m.metrics.UpMessageDecodeError(clientID)
		return
	}
	m.metrics.UpMessageReceived(clientID)
	if m.onUpMessage != nil {
		m.onUpMessage(clientID, msg)
	}
}

// drainRTCP discards RTCP packets on sender's reader so pion's internal
// buffers do not fill up; the relay server has no use for receiver
// reports beyond what pion already exposes through connection stats.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}
