// Package signaling exchanges SDP offers/answers and ICE candidates
// between the relay server and a headset client over a websocket, and
// delivers the client_connected/client_disconnected lifecycle events that
// bracket them. It is transport-agnostic in the sense that the message
// contract (three event kinds plus connect/disconnect) does not depend on
// what the peers do with the SDP text; only the JSON envelope shape is
// fixed.
package signaling

import "encoding/json"

// EventType discriminates the JSON envelope's "type" field.
type EventType string

const (
	EventOffer     EventType = "offer"
	EventAnswer    EventType = "answer"
	EventCandidate EventType = "candidate"
	EventPing      EventType = "ping"
	EventPong      EventType = "pong"
)

// Envelope is the wire shape of every message on the signaling websocket.
// RecipientID names the peer a message is addressed to; it is empty on
// messages the client sends about itself (e.g. ping). Server does not
// route on it: every envelope a client sends is dispatched to the
// server's own handler for its type.
type Envelope struct {
	Type        EventType `json:"type"`
	ClientID    string    `json:"client_id,omitempty"`
	RecipientID string    `json:"recipient_id,omitempty"`
	SDP         string    `json:"sdp,omitempty"`
	MLineIndex  *uint16   `json:"mline_index,omitempty"`
	Candidate   string    `json:"candidate,omitempty"`
	Timestamp   int64     `json:"timestamp,omitempty"`
}

func (e Envelope) marshal() []byte {
	b, err := json.Marshal(e)
	if err != nil {
		// Envelope's fields are all JSON-safe scalars; Marshal only fails
		// on cyclic or unsupported types, neither of which applies here.
		panic("signaling: envelope failed to marshal: " + err.Error())
	}
	return b
}

// OfferEnvelope builds an offer message addressed to recipientID.
func OfferEnvelope(clientID, recipientID, sdp string) Envelope {
	return Envelope{Type: EventOffer, ClientID: clientID, RecipientID: recipientID, SDP: sdp}
}

// AnswerEnvelope builds an answer message addressed to recipientID.
func AnswerEnvelope(clientID, recipientID, sdp string) Envelope {
	return Envelope{Type: EventAnswer, ClientID: clientID, RecipientID: recipientID, SDP: sdp}
}

// CandidateEnvelope builds an ICE candidate message addressed to recipientID.
func CandidateEnvelope(clientID, recipientID string, mLineIndex uint16, candidate string) Envelope {
	return Envelope{
		Type:        EventCandidate,
		ClientID:    clientID,
		RecipientID: recipientID,
		MLineIndex:  &mLineIndex,
		Candidate:   candidate,
	}
}
