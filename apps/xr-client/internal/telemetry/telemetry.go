// Package telemetry sends UpMessages (tracking poses and frame timing)
// to the relay server over the WebRTC data channel. A telemetry send
// failure is logged but never aborts the render loop — see the render
// loop's error-handling design. The pipeline assigns UpMessageID from
// its own shared counter before calling Send, since that ordering
// guarantee spans every Sender implementation, not just this one.
package telemetry

import "github.com/collabora-pluto/xrrelay/libs/wire"

// Sender delivers an encoded UpMessage to the server. Implementations
// must not block the render loop for longer than a send buffer check.
type Sender interface {
	Send(msg *wire.UpMessage) error
}

// DataChannel is the narrow surface telemetry needs from a WebRTC data
// channel, satisfied directly by *webrtc.DataChannel.
type DataChannel interface {
	Send(data []byte) error
}

// DataChannelSender encodes each UpMessage with libs/wire and writes it
// to the data channel.
type DataChannelSender struct {
	dc DataChannel
}

// NewDataChannelSender returns a Sender backed by dc.
func NewDataChannelSender(dc DataChannel) *DataChannelSender {
	return &DataChannelSender{dc: dc}
}

// Send writes msg's encoded form to the data channel.
func (s *DataChannelSender) Send(msg *wire.UpMessage) error {
	b := wire.EncodeUpMessage(msg)
	return s.dc.Send(b)
}

var _ Sender = (*DataChannelSender)(nil)
