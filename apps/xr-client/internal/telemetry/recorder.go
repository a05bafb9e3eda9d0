package telemetry

import "github.com/collabora-pluto/xrrelay/libs/wire"

// Recorder is an in-memory Sender for tests: it never fails and keeps
// every message it was asked to send, in order.
type Recorder struct {
	Sent []*wire.UpMessage
}

// Send records msg and always succeeds.
func (r *Recorder) Send(msg *wire.UpMessage) error {
	r.Sent = append(r.Sent, msg)
	return nil
}

var _ Sender = (*Recorder)(nil)
