// Package rtpext defines the RTP header extension both the relay server
// and the XR client use to carry a DownMessage on the marker packet of
// each video access unit: RFC 8285's two-byte-header form, extension id
// 1, payload capped at 255 bytes.
package rtpext

import "github.com/pion/rtp"

// ExtensionID is the RTP header extension id carrying the DownMessage.
// Must be in [1,15] to fit the two-byte-header local-id field.
const ExtensionID = 1

// ProfileTwoByte is the RFC 8285 profile value that marks the two-byte-
// header extension form on the wire.
const ProfileTwoByte = 0x1000

// MaxPayloadSize is the two-byte-header extension element's payload
// ceiling.
const MaxPayloadSize = 255

// Extract returns the raw DownMessage bytes carried in pkt's two-byte-
// header extension with id ExtensionID, if any. A packet without the
// marker bit set must never carry this extension; callers enforcing
// that invariant should check pkt.Header.Marker themselves.
func Extract(pkt *rtp.Packet) ([]byte, bool) {
	if !pkt.Header.Extension {
		return nil, false
	}
	payload := pkt.Header.GetExtension(ExtensionID)
	if payload == nil {
		return nil, false
	}
	return payload, true
}
