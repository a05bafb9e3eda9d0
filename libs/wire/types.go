// Package wire implements the two message types exchanged between the
// relay server and the headset client: DownMessage (server to client, via
// the RTP header extension on each video access unit) and UpMessage
// (client to server, via the WebRTC data channel).
package wire

// EnvBlendMode mirrors the XR runtime's environment blend mode enum.
type EnvBlendMode int32

const (
	EnvBlendModeUnspecified EnvBlendMode = 0
	EnvBlendModeOpaque      EnvBlendMode = 1
	EnvBlendModeAdditive    EnvBlendMode = 2
	EnvBlendModeAlphaBlend  EnvBlendMode = 3
)

// Quaternion is a unit orientation.
type Quaternion struct {
	X, Y, Z, W float32
}

// Vector3 is a position in meters.
type Vector3 struct {
	X, Y, Z float32
}

// Pose is an orientation plus a position, both in the same reference space.
type Pose struct {
	Orientation Quaternion
	Position    Vector3
}

// DownMessage is the per-frame metadata the server attaches to the video
// access unit that was rendered from the poses it carries. It must
// serialize to no more than 255 bytes: it rides in a single two-byte-header
// RTP extension element.
type DownMessage struct {
	FrameSequenceID        uint64
	Poses                  [2]Pose
	EnvBlendMode           EnvBlendMode
	AdditiveBlackThreshold float32
}

// TrackingMessage reports a view-space pose in the world reference space at
// a given predicted display time, expressed in the XR time domain.
type TrackingMessage struct {
	XrTime int64
	Pose   Pose
}

// FrameMessage reports the timing of one rendered frame, all timestamps in
// the XR time domain.
type FrameMessage struct {
	FrameSequenceID    uint64
	DecodeCompleteTime int64
	BeginFrameTime     int64
	DisplayTime        int64
}

// UpMessage is any client-to-server message on the data channel. Tracking
// and Frame are independently optional; a message may carry either, or
// both at once (per the wire contract's "union of both").
type UpMessage struct {
	UpMessageID int64
	Tracking    *TrackingMessage
	Frame       *FrameMessage
}

// MaxUpMessageSize bounds the encoded size of an UpMessage at compile
// time: two fixed-size sub-messages, a handful of varint fields, and tag
// overhead, rounded up with slack for future fields.
const MaxUpMessageSize = 128

// MaxDownMessageSize is the RFC 8285 two-byte-header extension element
// payload ceiling.
const MaxDownMessageSize = 255
