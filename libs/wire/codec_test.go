package wire

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func samplePose(seed float32) Pose {
	return Pose{
		Orientation: Quaternion{X: seed, Y: seed + 1, Z: seed + 2, W: 1},
		Position:    Vector3{X: seed * 2, Y: seed * 3, Z: seed * 4},
	}
}

func TestDownMessageRoundTrip(t *testing.T) {
	want := &DownMessage{
		FrameSequenceID:        42,
		Poses:                  [2]Pose{samplePose(0.1), samplePose(0.2)},
		EnvBlendMode:           EnvBlendModeAdditive,
		AdditiveBlackThreshold: 0.05,
	}

	got, err := DecodeDownMessage(EncodeDownMessage(want))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *got != *want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestDownMessageFitsExtension(t *testing.T) {
	msg := &DownMessage{
		FrameSequenceID:        1<<64 - 1,
		Poses:                  [2]Pose{samplePose(1), samplePose(2)},
		EnvBlendMode:           EnvBlendModeAlphaBlend,
		AdditiveBlackThreshold: 1,
	}
	b := EncodeDownMessage(msg)
	if len(b) > MaxDownMessageSize {
		t.Fatalf("encoded DownMessage is %d bytes, want <= %d", len(b), MaxDownMessageSize)
	}
}

func TestUpMessageRoundTripTrackingOnly(t *testing.T) {
	want := &UpMessage{
		UpMessageID: 7,
		Tracking:    &TrackingMessage{XrTime: 123456789, Pose: samplePose(0.5)},
	}
	got, err := DecodeUpMessage(EncodeUpMessage(want))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.UpMessageID != want.UpMessageID || got.Frame != nil {
		t.Fatalf("unexpected result: %+v", got)
	}
	if *got.Tracking != *want.Tracking {
		t.Fatalf("tracking mismatch: got %+v, want %+v", got.Tracking, want.Tracking)
	}
}

func TestUpMessageRoundTripBoth(t *testing.T) {
	want := &UpMessage{
		UpMessageID: -3,
		Tracking:    &TrackingMessage{XrTime: 10, Pose: samplePose(0)},
		Frame: &FrameMessage{
			FrameSequenceID:    9,
			DecodeCompleteTime: 20,
			BeginFrameTime:     15,
			DisplayTime:        30,
		},
	}
	got, err := DecodeUpMessage(EncodeUpMessage(want))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.UpMessageID != want.UpMessageID {
		t.Fatalf("id mismatch: got %d, want %d", got.UpMessageID, want.UpMessageID)
	}
	if *got.Frame != *want.Frame {
		t.Fatalf("frame mismatch: got %+v, want %+v", got.Frame, want.Frame)
	}
}

func TestUpMessageBoundedSize(t *testing.T) {
	msg := &UpMessage{
		UpMessageID: 1<<62 - 1,
		Tracking:    &TrackingMessage{XrTime: 1 << 40, Pose: samplePose(9)},
		Frame: &FrameMessage{
			FrameSequenceID:    1<<64 - 1,
			DecodeCompleteTime: 1 << 40,
			BeginFrameTime:     1 << 40,
			DisplayTime:        1 << 40,
		},
	}
	b := EncodeUpMessage(msg)
	if len(b) > MaxUpMessageSize {
		t.Fatalf("encoded UpMessage is %d bytes, want <= %d", len(b), MaxUpMessageSize)
	}
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	want := &DownMessage{FrameSequenceID: 5, EnvBlendMode: EnvBlendModeOpaque}
	b := EncodeDownMessage(want)

	// Append a field number this codec doesn't know about; a tolerant
	// decoder must ignore it rather than fail.
	unknown := protowire.AppendTag(nil, 99, protowire.VarintType)
	unknown = protowire.AppendVarint(unknown, 1)
	b = append(b, unknown...)

	got, err := DecodeDownMessage(b)
	if err != nil {
		t.Fatalf("decode with unknown field: %v", err)
	}
	if got.FrameSequenceID != want.FrameSequenceID {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestDecodeNullTerminated(t *testing.T) {
	want := &UpMessage{UpMessageID: 4, Tracking: &TrackingMessage{XrTime: 1, Pose: samplePose(0)}}
	encoded := EncodeUpMessage(want)

	buf := append(append([]byte{}, encoded...), 0x00, 0xAA, 0xBB)
	got, n, err := DecodeUpMessageNullTerminated(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != len(encoded)+1 {
		t.Fatalf("consumed %d bytes, want %d", n, len(encoded)+1)
	}
	if got.UpMessageID != want.UpMessageID {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
