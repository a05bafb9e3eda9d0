package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers. Kept in one place so encode and decode never drift.
const (
	fieldDownFrameSequenceID = 1
	fieldDownPose0           = 2
	fieldDownPose1           = 3
	fieldDownEnvBlendMode    = 4
	fieldDownAdditiveThresh  = 5

	fieldPoseOrientation = 1
	fieldPosePosition    = 2

	fieldQuatX = 1
	fieldQuatY = 2
	fieldQuatZ = 3
	fieldQuatW = 4

	fieldVecX = 1
	fieldVecY = 2
	fieldVecZ = 3

	fieldUpMessageID = 1
	fieldUpTracking  = 2
	fieldUpFrame     = 3

	fieldTrackingXrTime = 1
	fieldTrackingPose   = 2

	fieldFrameSequenceID  = 1
	fieldFrameDecodeTime  = 2
	fieldFrameBeginTime   = 3
	fieldFrameDisplayTime = 4
)

// EncodeDownMessage serializes msg in deterministic field order. Callers
// on the RTP path must additionally verify the result is <= MaxDownMessageSize
// before attaching it as a header extension; this function does not
// enforce that ceiling itself so it stays usable for other framings too.
func EncodeDownMessage(msg *DownMessage) []byte {
	b := make([]byte, 0, MaxDownMessageSize)
	b = protowire.AppendTag(b, fieldDownFrameSequenceID, protowire.VarintType)
	b = protowire.AppendVarint(b, msg.FrameSequenceID)

	pose0 := encodePose(&msg.Poses[0])
	b = protowire.AppendTag(b, fieldDownPose0, protowire.BytesType)
	b = protowire.AppendBytes(b, pose0)

	pose1 := encodePose(&msg.Poses[1])
	b = protowire.AppendTag(b, fieldDownPose1, protowire.BytesType)
	b = protowire.AppendBytes(b, pose1)

	b = protowire.AppendTag(b, fieldDownEnvBlendMode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(int64(msg.EnvBlendMode)))

	b = protowire.AppendTag(b, fieldDownAdditiveThresh, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, float32bits(msg.AdditiveBlackThreshold))

	return b
}

// DecodeDownMessage parses a buffer produced by EncodeDownMessage. Unknown
// fields are skipped rather than rejected.
func DecodeDownMessage(b []byte) (*DownMessage, error) {
	msg := &DownMessage{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: down message: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldDownFrameSequenceID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: down message: bad frame_sequence_id: %w", protowire.ParseError(n))
			}
			msg.FrameSequenceID = v
			b = b[n:]

		case fieldDownPose0:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: down message: bad pose0: %w", protowire.ParseError(n))
			}
			pose, err := decodePose(v)
			if err != nil {
				return nil, fmt.Errorf("wire: down message: pose0: %w", err)
			}
			msg.Poses[0] = *pose
			b = b[n:]

		case fieldDownPose1:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: down message: bad pose1: %w", protowire.ParseError(n))
			}
			pose, err := decodePose(v)
			if err != nil {
				return nil, fmt.Errorf("wire: down message: pose1: %w", err)
			}
			msg.Poses[1] = *pose
			b = b[n:]

		case fieldDownEnvBlendMode:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: down message: bad env_blend_mode: %w", protowire.ParseError(n))
			}
			msg.EnvBlendMode = EnvBlendMode(int32(v))
			b = b[n:]

		case fieldDownAdditiveThresh:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: down message: bad additive_black_threshold: %w", protowire.ParseError(n))
			}
			msg.AdditiveBlackThreshold = float32frombits(v)
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("wire: down message: bad unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return msg, nil
}

// EncodeUpMessage serializes msg in deterministic field order.
func EncodeUpMessage(msg *UpMessage) []byte {
	b := make([]byte, 0, MaxUpMessageSize)
	b = protowire.AppendTag(b, fieldUpMessageID, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(msg.UpMessageID))

	if msg.Tracking != nil {
		tb := encodeTracking(msg.Tracking)
		b = protowire.AppendTag(b, fieldUpTracking, protowire.BytesType)
		b = protowire.AppendBytes(b, tb)
	}
	if msg.Frame != nil {
		fb := encodeFrame(msg.Frame)
		b = protowire.AppendTag(b, fieldUpFrame, protowire.BytesType)
		b = protowire.AppendBytes(b, fb)
	}
	return b
}

// DecodeUpMessage parses a buffer produced by EncodeUpMessage.
func DecodeUpMessage(b []byte) (*UpMessage, error) {
	msg := &UpMessage{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: up message: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldUpMessageID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: up message: bad up_message_id: %w", protowire.ParseError(n))
			}
			msg.UpMessageID = protowire.DecodeZigZag(v)
			b = b[n:]

		case fieldUpTracking:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: up message: bad tracking: %w", protowire.ParseError(n))
			}
			tr, err := decodeTracking(v)
			if err != nil {
				return nil, fmt.Errorf("wire: up message: tracking: %w", err)
			}
			msg.Tracking = tr
			b = b[n:]

		case fieldUpFrame:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: up message: bad frame: %w", protowire.ParseError(n))
			}
			fr, err := decodeFrame(v)
			if err != nil {
				return nil, fmt.Errorf("wire: up message: frame: %w", err)
			}
			msg.Frame = fr
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("wire: up message: bad unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return msg, nil
}

// DecodeUpMessageNullTerminated decodes an UpMessage embedded in a larger
// buffer without a preceding length prefix, the way nanopb's
// PB_DECODE_NULLTERMINATED reads fields until it finds a zero tag byte or
// runs out of input. It returns the message and the number of bytes
// consumed from b, including the terminating zero byte if one was
// present.
func DecodeUpMessageNullTerminated(b []byte) (*UpMessage, int, error) {
	orig := b
	msg := &UpMessage{}
	for len(b) > 0 {
		if b[0] == 0 {
			consumed := len(orig) - len(b)
			return msg, consumed + 1, nil
		}
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, 0, fmt.Errorf("wire: up message (null-terminated): bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldUpMessageID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, 0, fmt.Errorf("wire: up message (null-terminated): bad up_message_id: %w", protowire.ParseError(n))
			}
			msg.UpMessageID = protowire.DecodeZigZag(v)
			b = b[n:]

		case fieldUpTracking:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, 0, fmt.Errorf("wire: up message (null-terminated): bad tracking: %w", protowire.ParseError(n))
			}
			tr, err := decodeTracking(v)
			if err != nil {
				return nil, 0, fmt.Errorf("wire: up message (null-terminated): tracking: %w", err)
			}
			msg.Tracking = tr
			b = b[n:]

		case fieldUpFrame:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, 0, fmt.Errorf("wire: up message (null-terminated): bad frame: %w", protowire.ParseError(n))
			}
			fr, err := decodeFrame(v)
			if err != nil {
				return nil, 0, fmt.Errorf("wire: up message (null-terminated): frame: %w", err)
			}
			msg.Frame = fr
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, 0, fmt.Errorf("wire: up message (null-terminated): bad unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return msg, len(orig) - len(b), nil
}

func encodePose(p *Pose) []byte {
	b := make([]byte, 0, 32)
	qb := encodeQuaternion(&p.Orientation)
	b = protowire.AppendTag(b, fieldPoseOrientation, protowire.BytesType)
	b = protowire.AppendBytes(b, qb)

	vb := encodeVector3(&p.Position)
	b = protowire.AppendTag(b, fieldPosePosition, protowire.BytesType)
	b = protowire.AppendBytes(b, vb)
	return b
}

func decodePose(b []byte) (*Pose, error) {
	p := &Pose{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldPoseOrientation:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("bad orientation: %w", protowire.ParseError(n))
			}
			q, err := decodeQuaternion(v)
			if err != nil {
				return nil, err
			}
			p.Orientation = *q
			b = b[n:]
		case fieldPosePosition:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("bad position: %w", protowire.ParseError(n))
			}
			vec, err := decodeVector3(v)
			if err != nil {
				return nil, err
			}
			p.Position = *vec
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("bad unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return p, nil
}

func encodeQuaternion(q *Quaternion) []byte {
	b := make([]byte, 0, 20)
	b = protowire.AppendTag(b, fieldQuatX, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, float32bits(q.X))
	b = protowire.AppendTag(b, fieldQuatY, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, float32bits(q.Y))
	b = protowire.AppendTag(b, fieldQuatZ, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, float32bits(q.Z))
	b = protowire.AppendTag(b, fieldQuatW, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, float32bits(q.W))
	return b
}

func decodeQuaternion(b []byte) (*Quaternion, error) {
	q := &Quaternion{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldQuatX, fieldQuatY, fieldQuatZ, fieldQuatW:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, fmt.Errorf("bad component: %w", protowire.ParseError(n))
			}
			f := float32frombits(v)
			switch num {
			case fieldQuatX:
				q.X = f
			case fieldQuatY:
				q.Y = f
			case fieldQuatZ:
				q.Z = f
			case fieldQuatW:
				q.W = f
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("bad unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return q, nil
}

func encodeVector3(v *Vector3) []byte {
	b := make([]byte, 0, 16)
	b = protowire.AppendTag(b, fieldVecX, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, float32bits(v.X))
	b = protowire.AppendTag(b, fieldVecY, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, float32bits(v.Y))
	b = protowire.AppendTag(b, fieldVecZ, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, float32bits(v.Z))
	return b
}

func decodeVector3(b []byte) (*Vector3, error) {
	v := &Vector3{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldVecX, fieldVecY, fieldVecZ:
			fv, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, fmt.Errorf("bad component: %w", protowire.ParseError(n))
			}
			f := float32frombits(fv)
			switch num {
			case fieldVecX:
				v.X = f
			case fieldVecY:
				v.Y = f
			case fieldVecZ:
				v.Z = f
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("bad unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return v, nil
}

func encodeTracking(t *TrackingMessage) []byte {
	b := make([]byte, 0, 48)
	b = protowire.AppendTag(b, fieldTrackingXrTime, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(t.XrTime))
	pb := encodePose(&t.Pose)
	b = protowire.AppendTag(b, fieldTrackingPose, protowire.BytesType)
	b = protowire.AppendBytes(b, pb)
	return b
}

func decodeTracking(b []byte) (*TrackingMessage, error) {
	t := &TrackingMessage{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldTrackingXrTime:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("bad xr_time: %w", protowire.ParseError(n))
			}
			t.XrTime = protowire.DecodeZigZag(v)
			b = b[n:]
		case fieldTrackingPose:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("bad pose: %w", protowire.ParseError(n))
			}
			p, err := decodePose(v)
			if err != nil {
				return nil, err
			}
			t.Pose = *p
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("bad unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return t, nil
}

func encodeFrame(f *FrameMessage) []byte {
	b := make([]byte, 0, 48)
	b = protowire.AppendTag(b, fieldFrameSequenceID, protowire.VarintType)
	b = protowire.AppendVarint(b, f.FrameSequenceID)
	b = protowire.AppendTag(b, fieldFrameDecodeTime, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(f.DecodeCompleteTime))
	b = protowire.AppendTag(b, fieldFrameBeginTime, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(f.BeginFrameTime))
	b = protowire.AppendTag(b, fieldFrameDisplayTime, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(f.DisplayTime))
	return b
}

func decodeFrame(b []byte) (*FrameMessage, error) {
	f := &FrameMessage{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldFrameSequenceID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("bad frame_sequence_id: %w", protowire.ParseError(n))
			}
			f.FrameSequenceID = v
			b = b[n:]
		case fieldFrameDecodeTime:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("bad decode_complete_time: %w", protowire.ParseError(n))
			}
			f.DecodeCompleteTime = protowire.DecodeZigZag(v)
			b = b[n:]
		case fieldFrameBeginTime:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("bad begin_frame_time: %w", protowire.ParseError(n))
			}
			f.BeginFrameTime = protowire.DecodeZigZag(v)
			b = b[n:]
		case fieldFrameDisplayTime:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("bad display_time: %w", protowire.ParseError(n))
			}
			f.DisplayTime = protowire.DecodeZigZag(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("bad unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return f, nil
}
