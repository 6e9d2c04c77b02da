package wire

import "fmt"

// Vector3 is three little-endian IEEE-754 f32s. No validation beyond decode.
type Vector3 struct {
	X, Y, Z float32
}

func readVector3(r *Reader) (Vector3, error) {
	var v Vector3
	var err error
	if v.X, err = r.ReadF32LE(); err != nil {
		return v, err
	}
	if v.Y, err = r.ReadF32LE(); err != nil {
		return v, err
	}
	if v.Z, err = r.ReadF32LE(); err != nil {
		return v, err
	}
	return v, nil
}

func writeVector3(w *Writer, v Vector3) {
	w.WriteF32LE(v.X)
	w.WriteF32LE(v.Y)
	w.WriteF32LE(v.Z)
}

// Quaternion is four little-endian IEEE-754 f32s (x, y, z, w order).
type Quaternion struct {
	X, Y, Z, W float32
}

// IdentityQuaternion is the no-rotation quaternion.
var IdentityQuaternion = Quaternion{X: 0, Y: 0, Z: 0, W: 1}

// RotateZPi returns q composed with a pi rotation about Z, applied on
// the right, per spec.md's axis-flip note: a pi rotation about Z is
// (x,y,z,w)=(0,0,1,0); quaternion multiplication q*r.
func (q Quaternion) RotateZPi() Quaternion {
	r := Quaternion{X: 0, Y: 0, Z: 1, W: 0}
	return Quaternion{
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

func readQuaternion(r *Reader) (Quaternion, error) {
	var q Quaternion
	var err error
	if q.X, err = r.ReadF32LE(); err != nil {
		return q, err
	}
	if q.Y, err = r.ReadF32LE(); err != nil {
		return q, err
	}
	if q.Z, err = r.ReadF32LE(); err != nil {
		return q, err
	}
	if q.W, err = r.ReadF32LE(); err != nil {
		return q, err
	}
	return q, nil
}

func writeQuaternion(w *Writer, q Quaternion) {
	w.WriteF32LE(q.X)
	w.WriteF32LE(q.Y)
	w.WriteF32LE(q.Z)
	w.WriteF32LE(q.W)
}

// GameMode is the packed high-nibble discriminator for kind-5 frames.
// 15 encodes "none (-1)"; 14 is reserved.
type GameMode uint8

const (
	GameModeLegacy GameMode = iota
	GameModeHideAndSeek
	GameModeSardines
	GameModeFreezeTag
	GameModeUnknown04
	GameModeUnknown05
	GameModeUnknown06
	GameModeUnknown07
	GameModeUnknown08
	GameModeUnknown09
	GameModeUnknown10
	GameModeUnknown11
	GameModeUnknown12
	GameModeUnknown13
	GameModeReserved
	GameModeNone
)

func (m GameMode) String() string {
	switch m {
	case GameModeLegacy:
		return "legacy"
	case GameModeHideAndSeek:
		return "hide_and_seek"
	case GameModeSardines:
		return "sardines"
	case GameModeFreezeTag:
		return "freeze_tag"
	case GameModeReserved:
		return "reserved"
	case GameModeNone:
		return "none"
	default:
		return fmt.Sprintf("unknown%02d", uint8(m))
	}
}

// TagUpdate selects which fields a kind-5 Tag frame carries.
type TagUpdate uint8

const (
	TagUpdateUnknown TagUpdate = iota
	TagUpdateTime
	TagUpdateState
	TagUpdateBoth
)

func (u TagUpdate) String() string {
	switch u {
	case TagUpdateUnknown:
		return "unknown"
	case TagUpdateTime:
		return "time"
	case TagUpdateState:
		return "state"
	case TagUpdateBoth:
		return "both"
	default:
		return "invalid"
	}
}

// ConnectionType distinguishes a Connect packet's first-time handshake
// from a reconnect, encoded on the wire as a little-endian u32 (0 means
// FirstConnection, any other value means Reconnecting).
type ConnectionType uint32

const (
	FirstConnection ConnectionType = 0
	Reconnecting    ConnectionType = 1
)

func (c ConnectionType) String() string {
	if c == FirstConnection {
		return "first_connection"
	}
	return "reconnecting"
}

func connectionTypeFromWire(v uint32) ConnectionType {
	if v == 0 {
		return FirstConnection
	}
	return Reconnecting
}

// MarioSize returns the position offset magnitude used by the flip
// transform: 180 for 2D stages, 160 otherwise.
func MarioSize(is2D bool) float32 {
	if is2D {
		return 180
	}
	return 160
}
