package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/marza-dev/odyssey-relay/internal/guid"
)

// Decode attempts to frame and decode exactly one Packet from the front
// of buf. It returns (packet, bytesConsumed, nil) on success, or
// (zero, 0, ErrNotEnoughData) when buf holds a strict prefix of a
// frame — callers should read more bytes and retry rather than treat
// that as fatal (spec.md §4.1/§4.2).
func Decode(buf []byte) (Packet, int, error) {
	if len(buf) < HeaderSize {
		return Packet{}, 0, fmt.Errorf("wire: header needs %d bytes, have %d: %w", HeaderSize, len(buf), ErrNotEnoughData)
	}

	var id guid.Guid
	copy(id[:], buf[:guid.Size])
	ptype := binary.LittleEndian.Uint16(buf[guid.Size : guid.Size+2])

	// The JsonAPI tunnel is not really framed: tag 0x5453 means the
	// bytes the "id"/"type"/"size" fields were just read from are
	// themselves the start of an ASCII JSON request. The whole buffer
	// is surrendered as text and there is no further framing to find
	// (spec.md §9 "historical wart").
	if ptype == jsonAPIType {
		json := string(buf)
		return Packet{ID: id, DataSize: uint16(len(json)), Data: JsonAPI{JSON: json}}, len(buf), nil
	}

	psize := binary.LittleEndian.Uint16(buf[guid.Size+2 : HeaderSize])
	if psize > MaxPacketDataSize {
		return Packet{}, 0, fmt.Errorf("wire: declared data_size %d exceeds max %d: %w", psize, MaxPacketDataSize, ErrPacketTooLarge)
	}

	total := HeaderSize + int(psize)
	if len(buf) < total {
		return Packet{}, 0, fmt.Errorf("wire: frame needs %d bytes, have %d: %w", total, len(buf), ErrNotEnoughData)
	}

	payload := buf[HeaderSize:total]
	data, err := decodePayload(ptype, payload)
	if err != nil {
		return Packet{}, 0, err
	}
	return Packet{ID: id, DataSize: psize, Data: data}, total, nil
}

func decodePayload(ptype uint16, payload []byte) (PacketData, error) {
	r := NewReader(payload)
	switch ptype {
	case TypeInit:
		v, err := r.ReadU16LE()
		if err != nil {
			return nil, badData(ptype, err)
		}
		return Init{MaxPlayers: v}, nil

	case TypePlayer:
		pos, err := readVector3(r)
		if err != nil {
			return nil, badData(ptype, err)
		}
		rot, err := readQuaternion(r)
		if err != nil {
			return nil, badData(ptype, err)
		}
		var weights [6]float32
		for i := range weights {
			weights[i], err = r.ReadF32LE()
			if err != nil {
				return nil, badData(ptype, err)
			}
		}
		act, err := r.ReadU16LE()
		if err != nil {
			return nil, badData(ptype, err)
		}
		subAct, err := r.ReadU16LE()
		if err != nil {
			return nil, badData(ptype, err)
		}
		return Player{Pos: pos, Rot: rot, BlendWeights: weights, Act: act, SubAct: subAct}, nil

	case TypeCap:
		pos, err := readVector3(r)
		if err != nil {
			return nil, badData(ptype, err)
		}
		rot, err := readQuaternion(r)
		if err != nil {
			return nil, badData(ptype, err)
		}
		capOut, err := r.ReadBool()
		if err != nil {
			return nil, badData(ptype, err)
		}
		anim, err := r.ReadFixedString(CapAnimSize)
		if err != nil {
			return nil, badData(ptype, err)
		}
		return Cap{Pos: pos, Rot: rot, CapOut: capOut, CapAnim: anim}, nil

	case TypeGame:
		is2D, err := r.ReadBool()
		if err != nil {
			return nil, badData(ptype, err)
		}
		scenario, err := r.ReadI8()
		if err != nil {
			return nil, badData(ptype, err)
		}
		stage, err := r.ReadFixedString(StageGameNameSize)
		if err != nil {
			return nil, badData(ptype, err)
		}
		return Game{Is2D: is2D, ScenarioNum: scenario, Stage: stage}, nil

	case TypeTagOrMode:
		return decodeTagOrMode(r)

	case TypeConnect:
		raw, err := r.ReadU32LE()
		if err != nil {
			return nil, badData(ptype, err)
		}
		maxPlayer, err := r.ReadU16LE()
		if err != nil {
			return nil, badData(ptype, err)
		}
		name, err := r.ReadFixedString(ClientNameSize)
		if err != nil {
			return nil, badData(ptype, err)
		}
		return Connect{ConnType: connectionTypeFromWire(raw), MaxPlayer: maxPlayer, ClientName: name}, nil

	case TypeDisconnect:
		return Disconnect{}, nil

	case TypeCostume:
		body, err := r.ReadFixedString(CostumeNameSize)
		if err != nil {
			return nil, badData(ptype, err)
		}
		cap, err := r.ReadFixedString(CostumeNameSize)
		if err != nil {
			return nil, badData(ptype, err)
		}
		return Costume{Body: body, Cap: cap}, nil

	case TypeShine:
		id, err := r.ReadU32LE()
		if err != nil {
			return nil, badData(ptype, err)
		}
		isGrand, err := r.ReadBool()
		if err != nil {
			return nil, badData(ptype, err)
		}
		return Shine{ShineID: int32(id), IsGrand: isGrand}, nil

	case TypeCapture:
		model, err := r.ReadFixedString(CostumeNameSize)
		if err != nil {
			return nil, badData(ptype, err)
		}
		return Capture{Model: model}, nil

	case TypeChangeStage:
		stage, err := r.ReadFixedString(StageChangeSize)
		if err != nil {
			return nil, badData(ptype, err)
		}
		id, err := r.ReadFixedString(StageIDSize)
		if err != nil {
			return nil, badData(ptype, err)
		}
		scenario, err := r.ReadI8()
		if err != nil {
			return nil, badData(ptype, err)
		}
		subScenario, err := r.ReadU8()
		if err != nil {
			return nil, badData(ptype, err)
		}
		return ChangeStage{Stage: stage, ID: id, Scenario: scenario, SubScenario: subScenario}, nil

	case TypeCommand:
		return Command{}, nil

	case TypeUdpInit:
		port, err := r.ReadU16LE()
		if err != nil {
			return nil, badData(ptype, err)
		}
		return UdpInit{Port: port}, nil

	case TypeHolePunch:
		return HolePunch{}, nil

	default:
		rest, err := r.ReadBytes(r.Remaining())
		if err != nil {
			return nil, badData(ptype, err)
		}
		return Unhandled{Tag: ptype, Data: rest}, nil
	}
}

// decodeTagOrMode implements the kind-5 discrimination of spec.md §4.1:
// the payload's first byte packs GameMode in the high nibble and
// TagUpdate in the low nibble. HideAndSeek/Sardines always carry a Tag;
// Legacy only carries a Tag when update_type==Both. Everything else is
// an opaque GameMode-change payload.
func decodeTagOrMode(r *Reader) (PacketData, error) {
	b, err := r.ReadU8()
	if err != nil {
		return nil, badData(TypeTagOrMode, err)
	}
	gm := GameMode(b >> 4)
	ut := TagUpdate(b & 0x0F)

	if gm == GameModeHideAndSeek || gm == GameModeSardines || (gm == GameModeLegacy && ut == TagUpdateBoth) {
		isIt, err := r.ReadBool()
		if err != nil {
			return nil, badData(TypeTagOrMode, err)
		}
		seconds, err := r.ReadU8()
		if err != nil {
			return nil, badData(TypeTagOrMode, err)
		}
		minutes, err := r.ReadU16LE()
		if err != nil {
			return nil, badData(TypeTagOrMode, err)
		}
		return Tag{GameMode: gm, UpdateType: ut, IsIt: isIt, Seconds: seconds, Minutes: minutes}, nil
	}

	rest, err := r.ReadBytes(r.Remaining())
	if err != nil {
		return nil, badData(TypeTagOrMode, err)
	}
	return GameModeData{Mode: gm, UpdateType: ut, Data: rest}, nil
}

func badData(ptype uint16, err error) error {
	return fmt.Errorf("wire: decoding type %d: %w: %v", ptype, ErrBadData, err)
}

// Encode serializes p into a fresh byte slice, the exact inverse of
// Decode. The data_size field is written from Data's current encoded
// length; p.DataSize is not consulted.
func Encode(p Packet) []byte {
	if jsonAPI, ok := p.Data.(JsonAPI); ok {
		return []byte(jsonAPI.JSON)
	}

	w := NewWriter(HeaderSize + p.Data.EncodedSize())
	w.WriteBytes(p.ID[:])
	w.WriteU16LE(p.Data.TypeID())
	w.WriteU16LE(uint16(p.Data.EncodedSize()))
	encodePayload(w, p.Data)
	return w.Bytes()
}

func encodePayload(w *Writer, data PacketData) {
	switch v := data.(type) {
	case Init:
		w.WriteU16LE(v.MaxPlayers)

	case Player:
		writeVector3(w, v.Pos)
		writeQuaternion(w, v.Rot)
		for _, weight := range v.BlendWeights {
			w.WriteF32LE(weight)
		}
		w.WriteU16LE(v.Act)
		w.WriteU16LE(v.SubAct)

	case Cap:
		writeVector3(w, v.Pos)
		writeQuaternion(w, v.Rot)
		w.WriteBool(v.CapOut)
		w.WriteFixedString(v.CapAnim, CapAnimSize)

	case Game:
		w.WriteBool(v.Is2D)
		w.WriteI8(v.ScenarioNum)
		w.WriteFixedString(v.Stage, StageGameNameSize)

	case Tag:
		w.WriteU8((uint8(v.GameMode) << 4) | (uint8(v.UpdateType) & 0x0F))
		w.WriteBool(v.IsIt)
		w.WriteU8(v.Seconds)
		w.WriteU16LE(v.Minutes)

	case GameModeData:
		w.WriteU8((uint8(v.Mode) << 4) | (uint8(v.UpdateType) & 0x0F))
		w.WriteBytes(v.Data)

	case Connect:
		w.WriteU32LE(uint32(v.ConnType))
		w.WriteU16LE(v.MaxPlayer)
		w.WriteFixedString(v.ClientName, ClientNameSize)

	case Disconnect:
		// no payload

	case Costume:
		w.WriteFixedString(v.Body, CostumeNameSize)
		w.WriteFixedString(v.Cap, CostumeNameSize)

	case Shine:
		w.WriteU32LE(uint32(v.ShineID))
		w.WriteBool(v.IsGrand)

	case Capture:
		w.WriteFixedString(v.Model, CostumeNameSize)

	case ChangeStage:
		w.WriteFixedString(v.Stage, StageChangeSize)
		w.WriteFixedString(v.ID, StageIDSize)
		w.WriteI8(v.Scenario)
		w.WriteU8(v.SubScenario)

	case Command:
		// no payload

	case UdpInit:
		w.WriteU16LE(v.Port)

	case HolePunch:
		// no payload

	case Unhandled:
		w.WriteBytes(v.Data)
	}
}
