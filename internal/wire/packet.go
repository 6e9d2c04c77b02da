package wire

import "github.com/marza-dev/odyssey-relay/internal/guid"

// Fixed field widths from spec.md §3/§4.1, named after the data they hold.
const (
	CapAnimSize        = 0x30 // Cap.cap_anim
	StageGameNameSize  = 0x40 // Game.stage
	CostumeNameSize    = 0x20 // Costume.body, Costume.cap, Capture.model
	ClientNameSize     = 0x20 // Connect.client_name
	StageIDSize        = 0x10 // ChangeStage.id
	StageChangeSize    = 0x30 // ChangeStage.stage
	HeaderSize         = guid.Size + 2 + 2 // id + type + data_size
	MaxPacketDataSize  = 0x100
	jsonAPIType uint16 = 0x5453
)

// Type ids, spec.md §3.
const (
	TypeInit        uint16 = 1
	TypePlayer      uint16 = 2
	TypeCap         uint16 = 3
	TypeGame        uint16 = 4
	TypeTagOrMode   uint16 = 5
	TypeConnect     uint16 = 6
	TypeDisconnect  uint16 = 7
	TypeCostume     uint16 = 8
	TypeShine       uint16 = 9
	TypeCapture     uint16 = 10
	TypeChangeStage uint16 = 11
	TypeCommand     uint16 = 12
	TypeUdpInit     uint16 = 13
	TypeHolePunch   uint16 = 14
	TypeJsonAPI     uint16 = jsonAPIType
)

// PacketData is the tagged-union payload carried by a Packet. Every
// concrete kind below implements it.
type PacketData interface {
	TypeID() uint16
	EncodedSize() int
}

// Packet is the full frame: a sender identity, the encoded length of
// Data, and the payload itself (spec.md §3, invariant P1).
type Packet struct {
	ID       guid.Guid
	DataSize uint16
	Data     PacketData
}

// Resize recomputes DataSize from Data's current encoded length. Must
// be called after any in-place mutation of Data prior to broadcast
// (invariant P1).
func (p *Packet) Resize() {
	p.DataSize = uint16(p.Data.EncodedSize())
}

// NewPacket builds a Packet with DataSize already computed from data.
func NewPacket(id guid.Guid, data PacketData) Packet {
	return Packet{ID: id, DataSize: uint16(data.EncodedSize()), Data: data}
}

// Init{max_players} — type 1.
type Init struct {
	MaxPlayers uint16
}

func (Init) TypeID() uint16     { return TypeInit }
func (Init) EncodedSize() int   { return 2 }

// Player{pos,rot,blend_weights,act,sub_act} — type 2.
type Player struct {
	Pos          Vector3
	Rot          Quaternion
	BlendWeights [6]float32
	Act          uint16
	SubAct       uint16
}

func (Player) TypeID() uint16   { return TypePlayer }
func (Player) EncodedSize() int { return 12 + 16 + 4*6 + 2 + 2 }

// Cap{pos,rot,cap_out,cap_anim} — type 3.
type Cap struct {
	Pos     Vector3
	Rot     Quaternion
	CapOut  bool
	CapAnim string
}

func (Cap) TypeID() uint16   { return TypeCap }
func (Cap) EncodedSize() int { return 12 + 16 + 1 + CapAnimSize }

// Game{is_2d,scenario_num,stage} — type 4.
type Game struct {
	Is2D        bool
	ScenarioNum int8
	Stage       string
}

func (Game) TypeID() uint16   { return TypeGame }
func (Game) EncodedSize() int { return 1 + 1 + StageGameNameSize }

// Tag{game_mode,update_type,is_it,seconds,minutes} — type 5, the Tag
// variant of the kind-5 discrimination (spec.md §4.1).
type Tag struct {
	GameMode   GameMode
	UpdateType TagUpdate
	IsIt       bool
	Seconds    uint8
	Minutes    uint16
}

func (Tag) TypeID() uint16   { return TypeTagOrMode }
func (Tag) EncodedSize() int { return 1 + 1 + 1 + 2 }

// GameMode is the other kind-5 variant: opaque mode-change payload
// (named GameModeData to avoid colliding with the GameMode enum type).
type GameModeData struct {
	Mode       GameMode
	UpdateType TagUpdate
	Data       []byte
}

func (GameModeData) TypeID() uint16      { return TypeTagOrMode }
func (g GameModeData) EncodedSize() int { return 1 + len(g.Data) }

// Connect{c_type,max_player,client_name} — type 6.
type Connect struct {
	ConnType   ConnectionType
	MaxPlayer  uint16
	ClientName string
}

func (Connect) TypeID() uint16   { return TypeConnect }
func (Connect) EncodedSize() int { return 4 + 2 + ClientNameSize }

// Disconnect — type 7, no payload.
type Disconnect struct{}

func (Disconnect) TypeID() uint16   { return TypeDisconnect }
func (Disconnect) EncodedSize() int { return 0 }

// Costume{body,cap} — type 8.
type Costume struct {
	Body string
	Cap  string
}

func (Costume) TypeID() uint16   { return TypeCostume }
func (Costume) EncodedSize() int { return CostumeNameSize * 2 }

// Shine{shine_id,is_grand} — type 9.
type Shine struct {
	ShineID int32
	IsGrand bool
}

func (Shine) TypeID() uint16   { return TypeShine }
func (Shine) EncodedSize() int { return 4 + 1 }

// Capture{model} — type 10.
type Capture struct {
	Model string
}

func (Capture) TypeID() uint16   { return TypeCapture }
func (Capture) EncodedSize() int { return CostumeNameSize }

// ChangeStage{stage,id,scenario,sub_scenario} — type 11.
type ChangeStage struct {
	Stage       string
	ID          string
	Scenario    int8
	SubScenario uint8
}

func (ChangeStage) TypeID() uint16   { return TypeChangeStage }
func (ChangeStage) EncodedSize() int { return StageChangeSize + StageIDSize + 1 + 1 }

// Command — type 12, no payload at this layer (administrative surface
// lives in internal/adminapi; this variant just marks the tag).
type Command struct{}

func (Command) TypeID() uint16   { return TypeCommand }
func (Command) EncodedSize() int { return 0 }

// UdpInit{port} — type 13.
type UdpInit struct {
	Port uint16
}

func (UdpInit) TypeID() uint16   { return TypeUdpInit }
func (UdpInit) EncodedSize() int { return 2 }

// HolePunch — type 14, no payload.
type HolePunch struct{}

func (HolePunch) TypeID() uint16   { return TypeHolePunch }
func (HolePunch) EncodedSize() int { return 0 }

// JsonAPI{json} — the tunneled JSON-API request, type 0x5453. See
// codec.go for the historical framing wart this variant requires.
type JsonAPI struct {
	JSON string
}

func (JsonAPI) TypeID() uint16    { return TypeJsonAPI }
func (j JsonAPI) EncodedSize() int { return len(j.JSON) }

// Unhandled{tag,bytes} — any type id this codec doesn't recognize.
// Preserved verbatim so an unrecognized packet can still be relayed.
type Unhandled struct {
	Tag  uint16
	Data []byte
}

func (u Unhandled) TypeID() uint16    { return u.Tag }
func (u Unhandled) EncodedSize() int { return len(u.Data) }
