package lobby

import (
	"context"

	"github.com/marza-dev/odyssey-relay/internal/guid"
	"github.com/marza-dev/odyssey-relay/internal/wire"
)

// ClientCommand is a message delivered to one client task's own
// outbound channel (spec.md §4.4.2).
type ClientCommand interface{ isClientCommand() }

// OutboundPacket is an already-addressed packet to forward as-is. If
// Packet.ID equals the receiving task's own guid it is dropped unless
// the payload is Disconnect (spec.md §4.4.2).
type OutboundPacket struct{ Packet wire.Packet }

// OutboundSelfAddressed has its Packet.ID rewritten to the receiving
// task's own guid before sending (spec.md §4.4.2, §9 "SelfAddressed").
type OutboundSelfAddressed struct{ Packet wire.Packet }

func (OutboundPacket) isClientCommand()        {}
func (OutboundSelfAddressed) isClientCommand() {}

// ClientTask is the minimal surface the coordinator needs to start a
// newly accepted client's event loop, satisfied by *relayclient.Client
// without lobby importing that package (spec.md §4.5 "spawn the client
// task").
type ClientTask interface {
	Run(ctx context.Context)
}

// Command is a message delivered to the coordinator's single inbound
// queue (spec.md §4.5).
type Command interface{ isCommand() }

// NewPlayerCommand reports a client that has completed its handshake
// and is ready to join the lobby (spec.md §4.5 "Server::NewPlayer").
type NewPlayerCommand struct {
	Guid    guid.Guid
	Data    *PlayerData
	Connect wire.Packet
	Task    ClientTask
}

// DisconnectPlayerCommand asks the coordinator to remove a player
// (spec.md §4.5 "Server::DisconnectPlayer").
type DisconnectPlayerCommand struct{ Guid guid.Guid }

// InboundPacket is a packet a client task routed to the coordinator
// (spec.md §4.4.1, §4.5 "Packet(p)").
type InboundPacket struct{ Packet wire.Packet }

// ExternalCommand is a request from the administrative command surface
// (spec.md §6). Reply receives a human-readable result or error.
type ExternalCommand struct {
	Cmd   ExternalOp
	Reply chan<- ExternalResult
}

// ExternalResult is what the administrative surface gets back.
type ExternalResult struct {
	Message string
	Err     error
}

func (NewPlayerCommand) isCommand()        {}
func (DisconnectPlayerCommand) isCommand() {}
func (InboundPacket) isCommand()           {}
func (ExternalCommand) isCommand()         {}

// ExternalOp is the tagged union of administrative operations
// (spec.md §6): Player{...} or Shine{...}.
type ExternalOp interface{ isExternalOp() }

// PlayerTargets selects which connected players an operation applies to.
type PlayerTargets struct {
	All        bool
	Individual []guid.Guid
}

// PlayerOp is the per-player administrative sub-command.
type PlayerOp interface{ isPlayerOp() }

type PlayerOpSend struct {
	Stage    string
	ID       string
	Scenario int8
}
type PlayerOpDisconnect struct{}
type PlayerOpCrash struct{}
type PlayerOpTag struct {
	Time      *int64 // seconds, nil if unset
	IsSeeking *bool
}
type PlayerOpSendShine struct{ ShineID int32 }

func (PlayerOpSend) isPlayerOp()       {}
func (PlayerOpDisconnect) isPlayerOp() {}
func (PlayerOpCrash) isPlayerOp()      {}
func (PlayerOpTag) isPlayerOp()        {}
func (PlayerOpSendShine) isPlayerOp()  {}

// PlayerCommand is `Player{players, command}` (spec.md §6).
type PlayerCommand struct {
	Targets PlayerTargets
	Op      PlayerOp
}

func (PlayerCommand) isExternalOp() {}

// ShineOp is Sync|Clear (spec.md §6 "Shine{Sync|Clear}").
type ShineOp int

const (
	ShineOpSync ShineOp = iota
	ShineOpClear
)

// ShineCommand is `Shine{Sync|Clear}` (spec.md §6).
type ShineCommand struct{ Op ShineOp }

func (ShineCommand) isExternalOp() {}
