// Package container implements the envelope codec (spec §4.1): the single
// protobuf message exchanged on every socket. No other package in this
// module touches raw bytes — everything above this layer works with a
// decoded Container.
package container

import (
	"fmt"

	"machinetalk/cmdpb"
	"machinetalk/halpb"
	"machinetalk/internal/wire"
)

// Pparams carries the server-advertised keep-alive interval and the two
// advisory queue-depth hints the original schema also defines (spec
// SPEC_FULL §5: decoded/encoded but never acted on beyond KeepaliveTimer).
type Pparams struct {
	KeepaliveTimer uint32 // milliseconds
	RxQueue        uint32
	TxQueue        uint32
}

const (
	pparamsFieldKeepalive = iota + 1
	pparamsFieldRxQueue
	pparamsFieldTxQueue
)

func (p *Pparams) marshal() []byte {
	if p == nil {
		return nil
	}
	var b []byte
	b = wire.AppendUint32(b, pparamsFieldKeepalive, p.KeepaliveTimer)
	b = wire.AppendUint32(b, pparamsFieldRxQueue, p.RxQueue)
	b = wire.AppendUint32(b, pparamsFieldTxQueue, p.TxQueue)
	return b
}

func parsePparams(raw []byte) (*Pparams, error) {
	fields, err := wire.ParseFields(raw)
	if err != nil {
		return nil, err
	}
	p := &Pparams{}
	for _, f := range fields {
		switch f.Num {
		case pparamsFieldKeepalive:
			p.KeepaliveTimer = wire.Uint32(f.Raw)
		case pparamsFieldRxQueue:
			p.RxQueue = wire.Uint32(f.Raw)
		case pparamsFieldTxQueue:
			p.TxQueue = wire.Uint32(f.Raw)
		}
	}
	return p, nil
}

// Container is the single envelope exchanged on every socket (spec §3).
type Container struct {
	Type        MsgType
	Ticket      uint32
	ReplyTicket uint32
	Note        []string
	Pparams     *Pparams

	// StatusPayload is the marshalled bytes of one statuspb sub-tree
	// (io/config/motion/task/interp); which one is implied by the SUB
	// topic frame the channel received alongside this container, not by
	// anything inside the container itself.
	StatusPayload []byte

	CommandParams *cmdpb.Params

	HalComponent *halpb.ComponentDescriptor
	HalPins      []halpb.PinUpdate

	Log *LogRecord
}

const (
	fieldType = iota + 1
	fieldTicket
	fieldReplyTicket
	fieldNote
	fieldPparams
	fieldStatusPayload
	fieldCommandParams
	fieldHalComponent
	fieldHalPins
	fieldLog
)

// Encode produces the protobuf serialisation of c. No framing is added —
// the transport layer is responsible for length-delimiting or wrapping it
// in a multipart ZeroMQ message.
func Encode(c *Container) ([]byte, error) {
	var b []byte
	b = wire.AppendInt32(b, fieldType, int32(c.Type))
	b = wire.AppendUint32(b, fieldTicket, c.Ticket)
	b = wire.AppendUint32(b, fieldReplyTicket, c.ReplyTicket)
	for _, n := range c.Note {
		b = wire.AppendStr(b, fieldNote, n)
	}
	if c.Pparams != nil {
		b = wire.AppendMessage(b, fieldPparams, c.Pparams.marshal())
	}
	b = wire.AppendBytes(b, fieldStatusPayload, c.StatusPayload)
	if c.CommandParams != nil {
		b = wire.AppendMessage(b, fieldCommandParams, c.CommandParams.Marshal())
	}
	if c.HalComponent != nil {
		b = wire.AppendMessage(b, fieldHalComponent, c.HalComponent.Marshal())
	}
	for _, pu := range c.HalPins {
		b = wire.AppendMessage(b, fieldHalPins, pu.Marshal())
	}
	if c.Log != nil {
		b = wire.AppendMessage(b, fieldLog, c.Log.marshal())
	}
	return b, nil
}

// Decode parses bytes into a Container, returning errs.ErrDecode wrapped
// with context on any malformed input. Per spec §4.1 the caller (the owning
// channel) reports this as a note and drops the message; it never
// transitions the channel's state machine.
func Decode(b []byte) (*Container, error) {
	fields, err := wire.ParseFields(b)
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}

	c := &Container{}
	for _, f := range fields {
		switch f.Num {
		case fieldType:
			c.Type = MsgType(wire.Int32(f.Raw))
		case fieldTicket:
			c.Ticket = wire.Uint32(f.Raw)
		case fieldReplyTicket:
			c.ReplyTicket = wire.Uint32(f.Raw)
		case fieldNote:
			c.Note = append(c.Note, wire.Str(f.Raw))
		case fieldPparams:
			pp, err := parsePparams(f.Raw)
			if err != nil {
				return nil, fmt.Errorf("container: pparams: %w", err)
			}
			c.Pparams = pp
		case fieldStatusPayload:
			c.StatusPayload = append([]byte(nil), f.Raw...)
		case fieldCommandParams:
			params, err := cmdpb.ParseParams(f.Raw)
			if err != nil {
				return nil, fmt.Errorf("container: command params: %w", err)
			}
			c.CommandParams = &params
		case fieldHalComponent:
			comp, err := halpb.ParseComponentDescriptor(f.Raw)
			if err != nil {
				return nil, fmt.Errorf("container: hal component: %w", err)
			}
			c.HalComponent = &comp
		case fieldHalPins:
			pu, err := halpb.ParsePinUpdate(f.Raw)
			if err != nil {
				return nil, fmt.Errorf("container: hal pin: %w", err)
			}
			c.HalPins = append(c.HalPins, pu)
		case fieldLog:
			rec, err := parseLogRecord(f.Raw)
			if err != nil {
				return nil, fmt.Errorf("container: log: %w", err)
			}
			c.Log = &rec
		}
	}
	return c, nil
}
