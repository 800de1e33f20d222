// Package halpb carries the RemoteComponent bind/sync/set wire types: pin
// kinds, directions, typed values, and the component descriptor exchanged
// during bind (spec §4.7, §6).
package halpb

import "machinetalk/internal/wire"

// PinKind is one of the four HAL pin value types (spec §6).
type PinKind int32

const (
	PinBit PinKind = iota + 1
	PinFloat
	PinS32
	PinU32
)

// PinDirection is a pin's data-flow direction relative to the server.
type PinDirection int32

const (
	PinIn PinDirection = iota + 1
	PinOut
	PinIo
)

// Value is a oneof-shaped typed pin value: exactly one field is meaningful,
// selected by Kind.
type Value struct {
	Kind  PinKind
	Bit   bool
	S32   int32
	U32   uint32
	Float float64
}

const (
	valueFieldBit = iota + 1
	valueFieldS32
	valueFieldU32
	valueFieldFloat
)

func (v Value) marshal() []byte {
	var b []byte
	switch v.Kind {
	case PinBit:
		b = wire.AppendVarint(b, valueFieldBit, boolToUint(v.Bit))
	case PinS32:
		b = wire.AppendInt32(b, valueFieldS32, v.S32)
	case PinU32:
		b = wire.AppendUint32(b, valueFieldU32, v.U32)
	case PinFloat:
		b = wire.AppendDouble(b, valueFieldFloat, v.Float)
	}
	return b
}

func boolToUint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func parseValue(fields []wire.Field) Value {
	var v Value
	for _, f := range fields {
		switch f.Num {
		case valueFieldBit:
			v.Kind, v.Bit = PinBit, wire.Bool(f.Raw)
		case valueFieldS32:
			v.Kind, v.S32 = PinS32, wire.Int32(f.Raw)
		case valueFieldU32:
			v.Kind, v.U32 = PinU32, wire.Uint32(f.Raw)
		case valueFieldFloat:
			v.Kind, v.Float = PinFloat, wire.Double(f.Raw)
		}
	}
	return v
}

// PinDescriptor is one entry of a bind request's pin list: a locally
// declared pin's fully-qualified name, kind, direction and initial value.
type PinDescriptor struct {
	Name      string
	Kind      PinKind
	Direction PinDirection
	Value     Value
}

const (
	pinDescFieldName = iota + 1
	pinDescFieldKind
	pinDescFieldDirection
	pinDescFieldValue
)

func (p PinDescriptor) Marshal() []byte {
	var b []byte
	b = wire.AppendStr(b, pinDescFieldName, p.Name)
	b = wire.AppendInt32(b, pinDescFieldKind, int32(p.Kind))
	b = wire.AppendInt32(b, pinDescFieldDirection, int32(p.Direction))
	b = wire.AppendMessage(b, pinDescFieldValue, p.Value.marshal())
	return b
}

func ParsePinDescriptor(raw []byte) (PinDescriptor, error) {
	var p PinDescriptor
	fields, err := wire.ParseFields(raw)
	if err != nil {
		return p, err
	}
	for _, f := range fields {
		switch f.Num {
		case pinDescFieldName:
			p.Name = wire.Str(f.Raw)
		case pinDescFieldKind:
			p.Kind = PinKind(wire.Int32(f.Raw))
		case pinDescFieldDirection:
			p.Direction = PinDirection(wire.Int32(f.Raw))
		case pinDescFieldValue:
			sub, err := wire.ParseFields(f.Raw)
			if err == nil {
				p.Value = parseValue(sub)
			}
		}
	}
	return p, nil
}

// ComponentDescriptor is the bind request payload (spec §4.7): component
// name, the no_create policy flag, and every locally declared pin.
type ComponentDescriptor struct {
	Name     string
	NoCreate bool
	Pins     []PinDescriptor
}

const (
	compFieldName = iota + 1
	compFieldNoCreate
	compFieldPins
)

func (c ComponentDescriptor) Marshal() []byte {
	var b []byte
	b = wire.AppendStr(b, compFieldName, c.Name)
	b = wire.AppendBool(b, compFieldNoCreate, c.NoCreate)
	for _, p := range c.Pins {
		b = wire.AppendMessage(b, compFieldPins, p.Marshal())
	}
	return b
}

func ParseComponentDescriptor(raw []byte) (ComponentDescriptor, error) {
	var c ComponentDescriptor
	fields, err := wire.ParseFields(raw)
	if err != nil {
		return c, err
	}
	for _, f := range fields {
		switch f.Num {
		case compFieldName:
			c.Name = wire.Str(f.Raw)
		case compFieldNoCreate:
			c.NoCreate = wire.Bool(f.Raw)
		case compFieldPins:
			p, err := ParsePinDescriptor(f.Raw)
			if err == nil {
				c.Pins = append(c.Pins, p)
			}
		}
	}
	return c, nil
}

// PinUpdate is one entry of a halrcomp full or incremental update: a
// server-assigned handle plus its current value. Name is only populated on
// full updates (spec §4.7); incremental updates address pins by handle
// alone.
type PinUpdate struct {
	Handle uint32
	Name   string
	Value  Value
}

const (
	pinUpdFieldHandle = iota + 1
	pinUpdFieldName
	pinUpdFieldValue
)

func (p PinUpdate) Marshal() []byte {
	var b []byte
	b = wire.AppendUint32(b, pinUpdFieldHandle, p.Handle)
	b = wire.AppendStr(b, pinUpdFieldName, p.Name)
	b = wire.AppendMessage(b, pinUpdFieldValue, p.Value.marshal())
	return b
}

func ParsePinUpdate(raw []byte) (PinUpdate, error) {
	var p PinUpdate
	fields, err := wire.ParseFields(raw)
	if err != nil {
		return p, err
	}
	for _, f := range fields {
		switch f.Num {
		case pinUpdFieldHandle:
			p.Handle = wire.Uint32(f.Raw)
		case pinUpdFieldName:
			p.Name = wire.Str(f.Raw)
		case pinUpdFieldValue:
			sub, err := wire.ParseFields(f.Raw)
			if err == nil {
				p.Value = parseValue(sub)
			}
		}
	}
	return p, nil
}
