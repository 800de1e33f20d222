// Package wire is the envelope codec's shared protobuf plumbing. It is the
// one place in the module that touches google.golang.org/protobuf/encoding/
// protowire directly; every typed message package (container, statuspb,
// halpb, cmdpb) builds its Marshal/Unmarshal on top of it.
//
// Spec §9's Design Notes ask for a "strongly typed mirror per status
// sub-message" with incremental updates "processed generically through a
// visitor over the generated message type" — Field and ParseFields are
// that visitor; each sub-message's own Marshal/ApplyFields is the typed
// layer on top.
package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"machinetalk/internal/errs"
)

// Field is one decoded (number, wire type, raw payload) triple from a
// single message nesting level.
type Field struct {
	Num protowire.Number
	Typ protowire.Type
	Raw []byte
}

// ParseFields walks one message level into its (field, wire type, raw
// bytes) triples without interpreting any of them. Unknown field numbers
// are still returned — callers ignore what they don't recognise, per spec
// §3 ("only fields with descriptor numbers known to the mirror are
// applied").
func ParseFields(b []byte) ([]Field, error) {
	var fields []Field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: bad tag", errs.ErrDecode)
		}
		b = b[n:]

		var raw []byte
		switch typ {
		case protowire.VarintType:
			_, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, fmt.Errorf("%w: bad varint", errs.ErrDecode)
			}
			raw, b = b[:m], b[m:]
		case protowire.Fixed32Type:
			if len(b) < 4 {
				return nil, fmt.Errorf("%w: short fixed32", errs.ErrDecode)
			}
			raw, b = b[:4], b[4:]
		case protowire.Fixed64Type:
			if len(b) < 8 {
				return nil, fmt.Errorf("%w: short fixed64", errs.ErrDecode)
			}
			raw, b = b[:8], b[8:]
		case protowire.BytesType:
			payload, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, fmt.Errorf("%w: bad length-delimited field", errs.ErrDecode)
			}
			raw, b = payload, b[m:]
		default:
			return nil, fmt.Errorf("%w: unsupported wire type %d", errs.ErrDecode, typ)
		}
		fields = append(fields, Field{Num: num, Typ: typ, Raw: raw})
	}
	return fields, nil
}

// --- decode helpers (operate on a Field's Raw payload) ---

func Varint(raw []byte) uint64 {
	v, _ := protowire.ConsumeVarint(raw)
	return v
}

func Bool(raw []byte) bool { return Varint(raw) != 0 }

func Int32(raw []byte) int32 { return int32(int64(Varint(raw))) }

func Uint32(raw []byte) uint32 { return uint32(Varint(raw)) }

func Double(raw []byte) float64 {
	v, _ := protowire.ConsumeFixed64(raw)
	return math.Float64frombits(v)
}

func Str(raw []byte) string { return string(raw) }

// --- encode helpers (append tag + value for field num) ---

func AppendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func AppendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return AppendVarint(b, num, 1)
}

func AppendInt32(b []byte, num protowire.Number, v int32) []byte {
	return AppendVarint(b, num, uint64(int64(v)))
}

func AppendUint32(b []byte, num protowire.Number, v uint32) []byte {
	return AppendVarint(b, num, uint64(v))
}

func AppendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func AppendStr(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, []byte(v))
}

func AppendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// AppendMessage wraps an already-marshalled submessage with its field tag.
func AppendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	if len(msg) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}
