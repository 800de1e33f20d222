package statuspb

import "machinetalk/internal/wire"

// Position is a descriptor-marked "Position" message (spec §3): the nine
// scalar axis letters x y z a b c u v w, aliased to indices 0..8 so callers
// can address an axis by number instead of by name.
type Position struct {
	X, Y, Z, A, B, C, U, V, W float64
}

// axisNames is the canonical index-to-letter mapping.
var axisNames = [9]string{"x", "y", "z", "a", "b", "c", "u", "v", "w"}

// Get returns the axis value at index i (0..8), panicking on an
// out-of-range index the way a fixed-size array access would.
func (p *Position) Get(i int) float64 {
	switch i {
	case 0:
		return p.X
	case 1:
		return p.Y
	case 2:
		return p.Z
	case 3:
		return p.A
	case 4:
		return p.B
	case 5:
		return p.C
	case 6:
		return p.U
	case 7:
		return p.V
	case 8:
		return p.W
	default:
		panic("statuspb: position index out of range")
	}
}

// Set stores v at axis index i (0..8).
func (p *Position) Set(i int, v float64) {
	switch i {
	case 0:
		p.X = v
	case 1:
		p.Y = v
	case 2:
		p.Z = v
	case 3:
		p.A = v
	case 4:
		p.B = v
	case 5:
		p.C = v
	case 6:
		p.U = v
	case 7:
		p.V = v
	case 8:
		p.W = v
	default:
		panic("statuspb: position index out of range")
	}
}

// AxisName returns the letter for index i (0..8).
func AxisName(i int) string { return axisNames[i] }

const (
	posFieldX = iota + 1
	posFieldY
	posFieldZ
	posFieldA
	posFieldB
	posFieldC
	posFieldU
	posFieldV
	posFieldW
)

// applyFields merges every recognised field; unknown numbers are dropped.
func (p *Position) applyFields(fields []wire.Field) {
	for _, f := range fields {
		switch f.Num {
		case posFieldX:
			p.X = wire.Double(f.Raw)
		case posFieldY:
			p.Y = wire.Double(f.Raw)
		case posFieldZ:
			p.Z = wire.Double(f.Raw)
		case posFieldA:
			p.A = wire.Double(f.Raw)
		case posFieldB:
			p.B = wire.Double(f.Raw)
		case posFieldC:
			p.C = wire.Double(f.Raw)
		case posFieldU:
			p.U = wire.Double(f.Raw)
		case posFieldV:
			p.V = wire.Double(f.Raw)
		case posFieldW:
			p.W = wire.Double(f.Raw)
		}
	}
}

func (p *Position) marshal() []byte {
	var b []byte
	b = wire.AppendDouble(b, posFieldX, p.X)
	b = wire.AppendDouble(b, posFieldY, p.Y)
	b = wire.AppendDouble(b, posFieldZ, p.Z)
	b = wire.AppendDouble(b, posFieldA, p.A)
	b = wire.AppendDouble(b, posFieldB, p.B)
	b = wire.AppendDouble(b, posFieldC, p.C)
	b = wire.AppendDouble(b, posFieldU, p.U)
	b = wire.AppendDouble(b, posFieldV, p.V)
	b = wire.AppendDouble(b, posFieldW, p.W)
	return b
}
