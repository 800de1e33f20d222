// Package cmdpb carries the ~35 command request kinds (spec §4.6) and the
// mechanical parameter bag each one marshals into. Parameter marshalling is
// deliberately uniform: one struct with every possible field, only the
// fields a given Kind actually uses are set.
package cmdpb

import (
	"google.golang.org/protobuf/encoding/protowire"

	"machinetalk/internal/wire"
	"machinetalk/statuspb"
)

// Kind discriminates a command container's sub-kind. It is carried as part
// of the outer container's MsgType (not wire-encoded here) — see
// container.MsgType, whose EMCCMD_* range mirrors this enumeration one to
// one.
type Kind int32

const (
	KindTaskModeSet Kind = iota + 1
	KindTaskStateSet
	KindProgramOpen
	KindProgramRun
	KindProgramPause
	KindProgramStep
	KindProgramResume
	KindProgramReset
	KindMDIExecute
	KindSpindleOn
	KindSpindleOff
	KindSpindleBrake
	KindSpindleConstant
	KindSpindleIncrease
	KindSpindleDecrease
	KindCoolantFlood
	KindCoolantMist
	KindJogStop
	KindJogContinuous
	KindJogIncrement
	KindHome
	KindUnhome
	KindAxisMinLimit
	KindAxisMaxLimit
	KindTrajMode
	KindTrajScale
	KindTrajMaxVelocity
	KindTeleopEnable
	KindTeleopVector
	KindFeedOverrideEnable
	KindFeedHoldEnable
	KindBlockDelete
	KindOptionalStop
	KindAnalogOutput
	KindDigitalOutput
	KindAdaptiveFeed
	KindToolTableLoad
	KindToolOffsetSet
	KindSetDebugLevel
	KindOverrideLimits
	KindShutdown
)

// JogType distinguishes jog's three sub-kinds (spec §4.6).
type JogType int32

const (
	JogTypeStop JogType = iota + 1
	JogTypeContinuous
	JogTypeIncrement
)

// ToolData is the mechanical tool-table record carried by tool-load/offset
// commands.
type ToolData struct {
	ToolNo int32
	Pose   statuspb.Position
	Diameter float64
}

const (
	toolFieldToolNo = iota + 1
	toolFieldPose
	toolFieldDiameter
)

// Params is the mechanical parameter bag behind every command kind: index,
// value, enable, velocity, distance, scale, interpreter name, file path,
// pose and tool-data. A given Kind only ever populates the subset it needs.
type Params struct {
	Index       int32
	Value       float64
	Enable      bool
	Velocity    float64
	Distance    float64
	Scale       float64
	InterpName  string
	File        string
	Pose        statuspb.Position
	Tool        ToolData
	JogType     JogType
	DebugLevel  int32
}

const (
	paramFieldIndex = iota + 1
	paramFieldValue
	paramFieldEnable
	paramFieldVelocity
	paramFieldDistance
	paramFieldScale
	paramFieldInterpName
	paramFieldFile
	paramFieldPose
	paramFieldTool
	paramFieldJogType
	paramFieldDebugLevel
)

func (p Params) Marshal() []byte {
	var b []byte
	b = wire.AppendInt32(b, paramFieldIndex, p.Index)
	b = wire.AppendDouble(b, paramFieldValue, p.Value)
	b = wire.AppendBool(b, paramFieldEnable, p.Enable)
	b = wire.AppendDouble(b, paramFieldVelocity, p.Velocity)
	b = wire.AppendDouble(b, paramFieldDistance, p.Distance)
	b = wire.AppendDouble(b, paramFieldScale, p.Scale)
	b = wire.AppendStr(b, paramFieldInterpName, p.InterpName)
	b = wire.AppendStr(b, paramFieldFile, p.File)
	b = wire.AppendMessage(b, paramFieldPose, posMarshal(p.Pose))
	b = wire.AppendMessage(b, paramFieldTool, toolMarshal(p.Tool))
	b = wire.AppendInt32(b, paramFieldJogType, int32(p.JogType))
	b = wire.AppendInt32(b, paramFieldDebugLevel, p.DebugLevel)
	return b
}

func ParseParams(raw []byte) (Params, error) {
	var p Params
	fields, err := wire.ParseFields(raw)
	if err != nil {
		return p, err
	}
	for _, f := range fields {
		switch f.Num {
		case paramFieldIndex:
			p.Index = wire.Int32(f.Raw)
		case paramFieldValue:
			p.Value = wire.Double(f.Raw)
		case paramFieldEnable:
			p.Enable = wire.Bool(f.Raw)
		case paramFieldVelocity:
			p.Velocity = wire.Double(f.Raw)
		case paramFieldDistance:
			p.Distance = wire.Double(f.Raw)
		case paramFieldScale:
			p.Scale = wire.Double(f.Raw)
		case paramFieldInterpName:
			p.InterpName = wire.Str(f.Raw)
		case paramFieldFile:
			p.File = wire.Str(f.Raw)
		case paramFieldPose:
			sub, err := wire.ParseFields(f.Raw)
			if err == nil {
				p.Pose = posParse(sub)
			}
		case paramFieldTool:
			sub, err := wire.ParseFields(f.Raw)
			if err == nil {
				p.Tool = toolParse(sub)
			}
		case paramFieldJogType:
			p.JogType = JogType(wire.Int32(f.Raw))
		case paramFieldDebugLevel:
			p.DebugLevel = wire.Int32(f.Raw)
		}
	}
	return p, nil
}

// posMarshal/posParse re-use Position's own field numbering (1..9), kept
// local to avoid exporting statuspb's wire layout.
func posMarshal(pos statuspb.Position) []byte {
	var b []byte
	for i := 0; i < 9; i++ {
		b = wire.AppendDouble(b, protowire.Number(i+1), pos.Get(i))
	}
	return b
}

func posParse(fields []wire.Field) statuspb.Position {
	var pos statuspb.Position
	for _, f := range fields {
		if f.Num >= 1 && f.Num <= 9 {
			pos.Set(int(f.Num)-1, wire.Double(f.Raw))
		}
	}
	return pos
}

func toolMarshal(t ToolData) []byte {
	var b []byte
	b = wire.AppendInt32(b, toolFieldToolNo, t.ToolNo)
	b = wire.AppendMessage(b, toolFieldPose, posMarshal(t.Pose))
	b = wire.AppendDouble(b, toolFieldDiameter, t.Diameter)
	return b
}

func toolParse(fields []wire.Field) ToolData {
	var t ToolData
	for _, f := range fields {
		switch f.Num {
		case toolFieldToolNo:
			t.ToolNo = wire.Int32(f.Raw)
		case toolFieldPose:
			sub, err := wire.ParseFields(f.Raw)
			if err == nil {
				t.Pose = posParse(sub)
			}
		case toolFieldDiameter:
			t.Diameter = wire.Double(f.Raw)
		}
	}
	return t
}
