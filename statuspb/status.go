package statuspb

import (
	"sync"

	"machinetalk/internal/wire"
)

// Topic names the five configurable status sub-trees (spec §3, §4.5).
type Topic string

const (
	TopicMotion Topic = "motion"
	TopicConfig Topic = "config"
	TopicIo     Topic = "io"
	TopicTask   Topic = "task"
	TopicInterp Topic = "interp"
)

// AllTopics is the canonical topic set a fully-configured StatusSubscribe
// channel subscribes to.
var AllTopics = []Topic{TopicMotion, TopicConfig, TopicIo, TopicTask, TopicInterp}

// JointStatus is one element of Motion's dense, index-addressed joint array.
type JointStatus struct {
	Position float64
	Velocity float64
	Homed    bool
	Fault    bool
}

const (
	jointFieldIndex = iota + 1
	jointFieldPosition
	jointFieldVelocity
	jointFieldHomed
	jointFieldFault
)

// SpindleStatus is one element of Motion's dense, index-addressed spindle
// array.
type SpindleStatus struct {
	Enabled   bool
	Speed     float64
	Direction int32
}

const (
	spindleFieldIndex = iota + 1
	spindleFieldEnabled
	spindleFieldSpeed
	spindleFieldDirection
)

// DigitalPin is one element of Io's dense, index-addressed digital in/out
// arrays.
type DigitalPin struct {
	Value bool
}

const (
	digitalFieldIndex = iota + 1
	digitalFieldValue
)

func ensureLen[T any](s *[]T, idx int) {
	if idx < len(*s) {
		return
	}
	grown := make([]T, idx+1)
	copy(grown, *s)
	*s = grown
}

// --- Motion ---

// Motion mirrors the server's motion sub-tree: current position, per-joint
// and per-spindle state, trajectory mode, and the motion-enabled flag.
type Motion struct {
	mu        sync.RWMutex
	Position  Position
	Joints    []JointStatus
	Spindles  []SpindleStatus
	TrajMode  int32
	Enabled   bool
}

const (
	motionFieldPosition = iota + 1
	motionFieldJoints
	motionFieldSpindles
	motionFieldTrajMode
	motionFieldEnabled
)

// Snapshot returns a copy safe to read without holding any lock.
func (m *Motion) Snapshot() Motion {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Motion{
		Position: m.Position,
		Joints:   append([]JointStatus(nil), m.Joints...),
		Spindles: append([]SpindleStatus(nil), m.Spindles...),
		TrajMode: m.TrajMode,
		Enabled:  m.Enabled,
	}
}

// ApplyFields merges a decoded field set under the sub-tree's own lock, per
// spec §3 ("every mutation... happens under that sub-tree's own condition
// variable").
func (m *Motion) ApplyFields(fields []wire.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range fields {
		switch f.Num {
		case motionFieldPosition:
			sub, err := wire.ParseFields(f.Raw)
			if err == nil {
				m.Position.applyFields(sub)
			}
		case motionFieldJoints:
			m.applyJoint(f.Raw)
		case motionFieldSpindles:
			m.applySpindle(f.Raw)
		case motionFieldTrajMode:
			m.TrajMode = wire.Int32(f.Raw)
		case motionFieldEnabled:
			m.Enabled = wire.Bool(f.Raw)
		}
	}
}

func (m *Motion) applyJoint(raw []byte) {
	sub, err := wire.ParseFields(raw)
	if err != nil {
		return
	}
	idx := -1
	for _, f := range sub {
		if f.Num == jointFieldIndex {
			idx = int(wire.Uint32(f.Raw))
		}
	}
	if idx < 0 {
		return
	}
	ensureLen(&m.Joints, idx)
	j := &m.Joints[idx]
	for _, f := range sub {
		switch f.Num {
		case jointFieldPosition:
			j.Position = wire.Double(f.Raw)
		case jointFieldVelocity:
			j.Velocity = wire.Double(f.Raw)
		case jointFieldHomed:
			j.Homed = wire.Bool(f.Raw)
		case jointFieldFault:
			j.Fault = wire.Bool(f.Raw)
		}
	}
}

func (m *Motion) applySpindle(raw []byte) {
	sub, err := wire.ParseFields(raw)
	if err != nil {
		return
	}
	idx := -1
	for _, f := range sub {
		if f.Num == spindleFieldIndex {
			idx = int(wire.Uint32(f.Raw))
		}
	}
	if idx < 0 {
		return
	}
	ensureLen(&m.Spindles, idx)
	s := &m.Spindles[idx]
	for _, f := range sub {
		switch f.Num {
		case spindleFieldEnabled:
			s.Enabled = wire.Bool(f.Raw)
		case spindleFieldSpeed:
			s.Speed = wire.Double(f.Raw)
		case spindleFieldDirection:
			s.Direction = wire.Int32(f.Raw)
		}
	}
}

func (m *Motion) Marshal() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var b []byte
	b = wire.AppendMessage(b, motionFieldPosition, m.Position.marshal())
	for i, j := range m.Joints {
		var jb []byte
		jb = wire.AppendUint32(jb, jointFieldIndex, uint32(i))
		jb = wire.AppendDouble(jb, jointFieldPosition, j.Position)
		jb = wire.AppendDouble(jb, jointFieldVelocity, j.Velocity)
		jb = wire.AppendBool(jb, jointFieldHomed, j.Homed)
		jb = wire.AppendBool(jb, jointFieldFault, j.Fault)
		b = wire.AppendMessage(b, motionFieldJoints, jb)
	}
	for i, s := range m.Spindles {
		var sb []byte
		sb = wire.AppendUint32(sb, spindleFieldIndex, uint32(i))
		sb = wire.AppendBool(sb, spindleFieldEnabled, s.Enabled)
		sb = wire.AppendDouble(sb, spindleFieldSpeed, s.Speed)
		sb = wire.AppendInt32(sb, spindleFieldDirection, s.Direction)
		b = wire.AppendMessage(b, motionFieldSpindles, sb)
	}
	b = wire.AppendInt32(b, motionFieldTrajMode, m.TrajMode)
	b = wire.AppendBool(b, motionFieldEnabled, m.Enabled)
	return b
}

// --- Io ---

// Io mirrors the server's io sub-tree: estop, coolant, spindle tool state
// and the dense digital in/out pin arrays.
type Io struct {
	mu            sync.RWMutex
	Estop         bool
	ToolInSpindle uint32
	Flood         bool
	Mist          bool
	DigitalIn     []DigitalPin
	DigitalOut    []DigitalPin
}

const (
	ioFieldEstop = iota + 1
	ioFieldToolInSpindle
	ioFieldFlood
	ioFieldMist
	ioFieldDigitalIn
	ioFieldDigitalOut
)

func (io *Io) Snapshot() Io {
	io.mu.RLock()
	defer io.mu.RUnlock()
	return Io{
		Estop:         io.Estop,
		ToolInSpindle: io.ToolInSpindle,
		Flood:         io.Flood,
		Mist:          io.Mist,
		DigitalIn:     append([]DigitalPin(nil), io.DigitalIn...),
		DigitalOut:    append([]DigitalPin(nil), io.DigitalOut...),
	}
}

func (io *Io) ApplyFields(fields []wire.Field) {
	io.mu.Lock()
	defer io.mu.Unlock()
	for _, f := range fields {
		switch f.Num {
		case ioFieldEstop:
			io.Estop = wire.Bool(f.Raw)
		case ioFieldToolInSpindle:
			io.ToolInSpindle = wire.Uint32(f.Raw)
		case ioFieldFlood:
			io.Flood = wire.Bool(f.Raw)
		case ioFieldMist:
			io.Mist = wire.Bool(f.Raw)
		case ioFieldDigitalIn:
			applyDigital(&io.DigitalIn, f.Raw)
		case ioFieldDigitalOut:
			applyDigital(&io.DigitalOut, f.Raw)
		}
	}
}

func applyDigital(pins *[]DigitalPin, raw []byte) {
	sub, err := wire.ParseFields(raw)
	if err != nil {
		return
	}
	idx := -1
	for _, f := range sub {
		if f.Num == digitalFieldIndex {
			idx = int(wire.Uint32(f.Raw))
		}
	}
	if idx < 0 {
		return
	}
	ensureLen(pins, idx)
	for _, f := range sub {
		if f.Num == digitalFieldValue {
			(*pins)[idx].Value = wire.Bool(f.Raw)
		}
	}
}

func marshalDigital(pins []DigitalPin, num int) []byte {
	var b []byte
	for i, p := range pins {
		var db []byte
		db = wire.AppendUint32(db, digitalFieldIndex, uint32(i))
		db = wire.AppendBool(db, digitalFieldValue, p.Value)
		b = wire.AppendMessage(b, num, db)
	}
	return b
}

func (io *Io) Marshal() []byte {
	io.mu.RLock()
	defer io.mu.RUnlock()
	var b []byte
	b = wire.AppendBool(b, ioFieldEstop, io.Estop)
	b = wire.AppendUint32(b, ioFieldToolInSpindle, io.ToolInSpindle)
	b = wire.AppendBool(b, ioFieldFlood, io.Flood)
	b = wire.AppendBool(b, ioFieldMist, io.Mist)
	b = append(b, marshalDigital(io.DigitalIn, ioFieldDigitalIn)...)
	b = append(b, marshalDigital(io.DigitalOut, ioFieldDigitalOut)...)
	return b
}

// --- Config ---

// Config mirrors the server's config sub-tree: machine-wide limits
// advertised once per session.
type Config struct {
	mu                  sync.RWMutex
	Name                string
	AxisCount           uint32
	DefaultVelocity     float64
	DefaultAcceleration float64
}

const (
	configFieldName = iota + 1
	configFieldAxisCount
	configFieldDefaultVelocity
	configFieldDefaultAcceleration
)

func (c *Config) Snapshot() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Config{
		Name:                c.Name,
		AxisCount:           c.AxisCount,
		DefaultVelocity:     c.DefaultVelocity,
		DefaultAcceleration: c.DefaultAcceleration,
	}
}

func (c *Config) ApplyFields(fields []wire.Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range fields {
		switch f.Num {
		case configFieldName:
			c.Name = wire.Str(f.Raw)
		case configFieldAxisCount:
			c.AxisCount = wire.Uint32(f.Raw)
		case configFieldDefaultVelocity:
			c.DefaultVelocity = wire.Double(f.Raw)
		case configFieldDefaultAcceleration:
			c.DefaultAcceleration = wire.Double(f.Raw)
		}
	}
}

func (c *Config) Marshal() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var b []byte
	b = wire.AppendStr(b, configFieldName, c.Name)
	b = wire.AppendUint32(b, configFieldAxisCount, c.AxisCount)
	b = wire.AppendDouble(b, configFieldDefaultVelocity, c.DefaultVelocity)
	b = wire.AppendDouble(b, configFieldDefaultAcceleration, c.DefaultAcceleration)
	return b
}

// --- Task ---

// Task mirrors the server's task sub-tree: mode/state/exec-state and the
// currently executing program line and file.
type Task struct {
	mu          sync.RWMutex
	TaskMode    int32
	TaskState   int32
	ExecState   int32
	CurrentLine int32
	File        string
}

const (
	taskFieldMode = iota + 1
	taskFieldState
	taskFieldExecState
	taskFieldCurrentLine
	taskFieldFile
)

func (t *Task) Snapshot() Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Task{
		TaskMode:    t.TaskMode,
		TaskState:   t.TaskState,
		ExecState:   t.ExecState,
		CurrentLine: t.CurrentLine,
		File:        t.File,
	}
}

func (t *Task) ApplyFields(fields []wire.Field) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, f := range fields {
		switch f.Num {
		case taskFieldMode:
			t.TaskMode = wire.Int32(f.Raw)
		case taskFieldState:
			t.TaskState = wire.Int32(f.Raw)
		case taskFieldExecState:
			t.ExecState = wire.Int32(f.Raw)
		case taskFieldCurrentLine:
			t.CurrentLine = wire.Int32(f.Raw)
		case taskFieldFile:
			t.File = wire.Str(f.Raw)
		}
	}
}

func (t *Task) Marshal() []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var b []byte
	b = wire.AppendInt32(b, taskFieldMode, t.TaskMode)
	b = wire.AppendInt32(b, taskFieldState, t.TaskState)
	b = wire.AppendInt32(b, taskFieldExecState, t.ExecState)
	b = wire.AppendInt32(b, taskFieldCurrentLine, t.CurrentLine)
	b = wire.AppendStr(b, taskFieldFile, t.File)
	return b
}

// --- Interp ---

// Interp mirrors the server's interp sub-tree. It tracks interpreter state
// independently from Task.ExecState — see the REDESIGN decision in
// DESIGN.md for why "task running" is not simply TaskState == running.
type Interp struct {
	mu          sync.RWMutex
	InterpState int32
	CurrentLine int32
	File        string
}

const (
	interpFieldState = iota + 1
	interpFieldCurrentLine
	interpFieldFile
)

func (in *Interp) Snapshot() Interp {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return Interp{InterpState: in.InterpState, CurrentLine: in.CurrentLine, File: in.File}
}

func (in *Interp) ApplyFields(fields []wire.Field) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, f := range fields {
		switch f.Num {
		case interpFieldState:
			in.InterpState = wire.Int32(f.Raw)
		case interpFieldCurrentLine:
			in.CurrentLine = wire.Int32(f.Raw)
		case interpFieldFile:
			in.File = wire.Str(f.Raw)
		}
	}
}

func (in *Interp) Marshal() []byte {
	in.mu.RLock()
	defer in.mu.RUnlock()
	var b []byte
	b = wire.AppendInt32(b, interpFieldState, in.InterpState)
	b = wire.AppendInt32(b, interpFieldCurrentLine, in.CurrentLine)
	b = wire.AppendStr(b, interpFieldFile, in.File)
	return b
}

// InterpStateIdle is the canonical "idle" value for Interp.InterpState and
// Task.ExecState (both sub-trees use the same small state enumeration).
const InterpStateIdle int32 = 1

// EmcStatus is the top-level status mirror composing all five sub-trees.
// Each sub-tree is independently locked; EmcStatus itself holds no lock.
type EmcStatus struct {
	Motion Motion
	Io     Io
	Config Config
	Task   Task
	Interp Interp
}

// NewEmcStatus returns a zero-valued status mirror.
func NewEmcStatus() *EmcStatus { return &EmcStatus{} }

// ApplyTopic merges a decoded field set into the named sub-tree. It is a
// no-op for an unrecognised topic name.
func (s *EmcStatus) ApplyTopic(topic Topic, raw []byte) error {
	fields, err := wire.ParseFields(raw)
	if err != nil {
		return err
	}
	switch topic {
	case TopicMotion:
		s.Motion.ApplyFields(fields)
	case TopicIo:
		s.Io.ApplyFields(fields)
	case TopicConfig:
		s.Config.ApplyFields(fields)
	case TopicTask:
		s.Task.ApplyFields(fields)
	case TopicInterp:
		s.Interp.ApplyFields(fields)
	}
	return nil
}

// Marshal serialises the named sub-tree, used by tests and stub servers to
// build full/incremental update payloads.
func (s *EmcStatus) Marshal(topic Topic) []byte {
	switch topic {
	case TopicMotion:
		return s.Motion.Marshal()
	case TopicIo:
		return s.Io.Marshal()
	case TopicConfig:
		return s.Config.Marshal()
	case TopicTask:
		return s.Task.Marshal()
	case TopicInterp:
		return s.Interp.Marshal()
	default:
		return nil
	}
}
