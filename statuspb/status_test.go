package statuspb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machinetalk/internal/wire"
)

func applyMarshalled(t *testing.T, raw []byte, apply func([]wire.Field)) {
	t.Helper()
	fields, err := wire.ParseFields(raw)
	require.NoError(t, err)
	apply(fields)
}

func Test_Io_RoundTripsDigitalArraysAndFlags(t *testing.T) {
	var io Io
	io.Estop = true
	io.ToolInSpindle = 3
	io.Flood = true
	io.DigitalIn = []DigitalPin{{Value: true}, {Value: false}, {Value: true}}
	io.DigitalOut = []DigitalPin{{Value: false}}

	var got Io
	applyMarshalled(t, io.Marshal(), got.ApplyFields)

	assert.Equal(t, io.Snapshot(), got.Snapshot())
}

func Test_Config_RoundTrips(t *testing.T) {
	var c Config
	c.Name = "lathe"
	c.AxisCount = 3
	c.DefaultVelocity = 250.0
	c.DefaultAcceleration = 500.0

	var got Config
	applyMarshalled(t, c.Marshal(), got.ApplyFields)

	assert.Equal(t, c.Snapshot(), got.Snapshot())
}

func Test_Task_RoundTrips(t *testing.T) {
	var task Task
	task.TaskMode = 1
	task.TaskState = 2
	task.ExecState = InterpStateIdle
	task.CurrentLine = 42
	task.File = "part.ngc"

	var got Task
	applyMarshalled(t, task.Marshal(), got.ApplyFields)

	assert.Equal(t, task.Snapshot(), got.Snapshot())
}

func Test_Interp_RoundTrips(t *testing.T) {
	var in Interp
	in.InterpState = InterpStateIdle
	in.CurrentLine = 7
	in.File = "sub.ngc"

	var got Interp
	applyMarshalled(t, in.Marshal(), got.ApplyFields)

	assert.Equal(t, in.Snapshot(), got.Snapshot())
}

func Test_EmcStatus_ApplyTopicDispatchesToTheRightSubTree(t *testing.T) {
	s := NewEmcStatus()

	var cfg Config
	cfg.Name = "mill"
	cfg.AxisCount = 4

	require.NoError(t, s.ApplyTopic(TopicConfig, cfg.Marshal()))

	assert.Equal(t, "mill", s.Config.Snapshot().Name)
	assert.Equal(t, uint32(4), s.Config.Snapshot().AxisCount)
	// Applying to one topic leaves the others untouched.
	assert.Equal(t, Task{}, s.Task.Snapshot())
}

func Test_EmcStatus_ApplyTopicUnknownTopicIsNoop(t *testing.T) {
	s := NewEmcStatus()
	require.NoError(t, s.ApplyTopic(Topic("bogus"), []byte{0x08, 0x01}))
	assert.Equal(t, *NewEmcStatus(), *s)
}
