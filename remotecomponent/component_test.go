package remotecomponent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machinetalk/channel"
	"machinetalk/container"
	"machinetalk/halpb"
	"machinetalk/internal/errs"
)

// drive advances rc's composite FSM directly, without calling Start on the
// component itself. Entering syncing still starts the real halrcomp
// channel, which dials the test's loopback URI.
func drive(rc *RemoteComponent, ev string) {
	rc.transition(func() {
		rc.sm.Event(context.Background(), ev)
	})
}

func newTestComponent(noBind bool) *RemoteComponent {
	return New("test-comp", "tcp://127.0.0.1:5994", "tcp://127.0.0.1:5995", "test", noBind, nil)
}

func Test_RemoteComponent_BindHandshakeReachesSynced(t *testing.T) {
	rc := newTestComponent(false)
	defer rc.Stop()
	pin := NewPin("speed", halpb.PinFloat, halpb.PinOut, halpb.Value{Kind: halpb.PinFloat})
	rc.DeclarePin(pin)

	var states []string
	rc.OnStateChanged(func(s string) { states = append(states, s) })

	drive(rc, evStart)
	assert.Equal(t, StateTrying, rc.State())

	rc.onHalrcmdState(channel.StateUp)
	// bind is sent synchronously on entering StateBind, landing in StateBinding.
	assert.Equal(t, StateBinding, rc.State())

	rc.onHalrcmdMessage("", &container.Container{Type: container.MsgHalrcompBindConfirm})
	assert.Equal(t, StateSyncing, rc.State())

	rc.onHalrcompState(channel.StateUp)
	assert.Equal(t, StateSync, rc.State())

	rc.applyFullUpdate(&container.Container{HalPins: []halpb.PinUpdate{
		{Handle: 3, Name: "speed", Value: halpb.Value{Kind: halpb.PinFloat, Float: 9.0}},
	}})
	assert.Equal(t, StateSynced, rc.State())
	assert.True(t, pin.Synced())
	assert.Equal(t, uint32(3), pin.Handle())

	assert.Contains(t, states, StateBind)
	assert.Contains(t, states, StateBinding)
	assert.Contains(t, states, StateSyncing)
	assert.Contains(t, states, StateSync)
	assert.Contains(t, states, StateSynced)
}

func Test_RemoteComponent_NoBindSkipsStraightToSyncing(t *testing.T) {
	rc := newTestComponent(true)
	defer rc.Stop()

	drive(rc, evStart)
	rc.onHalrcmdState(channel.StateUp)

	assert.Equal(t, StateSyncing, rc.State())
}

func Test_RemoteComponent_BindRejectEntersErrorWithNote(t *testing.T) {
	rc := newTestComponent(false)
	defer rc.Stop()

	drive(rc, evStart)
	rc.onHalrcmdState(channel.StateUp)
	require.Equal(t, StateBinding, rc.State())

	rc.onHalrcmdMessage("", &container.Container{Type: container.MsgHalrcompBindReject, Note: []string{"component already exists"}})

	assert.Equal(t, StateError, rc.State())
	assert.Equal(t, "component already exists", rc.ErrorString())
}

func Test_RemoteComponent_SetPinDropsWriteToInPin(t *testing.T) {
	rc := newTestComponent(true)
	pin := NewPin("estop", halpb.PinBit, halpb.PinIn, halpb.Value{Kind: halpb.PinBit})
	rc.DeclarePin(pin)

	err := rc.SetPin("estop", halpb.Value{Kind: halpb.PinBit, Bit: true})
	assert.ErrorIs(t, err, errs.ErrPinDirection)
}

func Test_RemoteComponent_SetPinBeforeSyncedUpdatesLocallyOnly(t *testing.T) {
	rc := newTestComponent(true)
	pin := NewPin("speed", halpb.PinFloat, halpb.PinOut, halpb.Value{Kind: halpb.PinFloat})
	rc.DeclarePin(pin)

	err := rc.SetPin("speed", halpb.Value{Kind: halpb.PinFloat, Float: 42})
	require.NoError(t, err)

	assert.Equal(t, float64(42), pin.Value().Float)
	assert.False(t, pin.Synced())
}
