package container

import (
	"testing"

	"github.com/stretchr/testify/require"

	"machinetalk/cmdpb"
	"machinetalk/halpb"
	"machinetalk/internal/errs"
)

func TestRoundTrip(t *testing.T) {
	params := cmdpb.Params{Index: 3, Value: 1.5, Enable: true, InterpName: "rs274ngc"}
	c := &Container{
		Type:          MsgEmcCommandExecuted,
		Ticket:        7,
		ReplyTicket:   7,
		Note:          []string{"ok", "done"},
		Pparams:       &Pparams{KeepaliveTimer: 2500, RxQueue: 1, TxQueue: 2},
		CommandParams: &params,
		HalComponent: &halpb.ComponentDescriptor{
			Name:     "anddemo",
			NoCreate: true,
			Pins: []halpb.PinDescriptor{
				{Name: "button0", Kind: halpb.PinBit, Direction: halpb.PinOut, Value: halpb.Value{Kind: halpb.PinBit, Bit: true}},
			},
		},
		HalPins: []halpb.PinUpdate{
			{Handle: 8, Name: "led", Value: halpb.Value{Kind: halpb.PinBit, Bit: false}},
		},
		Log: &LogRecord{Level: 1, Origin: "rt", Tag: "test", Pid: 99, Text: "hi", TimestampMs: 12345},
	}

	raw, err := Encode(c)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)

	require.Equal(t, c.Type, got.Type)
	require.Equal(t, c.Ticket, got.Ticket)
	require.Equal(t, c.ReplyTicket, got.ReplyTicket)
	require.Equal(t, c.Note, got.Note)
	require.Equal(t, c.Pparams, got.Pparams)
	require.Equal(t, c.CommandParams.Index, got.CommandParams.Index)
	require.InDelta(t, c.CommandParams.Value, got.CommandParams.Value, 1e-9)
	require.Equal(t, c.CommandParams.Enable, got.CommandParams.Enable)
	require.Equal(t, c.CommandParams.InterpName, got.CommandParams.InterpName)
	require.Equal(t, c.HalComponent.Name, got.HalComponent.Name)
	require.Equal(t, c.HalComponent.NoCreate, got.HalComponent.NoCreate)
	require.Len(t, got.HalComponent.Pins, 1)
	require.Equal(t, "button0", got.HalComponent.Pins[0].Name)
	require.Len(t, got.HalPins, 1)
	require.Equal(t, uint32(8), got.HalPins[0].Handle)
	require.Equal(t, c.Log.Text, got.Log.Text)
}

func TestDecodeMalformedReturnsErrDecode(t *testing.T) {
	_, err := Decode([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	require.ErrorIs(t, err, errs.ErrDecode)
}

func TestDecodeEmptyIsValid(t *testing.T) {
	c, err := Decode(nil)
	require.NoError(t, err)
	require.Equal(t, MsgUnknown, c.Type)
}
