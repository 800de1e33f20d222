package halpb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_PinDescriptor_RoundTripsEveryKind(t *testing.T) {
	cases := []PinDescriptor{
		{Name: "estop", Kind: PinBit, Direction: PinIn, Value: Value{Kind: PinBit, Bit: true}},
		{Name: "speed", Kind: PinFloat, Direction: PinOut, Value: Value{Kind: PinFloat, Float: 12.5}},
		{Name: "count", Kind: PinS32, Direction: PinIo, Value: Value{Kind: PinS32, S32: -7}},
		{Name: "handle", Kind: PinU32, Direction: PinOut, Value: Value{Kind: PinU32, U32: 42}},
	}

	for _, c := range cases {
		got, err := ParsePinDescriptor(c.Marshal())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func Test_ComponentDescriptor_RoundTripsWithMultiplePins(t *testing.T) {
	c := ComponentDescriptor{
		Name:     "anddemo",
		NoCreate: true,
		Pins: []PinDescriptor{
			{Name: "in0", Kind: PinBit, Direction: PinIn, Value: Value{Kind: PinBit, Bit: false}},
			{Name: "out0", Kind: PinBit, Direction: PinOut, Value: Value{Kind: PinBit, Bit: true}},
		},
	}

	got, err := ParseComponentDescriptor(c.Marshal())
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func Test_PinUpdate_IncrementalUpdateOmitsName(t *testing.T) {
	p := PinUpdate{Handle: 3, Value: Value{Kind: PinFloat, Float: 9.0}}

	got, err := ParsePinUpdate(p.Marshal())
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Empty(t, got.Name)
}

func Test_ParsePinUpdate_MalformedReturnsError(t *testing.T) {
	_, err := ParsePinUpdate([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	assert.Error(t, err)
}
