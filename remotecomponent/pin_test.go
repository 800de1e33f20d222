package remotecomponent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"machinetalk/halpb"
)

func Test_Pin_SetLocalMarksUnsyncedAndFiresListeners(t *testing.T) {
	p := NewPin("spindle-speed", halpb.PinFloat, halpb.PinOut, halpb.Value{Kind: halpb.PinFloat, Float: 0})

	var seen []halpb.Value
	p.OnChange(func(v halpb.Value) { seen = append(seen, v) })

	newVal, cbs := p.setLocal(halpb.Value{Kind: halpb.PinFloat, Float: 12.5})
	for _, cb := range cbs {
		cb(newVal)
	}

	assert.False(t, p.Synced())
	assert.Equal(t, 12.5, p.Value().Float)
	assert.Len(t, seen, 1)
	assert.Equal(t, 12.5, seen[0].Float)
}

func Test_Pin_ApplyFromWireMarksSynced(t *testing.T) {
	p := NewPin("estop", halpb.PinBit, halpb.PinIn, halpb.Value{Kind: halpb.PinBit})
	p.bindHandle(7)

	p.applyFromWire(halpb.Value{Kind: halpb.PinBit, Bit: true})

	assert.True(t, p.Synced())
	assert.True(t, p.Value().Bit)
	assert.Equal(t, uint32(7), p.Handle())
}
