package application

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"machinetalk/internal/errs"
)

func Test_Launcher_CallsFailUntilConnected(t *testing.T) {
	l := NewLauncher("tcp://127.0.0.1:5994", "test", nil)
	assert.False(t, l.Connected())

	_, err := l.LaunchStart()
	assert.ErrorIs(t, err, errs.ErrNotConnected)

	_, err = l.Call(2)
	assert.ErrorIs(t, err, errs.ErrNotConnected)

	_, err = l.Terminate()
	assert.ErrorIs(t, err, errs.ErrNotConnected)

	_, err = l.Shutdown()
	assert.ErrorIs(t, err, errs.ErrNotConnected)
}

func Test_Launcher_TracksChannelStateEdge(t *testing.T) {
	l := NewLauncher("tcp://127.0.0.1:5994", "test", nil)

	l.onChannelState("up")
	assert.True(t, l.Connected())

	l.onChannelState("trying")
	assert.False(t, l.Connected())
}
