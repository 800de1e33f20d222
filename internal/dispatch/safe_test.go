package dispatch

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"machinetalk/internal/logx"
)

func Test_Safe_RunsFnNormally(t *testing.T) {
	called := false
	Safe(logx.NoOp(), "test", func() { called = true })
	assert.True(t, called)
}

func Test_Safe_RecoversPanicAndLogsInstead(t *testing.T) {
	var buf bytes.Buffer
	log := logx.New(logx.Options{Format: logx.JSONFormat, Out: &buf})

	assert.NotPanics(t, func() {
		Safe(log, "onStateChanged", func() { panic("listener blew up") })
	})

	assert.Contains(t, buf.String(), "onStateChanged")
	assert.Contains(t, buf.String(), "listener blew up")
}

func Test_Init_EmptyDSNIsANoop(t *testing.T) {
	assert.NoError(t, Init(""))
}
