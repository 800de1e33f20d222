package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Log_StartsInDownState(t *testing.T) {
	l := NewLog("tcp://127.0.0.1:5993", 3, nil)
	assert.Equal(t, "down", l.State())
}
