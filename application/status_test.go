package application

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"machinetalk/statuspb"
)

func Test_Status_StartsUnsynced(t *testing.T) {
	s := NewStatus("tcp://127.0.0.1:5991", []statuspb.Topic{statuspb.TopicMotion, statuspb.TopicTask}, nil)
	assert.False(t, s.Synced())
}
