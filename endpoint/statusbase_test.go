package endpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machinetalk/channel"
	"machinetalk/container"
	"machinetalk/statuspb"
)

func newTestStatusBase() (*StatusBase, *channel.StatusSubscribe) {
	sub := channel.NewStatusSubscribe("tcp://127.0.0.1:5998", container.MsgEmcStatusFullUpdate, nil)
	return NewStatusBase(sub, nil), sub
}

func Test_StatusBase_SyncedTracksChannelUp(t *testing.T) {
	s, _ := newTestStatusBase()
	assert.False(t, s.Synced())

	s.onChannelState(channel.StateUp)
	assert.True(t, s.Synced())

	s.onChannelState(channel.StateSyncing)
	assert.False(t, s.Synced())
}

func Test_StatusBase_WaitSyncedUnblocksOnStateChange(t *testing.T) {
	s, _ := newTestStatusBase()

	done := make(chan struct{})
	go func() { s.WaitSynced(); close(done) }()

	time.Sleep(10 * time.Millisecond)
	s.onChannelState(channel.StateUp)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitSynced never unblocked")
	}
}

func Test_StatusBase_AppliesMotionPayload(t *testing.T) {
	s, _ := newTestStatusBase()

	motion := &statuspb.Motion{Joints: []statuspb.JointStatus{{Position: 1.5, Homed: true}}}
	s.onChannelMessage(string(statuspb.TopicMotion), &container.Container{StatusPayload: motion.Marshal()})

	require.Len(t, s.Status().Motion.Joints, 1)
	assert.Equal(t, 1.5, s.Status().Motion.Joints[0].Position)
	assert.True(t, s.Status().Motion.Joints[0].Homed)
}
