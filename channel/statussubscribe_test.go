package channel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machinetalk/container"
)

type fakeSub struct {
	mu        sync.Mutex
	inbound   chan subFrame
	closed    bool
	subscribed map[string]bool
}

func newFakeSub() *fakeSub {
	return &fakeSub{inbound: make(chan subFrame, 16), subscribed: make(map[string]bool)}
}

func (s *fakeSub) Dial(string) error { return nil }
func (s *fakeSub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.inbound)
	}
	return nil
}
func (s *fakeSub) Subscribe(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed[topic] = true
	return nil
}
func (s *fakeSub) Unsubscribe(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribed, topic)
	return nil
}
func (s *fakeSub) Recv() (string, []byte, error) {
	f, ok := <-s.inbound
	if !ok {
		return "", nil, errSockClosed
	}
	return f.topic, f.frame, nil
}

func withFakeSub(t *testing.T) *fakeSub {
	t.Helper()
	fake := newFakeSub()
	orig := newSubSocket
	newSubSocket = func(ctx context.Context) subSocket { return fake }
	t.Cleanup(func() { newSubSocket = orig })
	return fake
}

func Test_StatusSubscribe_SyncGateWaitsForEveryTopic(t *testing.T) {
	fake := withFakeSub(t)
	s := NewStatusSubscribe("tcp://127.0.0.1:5006", container.MsgEmcStatusFullUpdate, nil)
	s.heartbeat = time.Second
	s.AddTopic("motion")
	s.AddTopic("io")

	var states []string
	var mu sync.Mutex
	s.OnStateChanged(func(st string) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	})

	s.Start()
	defer func() { s.Stop(); s.Wait() }()

	require.Eventually(t, func() bool { return s.State() == StateSyncing || s.State() == StateTrying }, time.Second, 5*time.Millisecond)

	motionUpdate, err := container.Encode(&container.Container{Type: container.MsgEmcStatusFullUpdate})
	require.NoError(t, err)
	fake.inbound <- subFrame{topic: "motion", frame: motionUpdate}

	// only one of two topics synced: must not yet be up.
	time.Sleep(20 * time.Millisecond)
	assert.NotEqual(t, StateUp, s.State())
	assert.True(t, s.TopicSynced("motion"))
	assert.False(t, s.TopicSynced("io"))

	ioUpdate, err := container.Encode(&container.Container{Type: container.MsgEmcStatusFullUpdate})
	require.NoError(t, err)
	fake.inbound <- subFrame{topic: "io", frame: ioUpdate}

	require.Eventually(t, func() bool { return s.State() == StateUp }, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, states, StateUp)
}

func Test_StatusSubscribe_AddTopicAfterUpDesyncs(t *testing.T) {
	withFakeSub(t)
	s := NewStatusSubscribe("tcp://127.0.0.1:5006", container.MsgEmcStatusFullUpdate, nil)
	s.heartbeat = time.Second

	s.Start()
	defer func() { s.Stop(); s.Wait() }()
	require.Eventually(t, func() bool { return s.State() == StateTrying }, time.Second, 5*time.Millisecond)

	// with zero outstanding topics the sync gate is vacuously satisfied;
	// RemoveTopic re-evaluates it even though nothing was ever added.
	s.RemoveTopic("never-added")
	require.Eventually(t, func() bool { return s.State() == StateUp }, time.Second, 5*time.Millisecond)

	s.AddTopic("spindle")
	assert.Equal(t, StateSyncing, s.State())
}

func Test_StatusSubscribe_WithHeartbeatAndLivenessOptionsOverrideDefaults(t *testing.T) {
	s := NewStatusSubscribe("tcp://127.0.0.1:5006", container.MsgEmcStatusFullUpdate, nil,
		WithHeartbeat(9*time.Millisecond), WithLiveness(2))
	assert.Equal(t, 9*time.Millisecond, s.heartbeat)
	assert.Equal(t, 2, s.livenessMax)
}
