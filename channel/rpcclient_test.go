package channel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machinetalk/container"
)

var errSockClosed = errors.New("fake socket closed")

// fakeDealer is a hand-written in-memory stand-in for the zmq4-backed
// dealerSocket, fed from a test via inbound and drained via outbound
// (mirrors the teacher's preference for small hand-rolled fakes over a
// real network peer in unit tests).
type fakeDealer struct {
	mu       sync.Mutex
	inbound  chan []byte
	outbound chan []byte
	closed   bool
}

func newFakeDealer() *fakeDealer {
	return &fakeDealer{inbound: make(chan []byte, 16), outbound: make(chan []byte, 16)}
}

func (d *fakeDealer) Dial(string) error { return nil }
func (d *fakeDealer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.inbound)
	}
	return nil
}
func (d *fakeDealer) Send(frame []byte) error {
	select {
	case d.outbound <- frame:
	default:
	}
	return nil
}
func (d *fakeDealer) Recv() ([]byte, error) {
	frame, ok := <-d.inbound
	if !ok {
		return nil, errSockClosed
	}
	return frame, nil
}

func withFakeDealer(t *testing.T) *fakeDealer {
	t.Helper()
	fake := newFakeDealer()
	orig := newDealerSocket
	newDealerSocket = func(ctx context.Context, identity string) dealerSocket { return fake }
	t.Cleanup(func() { newDealerSocket = orig })
	return fake
}

func Test_RpcClient_ReachesUpOnFirstMessage(t *testing.T) {
	fake := withFakeDealer(t)
	c := NewRpcClient("tcp://127.0.0.1:5005", "test", nil)
	c.heartbeat = 50 * time.Millisecond

	var states []string
	var mu sync.Mutex
	c.OnStateChanged(func(s string) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	c.Start()
	defer func() { c.Stop(); c.Wait() }()

	require.Eventually(t, func() bool { return c.State() == StateTrying }, time.Second, 5*time.Millisecond)

	raw, err := container.Encode(&container.Container{Type: container.MsgPingAcknowledge})
	require.NoError(t, err)
	fake.inbound <- raw

	require.Eventually(t, func() bool { return c.State() == StateUp }, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, states, StateTrying)
	assert.Contains(t, states, StateUp)
}

func Test_RpcClient_HeartbeatTimeoutDropsToTrying(t *testing.T) {
	fake := withFakeDealer(t)
	c := NewRpcClient("tcp://127.0.0.1:5005", "test", nil)
	c.heartbeat = 10 * time.Millisecond

	c.Start()
	defer func() { c.Stop(); c.Wait() }()

	raw, err := container.Encode(&container.Container{Type: container.MsgPingAcknowledge})
	require.NoError(t, err)
	fake.inbound <- raw
	require.Eventually(t, func() bool { return c.State() == StateUp }, time.Second, 5*time.Millisecond)

	// starve it of any further messages past defaultLiveness heartbeats;
	// it must fall back to trying, not get stuck "up".
	require.Eventually(t, func() bool { return c.State() == StateTrying }, 2*time.Second, 5*time.Millisecond)
}

func Test_RpcClient_EmptyIdentityGetsHostnameUUIDDefault(t *testing.T) {
	c := NewRpcClient("tcp://127.0.0.1:5005", "", nil)
	assert.Contains(t, c.identity, "-")
	assert.NotEqual(t, "", c.identity)
}

func Test_RpcClient_ExplicitIdentityPassesThroughUnchanged(t *testing.T) {
	c := NewRpcClient("tcp://127.0.0.1:5005", "test", nil)
	assert.Equal(t, "test", c.identity)
}

func Test_RpcClient_WithHeartbeatAndLivenessOptionsOverrideDefaults(t *testing.T) {
	c := NewRpcClient("tcp://127.0.0.1:5005", "test", nil, WithHeartbeat(9*time.Millisecond), WithLiveness(2))
	assert.Equal(t, 9*time.Millisecond, c.heartbeat)
	assert.Equal(t, 2, c.livenessMax)
}

// Start must allocate recvCh itself, synchronously, before returning —
// reopen() (run via an fsm callback inside Start's transition) starts
// receiveLoop, which reads recvCh under mu, so the channel must already
// exist by then; run() only reads it.
func Test_RpcClient_StartAllocatesRecvChBeforeReturning(t *testing.T) {
	withFakeDealer(t)
	c := NewRpcClient("tcp://127.0.0.1:5005", "test", nil)

	c.Start()
	defer func() { c.Stop(); c.Wait() }()

	c.mu.Lock()
	recv := c.recvCh
	c.mu.Unlock()
	assert.NotNil(t, recv)
}

func Test_RpcClient_StopIsSafeFromWithinAListener(t *testing.T) {
	withFakeDealer(t)
	c := NewRpcClient("tcp://127.0.0.1:5005", "test", nil)

	done := make(chan struct{})
	c.OnStateChanged(func(s string) {
		if s == StateTrying {
			c.Stop() // must not deadlock against the transition() that fired this callback.
			close(done)
		}
	})
	c.Start()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener-triggered Stop() did not return")
	}
	c.Wait()
	require.Eventually(t, func() bool { return c.State() == StateDown }, time.Second, 5*time.Millisecond)
}
