package channel

import (
	"sync"

	"machinetalk/container"
	"machinetalk/internal/dispatch"
	"machinetalk/internal/logx"
)

// State names shared by every channel FSM (spec §4.2-§4.4).
const (
	StateDown  = "down"
	StateTrying = "trying"
	StateUp    = "up"
	// StateSyncing only applies to StatusSubscribe's richer table and is
	// declared beside it, in statussubscribe.go.
)

// StateListener observes a channel's state transitions (spec §4.2:
// on_state_changed). Fired on channel-worker goroutines.
type StateListener func(state string)

// MessageListener observes every decoded, non-liveness-only message a
// channel receives (spec: on_message_received). topic is "" for the
// RpcClient channel, and the SUB topic frame's value for subscribe
// channels.
type MessageListener func(topic string, c *container.Container)

// listeners is the mutex-protected, registration-ordered observer table
// every channel embeds (spec §5: "State-change callbacks for a given
// entity are fired sequentially in registration order").
type listeners struct {
	mu      sync.Mutex
	state   []StateListener
	message []MessageListener
	log     logx.Logger
}

func newListeners(log logx.Logger) *listeners {
	if log == nil {
		log = logx.NoOp()
	}
	return &listeners{log: log}
}

func (l *listeners) OnStateChanged(f StateListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = append(l.state, f)
}

func (l *listeners) OnMessageReceived(f MessageListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.message = append(l.message, f)
}

func (l *listeners) fireState(state string) {
	l.mu.Lock()
	cbs := append([]StateListener(nil), l.state...)
	l.mu.Unlock()
	for _, cb := range cbs {
		cb := cb
		dispatch.Safe(l.log, "channel.state", func() { cb(state) })
	}
}

func (l *listeners) fireMessage(topic string, c *container.Container) {
	l.mu.Lock()
	cbs := append([]MessageListener(nil), l.message...)
	l.mu.Unlock()
	for _, cb := range cbs {
		cb := cb
		dispatch.Safe(l.log, "channel.message", func() { cb(topic, c) })
	}
}
