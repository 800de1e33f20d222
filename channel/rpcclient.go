// Package channel implements the three socket state machines every endpoint
// is built on top of (spec §4.2-§4.4): RpcClient, StatusSubscribe and
// SimpleSubscribe, plus the state-less Publish socket wrapper.
package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"machinetalk/container"
	"machinetalk/internal/logx"
)

// RpcClient FSM events (spec §4.2's command-channel table).
const (
	evStart            = "start"
	evStop             = "stop"
	evMsgReceived      = "msg_received"
	evHeartbeatTimeout = "heartbeat_timeout"
)

// RpcClient FSM callbacks. Socket-management actions are keyed to the event
// (fire on every Event call, including a same-state trying->trying
// transition) rather than to "enter_<state>" (fires only when the state
// actually changes), matching the fysom-derived semantics spec §4.2's table
// assumes: "stay trying" on a repeated heartbeat timeout still has to reopen
// the socket.
const (
	onBeforeStart            = "before_" + evStart
	onBeforeStop             = "before_" + evStop
	onBeforeHeartbeatTimeout = "before_" + evHeartbeatTimeout
	onEnterDown              = "enter_" + StateDown
	onEnterTrying            = "enter_" + StateTrying
	onEnterUp                = "enter_" + StateUp
)

// RpcClient is a DEALER-socket command channel with heartbeat-based liveness
// tracking (spec §4.2). CommandBase (endpoint layer) is built on top of it.
type RpcClient struct {
	uri string

	mu       sync.Mutex
	sm       *fsm.FSM
	sock     dealerSocket
	identity string

	heartbeat time.Duration
	liveness  int
	// livenessMax is the value liveness resets to on reopen and on every
	// received frame; defaultLiveness unless overridden by WithLiveness.
	livenessMax int

	outbound chan []byte
	recvCh   chan []byte
	shutdown chan struct{}
	done     chan struct{}
	stopOnce *sync.Once

	// pendingState is set by an fsm.Callback (running with mu held) and
	// drained by transition() after mu is released, so fireState never runs
	// while mu is locked — a listener calling back into State()/Stop() from
	// its own goroutine must not deadlock (spec §5).
	pendingState string

	*listeners
	log logx.Logger
}

// NewRpcClient builds an RpcClient bound to uri; it does nothing until
// Start is called (spec §4.2: "constructing a channel never touches the
// network"). An empty identity is replaced with a "<hostname>-<uuid>" DEALER
// identity (spec §6). opts overrides the default heartbeat interval and
// liveness count, e.g. from a loaded config.Config.
func NewRpcClient(uri, identity string, log logx.Logger, opts ...Option) *RpcClient {
	if log == nil {
		log = logx.NoOp()
	}
	hb := applyOptions(opts)
	c := &RpcClient{
		uri:         uri,
		identity:    resolveIdentity(identity),
		heartbeat:   hb.heartbeat,
		livenessMax: hb.liveness,
		listeners:   newListeners(log),
		log:         log,
	}
	c.sm = fsm.NewFSM(
		StateDown,
		fsm.Events{
			{Name: evStart, Src: []string{StateDown}, Dst: StateTrying},
			{Name: evMsgReceived, Src: []string{StateTrying}, Dst: StateUp},
			{Name: evMsgReceived, Src: []string{StateUp}, Dst: StateUp},
			{Name: evHeartbeatTimeout, Src: []string{StateTrying}, Dst: StateTrying},
			{Name: evHeartbeatTimeout, Src: []string{StateUp}, Dst: StateTrying},
			{Name: evStop, Src: []string{StateDown, StateTrying, StateUp}, Dst: StateDown},
		},
		fsm.Callbacks{
			onBeforeStart:            func(ctx context.Context, e *fsm.Event) { c.reopen() },
			onBeforeHeartbeatTimeout: func(ctx context.Context, e *fsm.Event) { c.reopen() },
			onBeforeStop: func(ctx context.Context, e *fsm.Event) {
				if c.sock != nil {
					c.sock.Close()
				}
			},
			onEnterDown:   func(ctx context.Context, e *fsm.Event) { c.pendingState = StateDown },
			onEnterTrying: func(ctx context.Context, e *fsm.Event) { c.pendingState = StateTrying },
			onEnterUp:     func(ctx context.Context, e *fsm.Event) { c.pendingState = StateUp },
		},
	)
	return c
}

// State returns the channel's current FSM state.
func (c *RpcClient) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sm.Current()
}

// LivenessMax returns the liveness counter's configured reset value
// (defaultLiveness unless overridden by WithLiveness/config.Config).
func (c *RpcClient) LivenessMax() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.livenessMax
}

// transition runs fn (which must call c.sm.Event, directly or not at all)
// with mu held, then fires the resulting state-change listener, if any,
// after releasing mu.
func (c *RpcClient) transition(fn func()) {
	c.mu.Lock()
	fn()
	state := c.pendingState
	c.pendingState = ""
	c.mu.Unlock()

	if state != "" {
		c.fireState(state)
	}
}

// reopen closes any existing socket, dials a fresh one, resets liveness and
// sends an immediate ping. Called with c.mu held, from the worker goroutine
// via fsm callbacks.
func (c *RpcClient) reopen() {
	if c.sock != nil {
		c.sock.Close()
	}
	ctx := context.Background()
	sock := newDealerSocket(ctx, c.identity)
	if err := sock.Dial(c.uri); err != nil {
		c.log.Error().Str("uri", c.uri).Err(err).Msg("rpcclient: dial failed")
	}
	c.sock = sock
	c.liveness = c.livenessMax
	go c.receiveLoop(sock)
	c.sendPing()
}

// Start launches the worker goroutine. Idempotent: a second Start while
// already running is a no-op (spec §5).
func (c *RpcClient) Start() {
	c.mu.Lock()
	if c.sm.Current() != StateDown {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.transition(func() {
		c.outbound = make(chan []byte, 64)
		c.recvCh = make(chan []byte, 16)
		c.shutdown = make(chan struct{})
		c.done = make(chan struct{})
		c.stopOnce = &sync.Once{}
		c.sm.Event(context.Background(), evStart)
	})
	go c.run()
}

// Stop signals the worker to shut down and returns immediately. It is safe
// to call from within a message or state listener running on the worker
// goroutine itself — a synchronous join there would deadlock (spec §5's
// reentrancy requirement), so the final down-transition happens on a
// separate goroutine once the worker has actually exited. Use Wait to block
// until that has happened.
func (c *RpcClient) Stop() {
	c.mu.Lock()
	if c.sm.Current() == StateDown {
		c.mu.Unlock()
		return
	}
	once := c.stopOnce
	shutdown := c.shutdown
	done := c.done
	c.mu.Unlock()

	once.Do(func() {
		close(shutdown)
		go func() {
			<-done
			c.transition(func() { c.sm.Event(context.Background(), evStop) })
		}()
	})
}

// Wait blocks until the worker goroutine started by the most recent Start
// has exited.
func (c *RpcClient) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Send enqueues a container for transmission and never blocks the caller,
// even against a slow or wedged peer (spec §4.2: "send never blocks").
func (c *RpcClient) Send(typ container.MsgType, msg *container.Container) error {
	msg.Type = typ
	raw, err := container.Encode(msg)
	if err != nil {
		return fmt.Errorf("rpcclient: encode: %w", err)
	}
	c.mu.Lock()
	outbound := c.outbound
	shutdown := c.shutdown
	c.mu.Unlock()
	if outbound == nil {
		return nil
	}
	go func() {
		select {
		case outbound <- raw:
		case <-shutdown:
		}
	}()
	return nil
}

func (c *RpcClient) sendPing() {
	raw, err := container.Encode(&container.Container{Type: container.MsgPing})
	if err != nil {
		return
	}
	if c.sock != nil {
		if err := c.sock.Send(raw); err != nil {
			c.log.Error().Err(err).Msg("rpcclient: ping send failed")
		}
	}
}

// receiveLoop reads frames off sock and forwards them to the worker loop's
// select via recvCh, standing in for a libzmq poller thread (Go's natural
// substitute: one goroutine blocked in Recv per live socket).
func (c *RpcClient) receiveLoop(sock dealerSocket) {
	for {
		frame, err := sock.Recv()
		if err != nil {
			return
		}
		c.mu.Lock()
		cur := c.sock
		recv := c.recvCh
		shutdown := c.shutdown
		c.mu.Unlock()
		if cur != sock {
			// superseded by a reopen; this goroutine's socket is stale.
			return
		}
		select {
		case recv <- frame:
		case <-shutdown:
			return
		}
	}
}

// recvCh is allocated afresh by every Start, before that run's first reopen,
// and reused across the reopen cycles of that run; only the currently-active
// receiveLoop goroutine ever writes to it (guarded by the cur != sock check
// above).
func (c *RpcClient) run() {
	c.mu.Lock()
	recv := c.recvCh
	shutdown := c.shutdown
	done := c.done
	outbound := c.outbound
	c.mu.Unlock()

	defer close(done)

	timer := time.NewTimer(c.heartbeat)
	defer timer.Stop()

	for {
		select {
		case <-shutdown:
			c.mu.Lock()
			if c.sock != nil {
				c.sock.Close()
			}
			c.mu.Unlock()
			return

		case frame := <-outbound:
			c.mu.Lock()
			sock := c.sock
			c.mu.Unlock()
			if sock != nil {
				if err := sock.Send(frame); err != nil {
					c.log.Error().Err(err).Msg("rpcclient: send failed")
				}
			}

		case raw := <-recv:
			c.handleFrame(raw)
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(c.heartbeat)

		case <-timer.C:
			c.tick()
			timer.Reset(c.heartbeat)
		}
	}
}

func (c *RpcClient) tick() {
	c.mu.Lock()
	c.liveness--
	timedOut := c.liveness <= 0
	c.mu.Unlock()

	if timedOut {
		c.transition(func() { c.sm.Event(context.Background(), evHeartbeatTimeout) })
		return
	}
	c.mu.Lock()
	c.sendPing()
	c.mu.Unlock()
}

func (c *RpcClient) handleFrame(raw []byte) {
	msg, err := container.Decode(raw)
	if err != nil {
		c.log.Error().Err(err).Msg("rpcclient: dropping malformed frame")
		return
	}

	c.transition(func() {
		c.liveness = c.livenessMax
		if msg.Pparams != nil && msg.Pparams.KeepaliveTimer > 0 {
			c.heartbeat = time.Duration(msg.Pparams.KeepaliveTimer) * time.Millisecond
		}
		c.sm.Event(context.Background(), evMsgReceived)
	})

	if msg.Type == container.MsgPingAcknowledge {
		return
	}
	c.fireMessage("", msg)
}
