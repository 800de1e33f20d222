package channel

import (
	"context"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"machinetalk/container"
	"machinetalk/internal/logx"
)

// StatusSubscribe adds a "syncing" state in front of "up": the channel only
// reports itself connected once a full update has been observed on every
// topic the caller subscribed to (spec §4.3's "sync gate").
const (
	StateSyncing = "syncing"
)

const (
	evSubStart   = "start"
	evSubStop    = "stop"
	evFirstTopic = "first_topic" // not in the event table; Start alone moves down -> trying and dials
	evSynced     = "synced"      // syncing -> up: every subscribed topic has a full update
	evDesynced   = "desynced"    // up -> syncing: a new topic was added after going up
	evSubTimeout = "heartbeat_timeout"
)

const (
	onSubBeforeTimeout = "before_" + evSubTimeout
	onSubEnterDown     = "enter_" + StateDown
	onSubEnterTrying   = "enter_" + StateTrying
	onSubEnterSyncing  = "enter_" + StateSyncing
	onSubEnterUp       = "enter_" + StateUp
)

// StatusSubscribe is a SUB-socket channel with per-topic full/incremental
// update tracking and no outbound liveness ping of its own: liveness is
// reset by every frame the server sends, full update or not (spec §4.3).
type StatusSubscribe struct {
	uri string

	mu       sync.Mutex
	sm       *fsm.FSM
	sock     subSocket
	topics   map[string]bool // topic -> has received at least one full update
	liveness int
	// livenessMax is the value liveness resets to on reopen and on every
	// received frame; defaultLiveness unless overridden by WithLiveness.
	livenessMax int
	heartbeat time.Duration
	fullUpdateType container.MsgType

	recvCh   chan subFrame
	shutdown chan struct{}
	done     chan struct{}
	stopOnce *sync.Once

	// pendingState is set by an fsm.Callback (running with mu held) and
	// drained by transition() after mu is released, so fireState never runs
	// while mu is locked (spec §5's reentrancy requirement).
	pendingState string

	*listeners
	log logx.Logger
}

type subFrame struct {
	topic string
	frame []byte
}

// NewStatusSubscribe builds a StatusSubscribe bound to uri. Topics can be
// added before or after Start; with no topics the sync gate passes on the
// first received frame. fullUpdateType is the
// container type that marks a topic's first full update (MsgEmcStatusFullUpdate
// for the status endpoints, MsgHalrcompFullUpdate for a RemoteComponent's
// halrcomp channel; spec §4.3 and §4.7 share the same sync-gate shape with a
// different wire type for "this is a full snapshot").
// opts overrides the default heartbeat interval and liveness count, e.g.
// from a loaded config.Config.
func NewStatusSubscribe(uri string, fullUpdateType container.MsgType, log logx.Logger, opts ...Option) *StatusSubscribe {
	if log == nil {
		log = logx.NoOp()
	}
	hb := applyOptions(opts)
	s := &StatusSubscribe{
		uri:             uri,
		topics:          make(map[string]bool),
		heartbeat:       hb.heartbeat,
		livenessMax:     hb.liveness,
		fullUpdateType:  fullUpdateType,
		listeners:       newListeners(log),
		log:             log,
	}
	s.sm = fsm.NewFSM(
		StateDown,
		fsm.Events{
			{Name: evSubStart, Src: []string{StateDown}, Dst: StateTrying},
			{Name: evSynced, Src: []string{StateTrying, StateSyncing}, Dst: StateUp},
			{Name: evDesynced, Src: []string{StateUp}, Dst: StateSyncing},
			{Name: evDesynced, Src: []string{StateTrying}, Dst: StateTrying},
			{Name: evSubTimeout, Src: []string{StateTrying, StateSyncing, StateUp}, Dst: StateTrying},
			{Name: evSubStop, Src: []string{StateDown, StateTrying, StateSyncing, StateUp}, Dst: StateDown},
		},
		fsm.Callbacks{
			onSubBeforeTimeout: func(ctx context.Context, e *fsm.Event) { s.reopen() },
			onSubEnterDown:     func(ctx context.Context, e *fsm.Event) { s.pendingState = StateDown },
			onSubEnterTrying:   func(ctx context.Context, e *fsm.Event) { s.pendingState = StateTrying },
			onSubEnterSyncing:  func(ctx context.Context, e *fsm.Event) { s.pendingState = StateSyncing },
			onSubEnterUp:       func(ctx context.Context, e *fsm.Event) { s.pendingState = StateUp },
		},
	)
	return s
}

func (s *StatusSubscribe) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sm.Current()
}

// transition runs fn (which must call s.sm.Event, directly or not at all)
// with mu held, then fires the resulting state-change listener, if any,
// after releasing mu — so a listener calling back into State()/Stop() from
// its own goroutine never deadlocks (spec §5).
func (s *StatusSubscribe) transition(fn func()) {
	s.mu.Lock()
	fn()
	state := s.pendingState
	s.pendingState = ""
	s.mu.Unlock()

	if state != "" {
		s.fireState(state)
	}
}

// TopicSynced reports whether topic has received at least one full update
// since the channel last went down (spec SPEC_FULL §5 accessor).
func (s *StatusSubscribe) TopicSynced(topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topics[topic]
}

// AddTopic subscribes to topic. If the channel is already up, this drives it
// back to "syncing" until topic's first full update arrives (spec §4.3).
func (s *StatusSubscribe) AddTopic(topic string) {
	s.transition(func() {
		if _, exists := s.topics[topic]; exists {
			return
		}
		s.topics[topic] = false
		if s.sock != nil {
			s.sock.Subscribe(topic)
		}
		if s.sm.Current() == StateUp {
			s.sm.Event(context.Background(), evDesynced)
		}
	})
}

// RemoveTopic unsubscribes from topic and forgets its sync state. Dropping
// the last outstanding unsynced topic can complete the sync gate.
func (s *StatusSubscribe) RemoveTopic(topic string) {
	s.transition(func() {
		delete(s.topics, topic)
		if s.sock != nil {
			s.sock.Unsubscribe(topic)
		}
		s.checkSyncedLocked()
	})
}

// ClearTopics drops every subscription.
func (s *StatusSubscribe) ClearTopics() {
	s.mu.Lock()
	for t := range s.topics {
		if s.sock != nil {
			s.sock.Unsubscribe(t)
		}
	}
	s.topics = make(map[string]bool)
	s.mu.Unlock()
}

func (s *StatusSubscribe) reopen() {
	if s.sock != nil {
		s.sock.Close()
	}
	ctx := context.Background()
	sock := newSubSocket(ctx)
	if err := sock.Dial(s.uri); err != nil {
		s.log.Error().Str("uri", s.uri).Err(err).Msg("statussubscribe: dial failed")
	}
	for t := range s.topics {
		s.topics[t] = false
		sock.Subscribe(t)
	}
	s.sock = sock
	s.liveness = s.livenessMax
	go s.receiveLoop(sock)
}

// checkSyncedLocked fires the synced event once every known topic has had at
// least one full update (spec §4.3's "all topics reporting, not just one").
// Called with s.mu held.
func (s *StatusSubscribe) checkSyncedLocked() {
	if s.sm.Current() == StateDown {
		return
	}
	for _, synced := range s.topics {
		if !synced {
			return
		}
	}
	if s.sm.Current() != StateUp {
		s.sm.Event(context.Background(), evSynced)
	}
}

func (s *StatusSubscribe) Start() {
	s.mu.Lock()
	if s.sm.Current() != StateDown {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.transition(func() {
		s.shutdown = make(chan struct{})
		s.done = make(chan struct{})
		s.stopOnce = &sync.Once{}
		s.recvCh = make(chan subFrame, 32)
		s.sm.Event(context.Background(), evSubStart)
		s.reopen()
	})
	go s.run()
}

func (s *StatusSubscribe) Stop() {
	s.mu.Lock()
	if s.sm.Current() == StateDown {
		s.mu.Unlock()
		return
	}
	once := s.stopOnce
	shutdown := s.shutdown
	done := s.done
	s.mu.Unlock()

	once.Do(func() {
		close(shutdown)
		go func() {
			<-done
			s.transition(func() { s.sm.Event(context.Background(), evSubStop) })
		}()
	})
}

func (s *StatusSubscribe) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *StatusSubscribe) receiveLoop(sock subSocket) {
	for {
		topic, frame, err := sock.Recv()
		if err != nil {
			return
		}
		s.mu.Lock()
		cur := s.sock
		recv := s.recvCh
		shutdown := s.shutdown
		s.mu.Unlock()
		if cur != sock {
			return
		}
		select {
		case recv <- subFrame{topic: topic, frame: frame}:
		case <-shutdown:
			return
		}
	}
}

func (s *StatusSubscribe) run() {
	s.mu.Lock()
	recv := s.recvCh
	shutdown := s.shutdown
	done := s.done
	s.mu.Unlock()

	defer close(done)

	timer := time.NewTimer(s.heartbeat)
	defer timer.Stop()

	for {
		select {
		case <-shutdown:
			s.mu.Lock()
			if s.sock != nil {
				s.sock.Close()
			}
			s.mu.Unlock()
			return

		case f := <-recv:
			s.handleFrame(f.topic, f.frame)
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(s.heartbeat)

		case <-timer.C:
			s.transition(func() {
				s.liveness--
				if s.liveness <= 0 {
					s.sm.Event(context.Background(), evSubTimeout)
				}
			})
			timer.Reset(s.heartbeat)
		}
	}
}

func (s *StatusSubscribe) handleFrame(topic string, raw []byte) {
	msg, err := container.Decode(raw)
	if err != nil {
		s.log.Error().Err(err).Str("topic", topic).Msg("statussubscribe: dropping malformed frame")
		return
	}

	s.transition(func() {
		s.liveness = s.livenessMax
		if msg.Pparams != nil && msg.Pparams.KeepaliveTimer > 0 {
			s.heartbeat = time.Duration(msg.Pparams.KeepaliveTimer) * time.Millisecond
		}
		if msg.Type == s.fullUpdateType {
			if _, ok := s.topics[topic]; ok {
				s.topics[topic] = true
			}
		}
		s.checkSyncedLocked()
	})

	s.fireMessage(topic, msg)
}
