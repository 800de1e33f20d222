package channel

import (
	"context"
	"sync"

	"github.com/looplab/fsm"

	"machinetalk/container"
	"machinetalk/internal/logx"
)

// SimpleSubscribe events/callbacks: a two-state (down/up) channel with no
// heartbeat and no sync gate (spec §4.4) — used for the Error and Log
// streams, where a missed message is simply a missed message and liveness is
// not meaningful.
const (
	evSimpleStart = "start"
	evSimpleStop  = "stop"
)

const (
	onSimpleEnterDown = "enter_" + StateDown
	onSimpleEnterUp   = "enter_" + StateUp
)

// SimpleSubscribe is a SUB-socket channel that goes "up" as soon as the
// socket is dialled, with no liveness tracking and no topic-sync gate.
type SimpleSubscribe struct {
	uri    string
	topics []string

	mu sync.Mutex
	sm *fsm.FSM
	sock subSocket

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

// NewSimpleSubscribe builds a SimpleSubscribe bound to uri, subscribed to
// every topic in topics for its whole lifetime (spec §4.4: topics are fixed
// at construction, unlike StatusSubscribe's dynamic AddTopic/RemoveTopic).
func NewSimpleSubscribe(uri string, topics []string, log logx.Logger) *SimpleSubscribe {
	if log == nil {
		log = logx.NoOp()
	}
	s := &SimpleSubscribe{
		uri:       uri,
		topics:    append([]string(nil), topics...),
		listeners: newListeners(log),
		log:       log,
	}
	s.sm = fsm.NewFSM(
		StateDown,
		fsm.Events{
			{Name: evSimpleStart, Src: []string{StateDown}, Dst: StateUp},
			{Name: evSimpleStop, Src: []string{StateDown, StateUp}, Dst: StateDown},
		},
		fsm.Callbacks{
			onSimpleEnterDown: func(ctx context.Context, e *fsm.Event) { s.pendingState = StateDown },
			onSimpleEnterUp:   func(ctx context.Context, e *fsm.Event) { s.pendingState = StateUp },
		},
	)
	return s
}

func (s *SimpleSubscribe) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sm.Current()
}

// transition runs fn (which must call s.sm.Event, directly or not at all)
// with mu held, then fires the resulting state-change listener, if any,
// after releasing mu — so a listener calling back into State()/Stop() from
// its own goroutine never deadlocks (spec §5).
func (s *SimpleSubscribe) transition(fn func()) {
	s.mu.Lock()
	fn()
	state := s.pendingState
	s.pendingState = ""
	s.mu.Unlock()

	if state != "" {
		s.fireState(state)
	}
}

func (s *SimpleSubscribe) Start() {
	s.mu.Lock()
	if s.sm.Current() != StateDown {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	var sock subSocket
	s.transition(func() {
		s.shutdown = make(chan struct{})
		s.done = make(chan struct{})
		s.stopOnce = &sync.Once{}
		s.recvCh = make(chan subFrame, 32)

		ctx := context.Background()
		sock = newSubSocket(ctx)
		if err := sock.Dial(s.uri); err != nil {
			s.log.Error().Str("uri", s.uri).Err(err).Msg("simplesubscribe: dial failed")
		}
		for _, t := range s.topics {
			sock.Subscribe(t)
		}
		s.sock = sock

		s.sm.Event(context.Background(), evSimpleStart)
	})

	go s.receiveLoop(sock)
	go s.run()
}

func (s *SimpleSubscribe) Stop() {
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
			s.transition(func() { s.sm.Event(context.Background(), evSimpleStop) })
		}()
	})
}

func (s *SimpleSubscribe) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *SimpleSubscribe) receiveLoop(sock subSocket) {
	for {
		topic, frame, err := sock.Recv()
		if err != nil {
			return
		}
		s.mu.Lock()
		recv := s.recvCh
		shutdown := s.shutdown
		s.mu.Unlock()
		select {
		case recv <- subFrame{topic: topic, frame: frame}:
		case <-shutdown:
			return
		}
	}
}

func (s *SimpleSubscribe) run() {
	s.mu.Lock()
	recv := s.recvCh
	shutdown := s.shutdown
	done := s.done
	sock := s.sock
	s.mu.Unlock()

	defer close(done)
	defer sock.Close()

	for {
		select {
		case <-shutdown:
			return
		case f := <-recv:
			msg, err := container.Decode(f.frame)
			if err != nil {
				s.log.Error().Err(err).Str("topic", f.topic).Msg("simplesubscribe: dropping malformed frame")
				continue
			}
			s.fireMessage(f.topic, msg)
		}
	}
}
