package endpoint

import (
	"sync"

	"machinetalk/channel"
	"machinetalk/container"
	"machinetalk/internal/logx"
	"machinetalk/statuspb"
)

// StatusBase composes one StatusSubscribe channel and owns the merged
// status mirror (spec §4.5). The channel itself already tracks per-topic
// sync state and only reports "up" once every subscribed topic has had a
// full update; StatusBase mirrors that edge as its public `synced` flag and
// applies every payload to the EmcStatus tree.
type StatusBase struct {
	sub    *channel.StatusSubscribe
	status *statuspb.EmcStatus

	mu     sync.Mutex
	synced bool

	syncedCond *sync.Cond

	log logx.Logger
}

// NewStatusBase wraps an already-constructed StatusSubscribe channel, which
// callers configure with AddTopic for every sub-tree they need before
// calling Start.
func NewStatusBase(sub *channel.StatusSubscribe, log logx.Logger) *StatusBase {
	if log == nil {
		log = logx.NoOp()
	}
	s := &StatusBase{sub: sub, status: statuspb.NewEmcStatus(), log: log}
	s.syncedCond = sync.NewCond(&s.mu)

	sub.OnStateChanged(s.onChannelState)
	sub.OnMessageReceived(s.onChannelMessage)
	return s
}

func (s *StatusBase) Start() { s.sub.Start() }
func (s *StatusBase) Stop()  { s.sub.Stop() }
func (s *StatusBase) Wait()  { s.sub.Wait() }

// Status returns the live, self-locking status mirror. Sub-tree reads are
// safe at any time; they simply reflect whatever was last applied.
func (s *StatusBase) Status() *statuspb.EmcStatus { return s.status }

// Synced reports the endpoint's public synced flag (spec §4.5: "up" is
// reached only once every configured topic has a full update).
func (s *StatusBase) Synced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synced
}

// TopicSynced reports per-topic sync state (SPEC_FULL §5 accessor), useful
// when a caller only cares about one sub-tree (e.g. motion) and doesn't want
// to wait on the others.
func (s *StatusBase) TopicSynced(topic statuspb.Topic) bool {
	return s.sub.TopicSynced(string(topic))
}

// WaitSynced blocks until Synced() is true, waking immediately if it
// already is.
func (s *StatusBase) WaitSynced() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.synced {
		s.syncedCond.Wait()
	}
}

func (s *StatusBase) onChannelState(state string) {
	s.mu.Lock()
	wasSynced := s.synced
	s.synced = state == channel.StateUp
	changed := wasSynced != s.synced
	s.mu.Unlock()
	if changed {
		s.syncedCond.Broadcast()
	}
}

func (s *StatusBase) onChannelMessage(topic string, msg *container.Container) {
	if msg.StatusPayload == nil {
		return
	}
	if err := s.status.ApplyTopic(statuspb.Topic(topic), msg.StatusPayload); err != nil {
		s.log.Error().Str("topic", topic).Err(err).Msg("statusbase: failed to apply payload")
	}
}
