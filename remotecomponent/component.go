package remotecomponent

import (
	"context"
	"strings"
	"sync"

	"github.com/looplab/fsm"

	"machinetalk/channel"
	"machinetalk/container"
	"machinetalk/halpb"
	"machinetalk/internal/dispatch"
	"machinetalk/internal/errs"
	"machinetalk/internal/logx"
)

// Composite FSM states (spec §4.7's table).
const (
	StateDown    = "down"
	StateTrying  = "trying"
	StateBind    = "bind"
	StateBinding = "binding"
	StateSyncing = "syncing"
	StateSync    = "sync"
	StateSynced  = "synced"
	StateError   = "error"
)

const (
	evStart             = "start"
	evStop              = "stop"
	evHalrcmdUp         = "halrcmd_up"
	evHalrcmdTrying     = "halrcmd_trying"
	evBindSent          = "bind_sent"
	evNoBind            = "no_bind"
	evBindConfirm       = "bind_confirm"
	evBindReject        = "bind_reject"
	evHalrcompUp        = "halrcomp_up"
	evHalrcompTrying    = "halrcomp_trying"
	evFullUpdateApplied = "full_update_applied"
	evSetReject         = "set_reject"
)

const (
	onEnterBind    = "enter_" + StateBind
	onEnterBinding = "enter_" + StateBinding
	onEnterSyncing = "enter_" + StateSyncing
	onEnterSync    = "enter_" + StateSync
	onEnterSynced  = "enter_" + StateSynced
	onEnterError   = "enter_" + StateError
	onEnterDown    = "enter_" + StateDown
	onEnterTrying  = "enter_" + StateTrying
)

// StateListener observes RemoteComponent's composite FSM.
type StateListener func(state string)

// RemoteComponent is a client-side mirror of one server-side HAL component
// (spec §4.7). It composes a halrcmd RpcClient (bind requests, SET frames)
// and a halrcomp StatusSubscribe-shaped channel (full/incremental pin
// updates), and owns a set of locally-declared Pin objects.
//
// Locking: fsmMu serializes every sm.Current()/sm.Event() call, including
// the cascaded Event calls an fsm.Callback fires synchronously (e.g. "bind"
// immediately deciding "bind_sent" or "no_bind"). fsm.Callbacks therefore
// never re-lock fsmMu and never invoke a user-supplied listener directly;
// they only queue the state name into pendingStates, which the
// originating entry-point method drains and announces *after* releasing
// fsmMu. This is what lets a listener call Stop() (or anything else that
// locks fsmMu) on its own RemoteComponent without deadlocking (spec §5).
// dataMu is a separate, narrower lock for pins/byHandle/errorString/the
// listener tables themselves; it is never held while a listener runs.
type RemoteComponent struct {
	name     string
	noBind   bool
	halrcmd  *channel.RpcClient
	halrcomp *channel.StatusSubscribe

	fsmMu         sync.Mutex
	sm            *fsm.FSM
	pendingStates []string

	dataMu      sync.Mutex
	pins        map[string]*Pin
	byHandle    map[uint32]*Pin
	errorString string

	stateListeners   []StateListener
	timeoutListeners []func()

	log logx.Logger
}

// New builds a RemoteComponent named name, bound to halrcmdURI (DEALER) and
// halrcompURI (SUB). noBind skips the bind handshake and goes straight to
// syncing, for attaching to a component that is known to already exist
// (spec §4.7). identity defaults to the spec §6 "<hostname>-<uuid>" DEALER
// identity when empty. opts overrides both channels' default
// heartbeat/liveness, e.g. cfg.ChannelOptions() off a loaded config.Config.
func New(name, halrcmdURI, halrcompURI, identity string, noBind bool, log logx.Logger, opts ...channel.Option) *RemoteComponent {
	if log == nil {
		log = logx.NoOp()
	}
	rc := &RemoteComponent{
		name:     name,
		noBind:   noBind,
		halrcmd:  channel.NewRpcClient(halrcmdURI, identity, log, opts...),
		halrcomp: channel.NewStatusSubscribe(halrcompURI, container.MsgHalrcompFullUpdate, log, opts...),
		pins:     make(map[string]*Pin),
		byHandle: make(map[uint32]*Pin),
		log:      log,
	}
	rc.halrcomp.AddTopic(name)

	rc.sm = fsm.NewFSM(
		StateDown,
		fsm.Events{
			{Name: evStart, Src: []string{StateDown}, Dst: StateTrying},
			{Name: evHalrcmdUp, Src: []string{StateTrying}, Dst: StateBind},
			{Name: evBindSent, Src: []string{StateBind}, Dst: StateBinding},
			{Name: evNoBind, Src: []string{StateBind}, Dst: StateSyncing},
			{Name: evBindConfirm, Src: []string{StateBinding}, Dst: StateSyncing},
			{Name: evBindReject, Src: []string{StateBinding}, Dst: StateError},
			{Name: evHalrcompUp, Src: []string{StateSyncing}, Dst: StateSync},
			{Name: evFullUpdateApplied, Src: []string{StateSync}, Dst: StateSynced},
			{Name: evSetReject, Src: []string{StateSynced}, Dst: StateError},
			{Name: evHalrcmdTrying, Src: []string{StateBind, StateBinding, StateSyncing, StateSync, StateSynced}, Dst: StateTrying},
			{Name: evHalrcompTrying, Src: []string{StateSync, StateSynced}, Dst: StateSyncing},
			{Name: evStop, Src: []string{StateDown, StateTrying, StateBind, StateBinding, StateSyncing, StateSync, StateSynced, StateError}, Dst: StateDown},
		},
		fsm.Callbacks{
			onEnterBind: func(ctx context.Context, e *fsm.Event) {
				rc.queueState(StateBind)
				if rc.noBind {
					rc.sm.Event(ctx, evNoBind)
					return
				}
				rc.sendBind()
				rc.sm.Event(ctx, evBindSent)
			},
			onEnterBinding: func(ctx context.Context, e *fsm.Event) { rc.queueState(StateBinding) },
			onEnterSyncing: func(ctx context.Context, e *fsm.Event) {
				rc.markPinsUnsynced()
				rc.halrcomp.Start()
				rc.queueState(StateSyncing)
			},
			onEnterSync:   func(ctx context.Context, e *fsm.Event) { rc.queueState(StateSync) },
			onEnterSynced: func(ctx context.Context, e *fsm.Event) { rc.queueState(StateSynced) },
			onEnterTrying: func(ctx context.Context, e *fsm.Event) {
				rc.halrcomp.Stop()
				rc.markPinsUnsynced()
				rc.queueState(StateTrying)
			},
			onEnterError: func(ctx context.Context, e *fsm.Event) {
				rc.halrcmd.Stop()
				rc.halrcomp.Stop()
				rc.queueState(StateError)
			},
			onEnterDown: func(ctx context.Context, e *fsm.Event) { rc.queueState(StateDown) },
		},
	)

	rc.halrcmd.OnStateChanged(rc.onHalrcmdState)
	rc.halrcmd.OnMessageReceived(rc.onHalrcmdMessage)
	rc.halrcomp.OnStateChanged(rc.onHalrcompState)
	rc.halrcomp.OnMessageReceived(rc.onHalrcompMessage)
	return rc
}

// queueState is called only from within an fsm.Callback, i.e. only while
// fsmMu is already held by the entry-point method that triggered the
// transition. It must never lock anything.
func (rc *RemoteComponent) queueState(state string) {
	rc.pendingStates = append(rc.pendingStates, state)
}

// transition runs fn (which reads/fires sm events) under fsmMu, then
// announces every state queued during that call after releasing the lock.
func (rc *RemoteComponent) transition(fn func()) {
	rc.fsmMu.Lock()
	fn()
	pending := rc.pendingStates
	rc.pendingStates = nil
	rc.fsmMu.Unlock()

	for _, st := range pending {
		rc.fireState(st)
	}
}

func (rc *RemoteComponent) markPinsUnsynced() {
	rc.dataMu.Lock()
	pins := make([]*Pin, 0, len(rc.pins))
	for _, p := range rc.pins {
		pins = append(pins, p)
	}
	rc.dataMu.Unlock()
	for _, p := range pins {
		p.mu.Lock()
		p.synced = false
		p.mu.Unlock()
	}
}

// DeclarePin registers a locally-owned pin. Must be called before Start.
func (rc *RemoteComponent) DeclarePin(p *Pin) {
	rc.dataMu.Lock()
	defer rc.dataMu.Unlock()
	rc.pins[p.name] = p
}

func (rc *RemoteComponent) Pin(name string) (*Pin, error) {
	rc.dataMu.Lock()
	defer rc.dataMu.Unlock()
	p, ok := rc.pins[name]
	if !ok {
		return nil, errs.ErrPinNotFound
	}
	return p, nil
}

func (rc *RemoteComponent) State() string {
	rc.fsmMu.Lock()
	defer rc.fsmMu.Unlock()
	return rc.sm.Current()
}

func (rc *RemoteComponent) ErrorString() string {
	rc.dataMu.Lock()
	defer rc.dataMu.Unlock()
	return rc.errorString
}

func (rc *RemoteComponent) setErrorString(s string) {
	rc.dataMu.Lock()
	rc.errorString = s
	rc.dataMu.Unlock()
}

func (rc *RemoteComponent) OnStateChanged(f StateListener) {
	rc.dataMu.Lock()
	defer rc.dataMu.Unlock()
	rc.stateListeners = append(rc.stateListeners, f)
}

// OnTimeout registers a listener for the user-visible timeout signal raised
// when a synced component loses its halrcomp connection (spec §4.7).
func (rc *RemoteComponent) OnTimeout(f func()) {
	rc.dataMu.Lock()
	defer rc.dataMu.Unlock()
	rc.timeoutListeners = append(rc.timeoutListeners, f)
}

func (rc *RemoteComponent) fireState(state string) {
	rc.dataMu.Lock()
	cbs := append([]StateListener(nil), rc.stateListeners...)
	rc.dataMu.Unlock()
	for _, cb := range cbs {
		cb := cb
		dispatch.Safe(rc.log, "remotecomponent.state", func() { cb(state) })
	}
}

func (rc *RemoteComponent) fireTimeout() {
	rc.dataMu.Lock()
	cbs := append([]func(){}, rc.timeoutListeners...)
	rc.dataMu.Unlock()
	for _, cb := range cbs {
		cb := cb
		dispatch.Safe(rc.log, "remotecomponent.timeout", func() { cb() })
	}
}

func (rc *RemoteComponent) Start() {
	rc.transition(func() {
		if rc.sm.Current() == StateDown {
			rc.sm.Event(context.Background(), evStart)
		}
	})
	rc.halrcmd.Start()
}

func (rc *RemoteComponent) Stop() {
	rc.halrcmd.Stop()
	rc.halrcomp.Stop()
	rc.transition(func() {
		if rc.sm.Current() != StateDown {
			rc.sm.Event(context.Background(), evStop)
		}
	})
}

func (rc *RemoteComponent) sendBind() {
	rc.dataMu.Lock()
	desc := &halpb.ComponentDescriptor{Name: rc.name}
	for _, p := range rc.pins {
		desc.Pins = append(desc.Pins, halpb.PinDescriptor{
			Name:      p.name,
			Kind:      p.kind,
			Direction: p.direction,
			Value:     p.Value(),
		})
	}
	rc.dataMu.Unlock()
	rc.halrcmd.Send(container.MsgHalrcompBind, &container.Container{HalComponent: desc})
}

func (rc *RemoteComponent) onHalrcmdState(state string) {
	switch state {
	case channel.StateUp:
		rc.transition(func() {
			if rc.sm.Current() == StateTrying {
				rc.sm.Event(context.Background(), evHalrcmdUp)
			}
		})
	case channel.StateTrying:
		rc.transition(func() {
			switch rc.sm.Current() {
			case StateBind, StateBinding, StateSyncing, StateSync, StateSynced:
				rc.sm.Event(context.Background(), evHalrcmdTrying)
			}
		})
	}
}

func (rc *RemoteComponent) onHalrcmdMessage(_ string, msg *container.Container) {
	switch msg.Type {
	case container.MsgHalrcompBindConfirm:
		rc.transition(func() {
			if rc.sm.Current() == StateBinding {
				rc.sm.Event(context.Background(), evBindConfirm)
			}
		})
	case container.MsgHalrcompBindReject:
		rc.setErrorString(strings.Join(msg.Note, "\n"))
		rc.transition(func() {
			if rc.sm.Current() == StateBinding {
				rc.sm.Event(context.Background(), evBindReject)
			}
		})
	case container.MsgHalrcompSetReject:
		rc.setErrorString(strings.Join(msg.Note, "\n"))
		rc.transition(func() {
			if rc.sm.Current() == StateSynced {
				rc.sm.Event(context.Background(), evSetReject)
			}
		})
	}
}

func (rc *RemoteComponent) onHalrcompState(state string) {
	switch state {
	case channel.StateUp:
		rc.transition(func() {
			if rc.sm.Current() == StateSyncing {
				rc.sm.Event(context.Background(), evHalrcompUp)
			}
		})
	case channel.StateTrying:
		var wasSynced bool
		rc.transition(func() {
			wasSynced = rc.sm.Current() == StateSynced
			switch rc.sm.Current() {
			case StateSync, StateSynced:
				rc.sm.Event(context.Background(), evHalrcompTrying)
			}
		})
		if wasSynced {
			rc.fireTimeout()
		}
	}
}

func (rc *RemoteComponent) onHalrcompMessage(_ string, msg *container.Container) {
	switch msg.Type {
	case container.MsgHalrcompFullUpdate:
		rc.applyFullUpdate(msg)
	case container.MsgHalrcompIncrementalUpdate:
		rc.applyIncrementalUpdate(msg)
	}
}

// applyFullUpdate walks every pin entry, strips the "<component>." prefix if
// present, binds the handle, applies the value, and finally fires
// full_update_applied once every entry has been applied (spec §4.7).
func (rc *RemoteComponent) applyFullUpdate(msg *container.Container) {
	for _, pu := range msg.HalPins {
		name := strings.TrimPrefix(pu.Name, rc.name+".")
		rc.dataMu.Lock()
		p, ok := rc.pins[name]
		rc.dataMu.Unlock()
		if !ok {
			rc.log.Error().Str("pin", name).Msg("remotecomponent: full update for unknown pin")
			continue
		}
		p.bindHandle(pu.Handle)
		rc.dataMu.Lock()
		rc.byHandle[pu.Handle] = p
		rc.dataMu.Unlock()
		cbs := p.applyFromWire(pu.Value)
		for _, cb := range cbs {
			cb := cb
			v := pu.Value
			dispatch.Safe(rc.log, "pin.change", func() { cb(v) })
		}
	}

	rc.transition(func() {
		if rc.sm.Current() == StateSync {
			rc.sm.Event(context.Background(), evFullUpdateApplied)
		}
	})
}

// applyIncrementalUpdate addresses a pin by handle only (spec §4.7: "Name
// only populated on full updates").
func (rc *RemoteComponent) applyIncrementalUpdate(msg *container.Container) {
	for _, pu := range msg.HalPins {
		rc.dataMu.Lock()
		p, ok := rc.byHandle[pu.Handle]
		rc.dataMu.Unlock()
		if !ok {
			continue
		}
		cbs := p.applyFromWire(pu.Value)
		for _, cb := range cbs {
			cb := cb
			v := pu.Value
			dispatch.Safe(rc.log, "pin.change", func() { cb(v) })
		}
	}
}

// SetPin writes a new value to a locally-owned pin. Writes to "in" pins are
// silently dropped. Writes issued before the component is synced still
// update the pin locally (marked un-synced) but never reach the wire (spec
// §4.7).
func (rc *RemoteComponent) SetPin(name string, v halpb.Value) error {
	rc.dataMu.Lock()
	p, ok := rc.pins[name]
	rc.dataMu.Unlock()
	if !ok {
		return errs.ErrPinNotFound
	}
	if p.direction == halpb.PinIn {
		return errs.ErrPinDirection
	}

	synced := rc.State() == StateSynced

	newVal, cbs := p.setLocal(v)
	for _, cb := range cbs {
		cb := cb
		dispatch.Safe(rc.log, "pin.change", func() { cb(newVal) })
	}
	if !synced {
		return nil
	}

	update := halpb.PinUpdate{Handle: p.Handle(), Value: newVal}
	return rc.halrcmd.Send(container.MsgHalrcompSet, &container.Container{HalPins: []halpb.PinUpdate{update}})
}
