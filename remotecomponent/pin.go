// Package remotecomponent implements RemoteComponent and Pin (spec §4.7):
// a client-side mirror of one server-side HAL component, bound and
// incrementally synchronised over a pair of channels.
package remotecomponent

import (
	"sync"

	"machinetalk/halpb"
)

// Pin is a typed, named cell inside a RemoteComponent. It owns its own lock
// protecting value and synced (spec §5).
type Pin struct {
	name      string
	kind      halpb.PinKind
	direction halpb.PinDirection

	mu     sync.Mutex
	handle uint32
	value  halpb.Value
	synced bool

	listeners []func(halpb.Value)
}

// NewPin declares a locally-owned pin with an initial value. It is not
// usable on the wire until its owning RemoteComponent binds and the server
// assigns it a handle.
func NewPin(name string, kind halpb.PinKind, direction halpb.PinDirection, initial halpb.Value) *Pin {
	return &Pin{name: name, kind: kind, direction: direction, value: initial}
}

func (p *Pin) Name() string               { return p.name }
func (p *Pin) Kind() halpb.PinKind        { return p.kind }
func (p *Pin) Direction() halpb.PinDirection { return p.direction }

func (p *Pin) Handle() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

func (p *Pin) Value() halpb.Value {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Synced reports whether the pin's local value is known to match the
// server's (spec glossary: "Sync").
func (p *Pin) Synced() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.synced
}

// OnChange registers a listener fired whenever the pin's value is updated,
// whether locally (a pending write) or from the wire.
func (p *Pin) OnChange(f func(halpb.Value)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, f)
}

// bindHandle records the server-assigned handle from a full update (spec
// §4.7: "captures the server-assigned handle into both the pin and the
// by-handle map").
func (p *Pin) bindHandle(h uint32) {
	p.mu.Lock()
	p.handle = h
	p.mu.Unlock()
}

// applyFromWire sets value from an incoming full or incremental update and
// marks the pin synced. Returns the listeners to fire (copied out so they
// run outside the lock).
func (p *Pin) applyFromWire(v halpb.Value) []func(halpb.Value) {
	p.mu.Lock()
	p.value = v
	p.synced = true
	cbs := append([]func(halpb.Value){}, p.listeners...)
	p.mu.Unlock()
	return cbs
}

// setLocal updates the pin's value from a user write. Returns the new value
// and the value-changed listeners to notify; whether a SET frame is sent is
// decided by the caller (RemoteComponent.SetPin) — the un-synced marking on a pre-sync write is spec §4.7: "the pin's value is
// still updated locally and marked un-synced, but no message is sent".
func (p *Pin) setLocal(v halpb.Value) (halpb.Value, []func(halpb.Value)) {
	p.mu.Lock()
	p.value = v
	p.synced = false
	cbs := append([]func(halpb.Value){}, p.listeners...)
	p.mu.Unlock()
	return v, cbs
}
