package service

import (
	"sync"

	"machinetalk/internal/dispatch"
	"machinetalk/internal/logx"
)

// Container is a bag of Services whose ServicesReady flag is the logical AND
// over every member's Ready flag (spec §4.8). Endpoints subscribe to the
// ready-changed edge and use it as their one "turn me on / off" signal.
type Container struct {
	mu       sync.Mutex
	services []*Service
	ready    bool

	listeners []StateListener
	log       logx.Logger
}

// NewContainer builds an empty Container.
func NewContainer(log logx.Logger) *Container {
	if log == nil {
		log = logx.NoOp()
	}
	return &Container{log: log}
}

// Add registers svc as a member and wires its ready-changed edge into the
// container's AND recomputation.
func (c *Container) Add(svc *Service) {
	c.mu.Lock()
	c.services = append(c.services, svc)
	c.mu.Unlock()

	svc.OnReadyChanged(func(bool) { c.recompute() })
	c.recompute()
}

// Services returns the container's current members.
func (c *Container) Services() []*Service {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Service(nil), c.services...)
}

// ServicesReady reports the logical AND over every member's Ready flag. An
// empty container is never ready (spec §4.8: the AND over zero members
// would vacuously be true, but an endpoint with nothing to wait on should
// not fire "on").
func (c *Container) ServicesReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// OnServicesReadyChanged registers a listener fired on every AND-flag edge.
func (c *Container) OnServicesReadyChanged(f StateListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, f)
}

func (c *Container) recompute() {
	c.mu.Lock()
	all := len(c.services) > 0
	for _, svc := range c.services {
		if !svc.Ready() {
			all = false
			break
		}
	}
	wasReady := c.ready
	c.ready = all
	changed := wasReady != c.ready
	ready := c.ready
	cbs := append([]StateListener(nil), c.listeners...)
	c.mu.Unlock()

	if changed {
		for _, cb := range cbs {
			cb := cb
			dispatch.Safe(c.log, "servicecontainer.ready", func() { cb(ready) })
		}
	}
}
