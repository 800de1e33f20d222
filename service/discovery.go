package service

import (
	"context"
	"sync"

	"machinetalk/internal/errs"
	"machinetalk/internal/logx"
)

// Discovery starts one or more DNS-SD browsers and dispatches matching
// records to every registered Service (spec §4.8). register/unregister is
// forbidden while discovery is running (spec §7: config-invariant
// violation).
type Discovery struct {
	domain      string
	serviceType string
	filter      DiscoveryFilter
	br          browser

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	services []*Service

	log logx.Logger
}

// NewDiscovery builds a Discovery over the given DNS-SD service type (e.g.
// "_machinekit._tcp") and domain ("local." for multicast, or a unicast
// domain when nameservers are configured).
func NewDiscovery(serviceType, domain string, filter DiscoveryFilter, nameservers []string, log logx.Logger) *Discovery {
	if log == nil {
		log = logx.NoOp()
	}
	return &Discovery{
		domain:      domain,
		serviceType: serviceType,
		filter:      filter,
		br:          newZeroconfBrowser(nameservers, log),
		log:         log,
	}
}

// Register adds svc as a dispatch target. Forbidden while running.
func (d *Discovery) Register(svc *Service) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errs.ErrDiscoveryRunning
	}
	d.services = append(d.services, svc)
	return nil
}

// Unregister drops svc as a dispatch target. Forbidden while running.
func (d *Discovery) Unregister(svc *Service) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errs.ErrDiscoveryRunning
	}
	for i, s := range d.services {
		if s == svc {
			d.services = append(d.services[:i], d.services[i+1:]...)
			break
		}
	}
	return nil
}

// Start begins browsing. No-op if already running.
func (d *Discovery) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	events, err := d.br.Browse(ctx, d.serviceType, d.domain)
	if err != nil {
		cancel()
		d.mu.Unlock()
		return err
	}
	d.running = true
	d.cancel = cancel
	d.done = make(chan struct{})
	services := append([]*Service(nil), d.services...)
	typestring := d.serviceType + "." + d.domain + "."
	d.mu.Unlock()

	go d.run(events, services, typestring)
	return nil
}

// Stop halts browsing. Returns errs.ErrDiscoveryNotRunning if not running.
func (d *Discovery) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return errs.ErrDiscoveryNotRunning
	}
	cancel := d.cancel
	done := d.done
	d.mu.Unlock()

	cancel()
	<-done

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	return nil
}

// Running reports whether discovery is currently browsing.
func (d *Discovery) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Discovery) run(events <-chan Event, services []*Service, typestring string) {
	defer close(d.done)
	for ev := range events {
		if !d.filter.Match(ev.Record) {
			continue
		}
		for _, svc := range services {
			if !svc.matches(ev.Record, typestring) {
				continue
			}
			if ev.Removed {
				svc.remove(ev.Record)
			} else {
				svc.add(ev.Record)
			}
		}
	}
}
