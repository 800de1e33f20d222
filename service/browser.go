//go:generate mockgen -source=browser.go -destination=browser_mock.go -package=service

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/grandcat/zeroconf"

	"machinetalk/internal/logx"
)

// Event is one DNS-SD record observation a browser delivers.
type Event struct {
	Record  Record
	Removed bool
}

// browser abstracts DNS-SD record discovery so ServiceDiscovery can be
// exercised against a fake in tests (mirrors channel/transport.go's
// interface-for-testability shape).
type browser interface {
	Browse(ctx context.Context, serviceType, domain string) (<-chan Event, error)
}

// zeroconfBrowser resolves records over multicast DNS-SD via
// github.com/grandcat/zeroconf (spec §4.8). Configured nameservers are
// logged but not used: there is no unicast DNS-SD resolution.
type zeroconfBrowser struct {
	nameservers []string
	log         logx.Logger
}

func newZeroconfBrowser(nameservers []string, log logx.Logger) *zeroconfBrowser {
	return &zeroconfBrowser{nameservers: nameservers, log: log}
}

// Browse starts one resolver and streams every ServiceEntry it observes as
// an Event. zeroconf has no wire-level "goodbye" (record removal) support,
// so every Event this browser emits has Removed == false; ServiceDiscovery
// relies on re-announcement (add/update) only, a known narrowing from the
// DNS-SD model spec §4.8 describes (see DESIGN.md).
func (b *zeroconfBrowser) Browse(ctx context.Context, serviceType, domain string) (<-chan Event, error) {
	var opts []zeroconf.ClientOption
	if len(b.nameservers) > 0 {
		// grandcat/zeroconf has no unicast-nameserver option; the nameserver
		// list is recorded for callers that want to dial those resolvers
		// directly (e.g. via a custom net.Resolver), not consumed here.
		b.log.Debug().Str("nameservers", strings.Join(b.nameservers, ",")).
			Msg("service: unicast nameservers configured but not used by the multicast browser")
	}
	resolver, err := zeroconf.NewResolver(opts...)
	if err != nil {
		return nil, fmt.Errorf("service: new resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 32)
	out := make(chan Event, 32)

	if err := resolver.Browse(ctx, serviceType, domain, entries); err != nil {
		return nil, fmt.Errorf("service: browse %s.%s: %w", serviceType, domain, err)
	}

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				rec := recordFromEntry(serviceType, domain, entry)
				select {
				case out <- Event{Record: rec}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func recordFromEntry(serviceType, domain string, entry *zeroconf.ServiceEntry) Record {
	txt := make(map[string]string, len(entry.Text))
	for _, kv := range entry.Text {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			txt[kv[:i]] = kv[i+1:]
		}
	}

	addr := ""
	if len(entry.AddrIPv4) > 0 {
		addr = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		addr = entry.AddrIPv6[0].String()
	}

	return Record{
		Instance:    entry.Instance,
		ServiceType: serviceType,
		Domain:      domain,
		ServerName:  entry.HostName,
		Addr:        addr,
		Port:        entry.Port,
		TXT:         txt,
	}
}
