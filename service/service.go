// Package service implements Service, ServiceDiscovery, ServiceContainer and
// ServiceDiscoveryFilter (spec §4.8): the client-side bookkeeping an
// endpoint needs to learn its own URI from mDNS/DNS-SD rather than a
// hand-configured address.
package service

import (
	"strings"
	"sync"

	"machinetalk/internal/dispatch"
	"machinetalk/internal/errs"
	"machinetalk/internal/logx"
)

// Record is one DNS-SD record contributing to a Service (spec §4.8).
type Record struct {
	// Instance, ServiceType and Domain are the three parts of the DNS-SD
	// three-label name ("<instance>._<service>._<proto>.<domain>.").
	Instance    string
	ServiceType string // e.g. "_machinekit._tcp"
	Domain      string

	ServerName string // the ".local" hostname the record advertises
	Addr       string // resolved numeric address
	Port       int

	// TXT is the record's parsed key=value TXT segment set (spec §4.8:
	// "service", "uuid", "dsn", and whatever else the record advertises).
	TXT map[string]string
}

// typestring reproduces spec §4.8's "_<base>._<proto>.<domain>." shape.
func (r Record) typestring() string {
	return r.ServiceType + "." + r.Domain + "."
}

// rawDSN is the record's advertised connection string before any ".local"
// rewrite (spec §4.8: "a raw dsn, e.g. tcp://hostname:port").
func (r Record) rawDSN() string {
	if dsn, ok := r.TXT["dsn"]; ok && dsn != "" {
		return dsn
	}
	return r.ServerName
}

// resolvedURI applies spec §4.8's URI resolution rule: if the hostname in
// the raw dsn is a case-insensitive substring of the record's server name,
// rewrite it to the resolved numeric address; otherwise surface the raw dsn
// unchanged. A record with no dsn surfaces its server name unchanged.
func (r Record) resolvedURI() string {
	raw := r.rawDSN()
	if r.TXT["dsn"] != "" && r.ServerName != "" && r.Addr != "" &&
		strings.Contains(strings.ToLower(r.ServerName), strings.ToLower(hostOf(raw))) {
		return strings.Replace(raw, hostOf(raw), r.Addr, 1)
	}
	return raw
}

// hostOf extracts the host portion of a "scheme://host:port" dsn, or
// returns s unchanged if it isn't shaped like one.
func hostOf(s string) string {
	rest := s
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.Index(rest, ":"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// StateListener observes a Service's ready flag flipping (spec §4.8: "the
// first transition of ready fires the corresponding callbacks; idempotent
// events do not fire callbacks").
type StateListener func(ready bool)

// Service is a named, typed collection of current DNS-SD records (spec
// §4.8). Its derived fields are recomputed from the first record on every
// add/update/remove.
type Service struct {
	name string
	typ  string // the TXT "service" value this Service matches against

	mu      sync.Mutex
	records []Record
	ready   bool

	listeners []StateListener
	log       logx.Logger
}

// NewService declares a Service of the given type (matched against a
// record's TXT "service" value) and name (used for logging/diagnostics
// only).
func NewService(name, typ string, log logx.Logger) *Service {
	if log == nil {
		log = logx.NoOp()
	}
	return &Service{name: name, typ: typ, log: log}
}

func (s *Service) Name() string { return s.name }
func (s *Service) Type() string { return s.typ }

// Ready reports whether the service currently has at least one matching
// record.
func (s *Service) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// URI returns the resolved connection string derived from the first current
// record, or an error if there are none (spec §4.8/§7).
func (s *Service) URI() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return "", errs.ErrNoRecords
	}
	return s.records[0].resolvedURI(), nil
}

// UUID returns the first record's "uuid" TXT value, if any.
func (s *Service) UUID() string { return s.txt("uuid") }

// Version returns the first record's "version" TXT value, if any.
func (s *Service) Version() string { return s.txt("version") }

// Host returns the first record's advertised hostname.
func (s *Service) Host() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return ""
	}
	return s.records[0].ServerName
}

func (s *Service) txt(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return ""
	}
	return s.records[0].TXT[key]
}

// matches reports whether rec matches this Service's type per spec §4.8:
// "TXT service value equals the Service's type AND the record's type
// string contains the Service's typestring".
func (s *Service) matches(rec Record, typestring string) bool {
	return rec.TXT["service"] == s.typ && strings.Contains(rec.typestring(), typestring)
}

// OnReadyChanged registers a listener fired on every ready-flag edge.
func (s *Service) OnReadyChanged(f StateListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, f)
}

// add inserts or replaces rec (matched by instance+server name) and
// recomputes ready. Called by ServiceDiscovery on every DNS-SD add/update.
func (s *Service) add(rec Record) {
	s.mu.Lock()
	replaced := false
	for i, r := range s.records {
		if r.Instance == rec.Instance && r.ServerName == rec.ServerName {
			s.records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		s.records = append(s.records, rec)
	}
	s.recomputeLocked()
}

// remove drops rec (matched by instance+server name) and recomputes ready.
func (s *Service) remove(rec Record) {
	s.mu.Lock()
	for i, r := range s.records {
		if r.Instance == rec.Instance && r.ServerName == rec.ServerName {
			s.records = append(s.records[:i], s.records[i+1:]...)
			break
		}
	}
	s.recomputeLocked()
}

// recomputeLocked updates ready and fires listeners on a real transition.
// Called with s.mu held; releases it before firing listeners so a
// reentrant call into the Service's own accessors cannot deadlock.
func (s *Service) recomputeLocked() {
	wasReady := s.ready
	s.ready = len(s.records) > 0
	changed := wasReady != s.ready
	ready := s.ready
	cbs := append([]StateListener(nil), s.listeners...)
	s.mu.Unlock()

	if changed {
		for _, cb := range cbs {
			cb := cb
			dispatch.Safe(s.log, "service.ready", func() { cb(ready) })
		}
	}
}
