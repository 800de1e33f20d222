package service

import "strings"

// DiscoveryFilter narrows which DNS-SD records a ServiceDiscovery dispatches
// to its registered Services, beyond the base type match (spec §4.8): an
// optional substring match on the instance name and optional equality
// checks on selected TXT records (e.g. "uuid").
type DiscoveryFilter struct {
	// InstanceContains, if non-empty, requires the record's instance name
	// to contain it as a substring.
	InstanceContains string

	// TXTEquals requires every listed key to be present in the record's
	// TXT set with exactly the given value.
	TXTEquals map[string]string
}

// Match reports whether rec satisfies the filter. A zero-value filter
// matches everything.
func (f DiscoveryFilter) Match(rec Record) bool {
	if f.InstanceContains != "" && !strings.Contains(rec.Instance, f.InstanceContains) {
		return false
	}
	for k, v := range f.TXTEquals {
		if rec.TXT[k] != v {
			return false
		}
	}
	return true
}
