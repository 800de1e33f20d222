package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machinetalk/internal/errs"
)

func Test_ResolvedURI_RewritesLocalHostname(t *testing.T) {
	rec := Record{
		ServerName: "tormach-pathpilot.local.",
		Addr:       "192.168.1.50",
		TXT:        map[string]string{"dsn": "tcp://tormach-pathpilot.local:5001"},
	}
	assert.Equal(t, "tcp://192.168.1.50:5001", rec.resolvedURI())
}

func Test_ResolvedURI_PassesThroughNonLocalDSN(t *testing.T) {
	rec := Record{
		ServerName: "tormach-pathpilot.local.",
		Addr:       "192.168.1.50",
		TXT:        map[string]string{"dsn": "tcp://10.0.0.9:5001"},
	}
	assert.Equal(t, "tcp://10.0.0.9:5001", rec.resolvedURI())
}

func Test_ResolvedURI_FallsBackToServerName(t *testing.T) {
	rec := Record{ServerName: "tormach-pathpilot.local.", Addr: "192.168.1.50"}
	assert.Equal(t, "tormach-pathpilot.local.", rec.resolvedURI())
}

func Test_Service_MatchesRequiresTypeAndTypestring(t *testing.T) {
	svc := NewService("status", "status", nil)
	typestring := "_machinekit._tcp.local."

	match := Record{
		ServiceType: "_machinekit._tcp",
		Domain:      "local.",
		TXT:         map[string]string{"service": "status"},
	}
	assert.True(t, svc.matches(match, typestring))

	wrongService := match
	wrongService.TXT = map[string]string{"service": "command"}
	assert.False(t, svc.matches(wrongService, typestring))

	wrongType := Record{ServiceType: "_other._tcp", Domain: "local.", TXT: map[string]string{"service": "status"}}
	assert.False(t, svc.matches(wrongType, typestring))
}

func Test_Service_AddRemoveReadyTransitions(t *testing.T) {
	svc := NewService("status", "status", nil)

	var seen []bool
	svc.OnReadyChanged(func(ready bool) { seen = append(seen, ready) })

	_, err := svc.URI()
	require.ErrorIs(t, err, errs.ErrNoRecords)

	rec := Record{Instance: "pathpilot", ServerName: "host.local.", Addr: "1.2.3.4", TXT: map[string]string{"dsn": "tcp://host.local:5001"}}
	svc.add(rec)
	assert.True(t, svc.Ready())
	uri, err := svc.URI()
	require.NoError(t, err)
	assert.Equal(t, "tcp://1.2.3.4:5001", uri)

	// re-adding the same instance+server replaces, not duplicates.
	svc.add(rec)
	assert.Len(t, svc.records, 1)

	svc.remove(rec)
	assert.False(t, svc.Ready())
	_, err = svc.URI()
	require.Error(t, err)

	require.Len(t, seen, 2)
	assert.True(t, seen[0])
	assert.False(t, seen[1])
}

func Test_Service_ReadyDoesNotFireOnRepeatedAdd(t *testing.T) {
	svc := NewService("status", "status", nil)
	var fired int
	svc.OnReadyChanged(func(bool) { fired++ })

	rec1 := Record{Instance: "a", ServerName: "a.local."}
	rec2 := Record{Instance: "b", ServerName: "b.local."}
	svc.add(rec1)
	svc.add(rec2)

	assert.Equal(t, 1, fired)
}
