package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"machinetalk/internal/errs"
)

// fakeBrowser is a hand-written stand-in for zeroconfBrowser (mirrors
// channel/transport.go's fake-over-interface pattern for tests).
type fakeBrowser struct {
	events chan Event
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{events: make(chan Event, 8)}
}

func (b *fakeBrowser) Browse(ctx context.Context, serviceType, domain string) (<-chan Event, error) {
	out := make(chan Event, 8)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-b.events:
				if !ok {
					return
				}
				out <- ev
			}
		}
	}()
	return out, nil
}

func newTestDiscovery(br browser) *Discovery {
	return &Discovery{
		domain:      "local.",
		serviceType: "_machinekit._tcp",
		br:          br,
		log:         nil,
	}
}

func Test_Discovery_RegisterForbiddenWhileRunning(t *testing.T) {
	d := newTestDiscovery(newFakeBrowser())
	require.NoError(t, d.Start())
	defer d.Stop()

	err := d.Register(NewService("status", "status", nil))
	assert.ErrorIs(t, err, errs.ErrDiscoveryRunning)

	err = d.Unregister(NewService("status", "status", nil))
	assert.ErrorIs(t, err, errs.ErrDiscoveryRunning)
}

func Test_Discovery_StopWhenNotRunning(t *testing.T) {
	d := newTestDiscovery(newFakeBrowser())
	err := d.Stop()
	assert.ErrorIs(t, err, errs.ErrDiscoveryNotRunning)
}

func Test_Discovery_DispatchesMatchingRecordsToRegisteredServices(t *testing.T) {
	br := newFakeBrowser()
	d := newTestDiscovery(br)

	status := NewService("status", "status", nil)
	command := NewService("command", "command", nil)
	require.NoError(t, d.Register(status))
	require.NoError(t, d.Register(command))
	require.NoError(t, d.Start())
	defer d.Stop()

	br.events <- Event{Record: Record{
		Instance:    "pathpilot",
		ServiceType: "_machinekit._tcp",
		Domain:      "local.",
		ServerName:  "host.local.",
		TXT:         map[string]string{"service": "status"},
	}}

	require.Eventually(t, func() bool { return status.Ready() }, time.Second, 5*time.Millisecond)
	assert.False(t, command.Ready())
}

func Test_Discovery_FilterNarrowsDispatch(t *testing.T) {
	br := newFakeBrowser()
	d := newTestDiscovery(br)
	d.filter = DiscoveryFilter{InstanceContains: "wanted"}

	status := NewService("status", "status", nil)
	require.NoError(t, d.Register(status))
	require.NoError(t, d.Start())
	defer d.Stop()

	br.events <- Event{Record: Record{
		Instance:    "unwanted-machine",
		ServiceType: "_machinekit._tcp",
		Domain:      "local.",
		TXT:         map[string]string{"service": "status"},
	}}
	br.events <- Event{Record: Record{
		Instance:    "wanted-machine",
		ServiceType: "_machinekit._tcp",
		Domain:      "local.",
		TXT:         map[string]string{"service": "status"},
	}}

	require.Eventually(t, func() bool { return status.Ready() }, time.Second, 5*time.Millisecond)
	assert.Len(t, status.records, 1)
	assert.Equal(t, "wanted-machine", status.records[0].Instance)
}

// Test_Discovery_StartCallsBrowseWithConfiguredTypeAndDomain pins down the
// exact arguments Start hands its browser, using a mock rather than the
// hand-written fakeBrowser so the call itself (not just its effect) is
// under test.
func Test_Discovery_StartCallsBrowseWithConfiguredTypeAndDomain(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	events := make(chan Event)
	mockBr := NewMockBrowser(ctrl)
	mockBr.EXPECT().
		Browse(gomock.Any(), "_status._sub._machinekit._tcp", "local.").
		DoAndReturn(func(ctx context.Context, _, _ string) (<-chan Event, error) {
			// Discovery.run ranges over the returned channel until it is
			// closed, so the fake browser must close it on cancellation the
			// same way the real zeroconf-backed one does.
			go func() {
				<-ctx.Done()
				close(events)
			}()
			return events, nil
		})

	d := newTestDiscovery(mockBr)
	d.serviceType = "_status._sub._machinekit._tcp"

	require.NoError(t, d.Start())
	defer d.Stop()

	assert.True(t, d.Running())
}
