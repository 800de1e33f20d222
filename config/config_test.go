package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machinetalk/channel"
	"machinetalk/service"
)

func Test_DefaultConfig_HasSensibleDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "local.", cfg.Discovery.Domain)
	assert.Equal(t, 2500*time.Millisecond, cfg.Heartbeat.Interval)
	assert.Equal(t, 5, cfg.Heartbeat.Liveness)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func Test_Load_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func Test_Load_OverlayOverridesOnlyGivenFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machinetalk.yaml")
	yaml := "discovery:\n  domain: test.\nheartbeat:\n  liveness: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test.", cfg.Discovery.Domain)
	assert.Equal(t, 3, cfg.Heartbeat.Liveness)
	// Untouched fields keep their defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
}

func Test_ChannelOptions_CarriesOverlayIntoRpcClient(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Heartbeat.Interval = 7 * time.Millisecond
	cfg.Heartbeat.Liveness = 9

	rpc := channel.NewRpcClient("tcp://127.0.0.1:5005", "test", nil, cfg.ChannelOptions()...)

	assert.Equal(t, 9, rpc.LivenessMax())
}

func Test_Logger_BuildsFromLoggingLevelAndFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "json"

	log := cfg.Logger()
	require.NotNil(t, log)
	assert.NotPanics(t, func() { log.Info().Msg("dropped, below warn") })
}

func Test_NewDiscovery_WiresConfiguredDomainAndNameservers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Discovery.Domain = "unicast.example."
	cfg.Discovery.Nameservers = []string{"10.0.0.1:53"}

	disc := cfg.NewDiscovery("_machinekit._tcp", service.DiscoveryFilter{}, nil)
	require.NotNil(t, disc)
	require.NoError(t, disc.Register(service.NewService("svc", "_machinekit._tcp", nil)))
}
