// Package config loads optional client-wide defaults (heartbeat override,
// discovery domain/nameservers, log level/format) the same layered way the
// teacher's internal/config/config.go loads fuku.yaml: a DefaultConfig plus
// an optional file overlay via viper. Nothing in the core requires a config
// file — every constructor in channel/endpoint/application also works
// called directly with explicit arguments.
//
// There is no socket-linger field: github.com/go-zeromq/zmq4's Socket has
// no SetOption name for it (unlike OptionSubscribe/OptionUnsubscribe, which
// channel/transport.go does use) and Close on its pure-Go transport simply
// tears down the net.Conn rather than draining a libzmq send queue, so
// there is no linger behaviour left to configure.
package config

import (
	"bytes"
	"os"
	"time"

	"github.com/spf13/viper"

	"machinetalk/channel"
	"machinetalk/internal/errs"
	"machinetalk/internal/logx"
	"machinetalk/service"
)

// Config is the client-wide, optional configuration overlay.
type Config struct {
	Discovery struct {
		Domain    string   `yaml:"domain"`
		Nameservers []string `yaml:"nameservers"`
	} `yaml:"discovery"`

	Heartbeat struct {
		Interval time.Duration `yaml:"interval"`
		Liveness int           `yaml:"liveness"`
	} `yaml:"heartbeat"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

const (
	defaultDiscoveryDomain = "local."
	defaultLogLevel        = "info"
	defaultLogFormat       = "console"
)

// DefaultConfig returns the configuration used when no overlay file exists.
// Heartbeat.Interval and Heartbeat.Liveness are seeded from channel's own
// defaults rather than a second pair of constants, so the two packages
// can't drift out of sync.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Discovery.Domain = defaultDiscoveryDomain
	cfg.Heartbeat.Interval = channel.DefaultHeartbeat
	cfg.Heartbeat.Liveness = channel.DefaultLiveness
	cfg.Logging.Level = defaultLogLevel
	cfg.Logging.Format = defaultLogFormat
	return cfg
}

// Load reads an optional machinetalk.yaml overlay from path, returning
// DefaultConfig unchanged if the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errs.New("config: " + err.Error())
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, errs.New("config: " + err.Error())
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.New("config: " + err.Error())
	}
	return cfg, nil
}

// ChannelOptions derives the channel.Option overlay (heartbeat interval,
// liveness count) a loaded Config asks every RpcClient/StatusSubscribe to
// start with, e.g.:
//
//	cfg, _ := config.Load("machinetalk.yaml")
//	rpc := channel.NewRpcClient(uri, "", log, cfg.ChannelOptions()...)
func (c *Config) ChannelOptions() []channel.Option {
	return []channel.Option{
		channel.WithHeartbeat(c.Heartbeat.Interval),
		channel.WithLiveness(c.Heartbeat.Liveness),
	}
}

// Logger builds the logx.Logger a loaded Config asks the rest of the client
// to log through, picking level and format off Logging the same way the
// teacher's NewLogger(cfg *config.Config) does.
func (c *Config) Logger() logx.Logger {
	return logx.New(logx.Options{Level: c.Logging.Level, Format: c.Logging.Format})
}

// NewDiscovery builds a service.Discovery over serviceType using this
// Config's Discovery.Domain and Discovery.Nameservers, so the caller need not
// repeat the fields. The nameservers reach the browser but are only logged
// there: browsing stays multicast mDNS, with no unicast DNS-SD.
func (c *Config) NewDiscovery(serviceType string, filter service.DiscoveryFilter, log logx.Logger) *service.Discovery {
	return service.NewDiscovery(serviceType, c.Discovery.Domain, filter, c.Discovery.Nameservers, log)
}
