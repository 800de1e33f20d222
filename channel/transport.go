package channel

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/google/uuid"
)

// dealerSocket, subSocket and pubSocket are the thin seams between the
// channel state machines and github.com/go-zeromq/zmq4. Channels depend on
// these interfaces, not on zmq4 directly, so tests can substitute an
// in-memory fake instead of standing up a real ZeroMQ peer.
type dealerSocket interface {
	Dial(endpoint string) error
	Close() error
	Send(frame []byte) error
	Recv() ([]byte, error)
}

type subSocket interface {
	Dial(endpoint string) error
	Close() error
	Subscribe(topic string) error
	Unsubscribe(topic string) error
	Recv() (topic string, frame []byte, err error)
}

type pubSocket interface {
	Dial(endpoint string) error
	Close() error
	Send(topic string, frame []byte) error
}

// newDealerSocket, newSubSocket and newPubSocket are the construction seams
// the channel state machines call instead of the zmq4 constructors
// directly, so a test can swap in a fake without touching a real socket
// (mirrors the browser construction seam in service/browser.go).
var (
	newDealerSocket = func(ctx context.Context, identity string) dealerSocket { return newZmqDealer(ctx, identity) }
	newSubSocket    = func(ctx context.Context) subSocket { return newZmqSub(ctx) }
	newPubSocket    = func(ctx context.Context) pubSocket { return newZmqPub(ctx) }
)

// --- zmq4-backed implementations ---

// dealerIdentity builds the "<hostname>-<random-uuid>" DEALER identity spec
// §6 requires.
func dealerIdentity(hostname string) string {
	return fmt.Sprintf("%s-%s", hostname, uuid.New().String())
}

// resolveIdentity returns identity unchanged, or — when the caller leaves it
// empty — a fresh dealerIdentity rooted at the local hostname (falling back
// to "machinetalk" if the hostname can't be read).
func resolveIdentity(identity string) string {
	if identity != "" {
		return identity
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "machinetalk"
	}
	return dealerIdentity(hostname)
}

type zmqDealer struct {
	sock zmq4.Socket
}

func newZmqDealer(ctx context.Context, identity string) *zmqDealer {
	sock := zmq4.NewDealer(ctx, zmq4.WithID(zmq4.SocketIdentity(identity)))
	return &zmqDealer{sock: sock}
}

func (d *zmqDealer) Dial(endpoint string) error { return d.sock.Dial(endpoint) }
func (d *zmqDealer) Close() error               { return d.sock.Close() }
func (d *zmqDealer) Send(frame []byte) error    { return d.sock.Send(zmq4.NewMsg(frame)) }

func (d *zmqDealer) Recv() ([]byte, error) {
	msg, err := d.sock.Recv()
	if err != nil {
		return nil, err
	}
	if len(msg.Frames) == 0 {
		return nil, nil
	}
	return msg.Frames[len(msg.Frames)-1], nil
}

type zmqSub struct {
	sock zmq4.Socket
}

func newZmqSub(ctx context.Context) *zmqSub {
	return &zmqSub{sock: zmq4.NewSub(ctx)}
}

func (s *zmqSub) Dial(endpoint string) error { return s.sock.Dial(endpoint) }
func (s *zmqSub) Close() error               { return s.sock.Close() }

func (s *zmqSub) Subscribe(topic string) error {
	return s.sock.SetOption(zmq4.OptionSubscribe, topic)
}

func (s *zmqSub) Unsubscribe(topic string) error {
	return s.sock.SetOption(zmq4.OptionUnsubscribe, topic)
}

func (s *zmqSub) Recv() (string, []byte, error) {
	msg, err := s.sock.Recv()
	if err != nil {
		return "", nil, err
	}
	if len(msg.Frames) < 2 {
		return "", nil, fmt.Errorf("channel: sub message missing topic frame")
	}
	return string(msg.Frames[0]), msg.Frames[1], nil
}

type zmqPub struct {
	sock zmq4.Socket
}

func newZmqPub(ctx context.Context) *zmqPub {
	return &zmqPub{sock: zmq4.NewPub(ctx)}
}

func (p *zmqPub) Dial(endpoint string) error { return p.sock.Dial(endpoint) }
func (p *zmqPub) Close() error               { return p.sock.Close() }

func (p *zmqPub) Send(topic string, frame []byte) error {
	return p.sock.SendMulti(zmq4.NewMsgFrom([]byte(topic), frame))
}

// DefaultHeartbeat is the RpcClient/StatusSubscribe default heartbeat
// interval (spec §4.2), overridden by pparams.keepalive_timer once a full
// update has been observed. Exported so config.DefaultConfig can seed its
// overlay from the same value instead of keeping a second constant.
const DefaultHeartbeat = 2500 * time.Millisecond

// DefaultLiveness is the liveness counter's reset value (spec glossary).
const DefaultLiveness = 5

const (
	defaultHeartbeat = DefaultHeartbeat
	defaultLiveness  = DefaultLiveness
)

// heartbeatConfig is the subset of heartbeat/liveness state every
// heartbeat-tracking channel (RpcClient, StatusSubscribe) carries. Option
// mutates it before the channel's state machine is built.
type heartbeatConfig struct {
	heartbeat time.Duration
	liveness  int
}

func newHeartbeatConfig() heartbeatConfig {
	return heartbeatConfig{heartbeat: defaultHeartbeat, liveness: defaultLiveness}
}

// Option configures a heartbeat-tracking channel at construction. The
// pattern mirrors the responder.Option functional options used to
// configure optional mDNS responder fields: a variadic trailing parameter
// so existing positional call sites keep compiling unchanged.
type Option func(*heartbeatConfig)

// WithHeartbeat overrides the channel's initial heartbeat interval. The
// channel still re-derives it from pparams.keepalive_timer once a full
// update arrives (spec §4.2); this only changes the value used before that.
func WithHeartbeat(interval time.Duration) Option {
	return func(c *heartbeatConfig) { c.heartbeat = interval }
}

// WithLiveness overrides the liveness counter's reset value.
func WithLiveness(n int) Option {
	return func(c *heartbeatConfig) { c.liveness = n }
}

func applyOptions(opts []Option) heartbeatConfig {
	cfg := newHeartbeatConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
