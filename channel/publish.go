package channel

import (
	"context"
	"fmt"
	"sync"

	"machinetalk/container"
	"machinetalk/internal/logx"
)

// Publish is a PUB-socket outbound-only channel (spec §4.4 share row). No
// endpoint in this module uses it. It has no state machine of its own — a PUB socket has no peer handshake to
// observe — only bind/send/close.
type Publish struct {
	uri string

	mu      sync.Mutex
	sock    pubSocket
	bound   bool
	log     logx.Logger
}

func NewPublish(uri string, log logx.Logger) *Publish {
	if log == nil {
		log = logx.NoOp()
	}
	return &Publish{uri: uri, log: log}
}

// Bind connects the PUB socket to uri with Dial; it does not listen.
// Idempotent.
func (p *Publish) Bind() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bound {
		return nil
	}
	sock := newPubSocket(context.Background())
	if err := sock.Dial(p.uri); err != nil {
		return fmt.Errorf("publish: dial: %w", err)
	}
	p.sock = sock
	p.bound = true
	return nil
}

func (p *Publish) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.bound {
		return
	}
	p.sock.Close()
	p.bound = false
}

// Send publishes msg on topic.
func (p *Publish) Send(topic string, typ container.MsgType, msg *container.Container) error {
	msg.Type = typ
	raw, err := container.Encode(msg)
	if err != nil {
		return fmt.Errorf("publish: encode: %w", err)
	}
	p.mu.Lock()
	sock := p.sock
	bound := p.bound
	p.mu.Unlock()
	if !bound {
		return fmt.Errorf("publish: not bound")
	}
	return sock.Send(topic, raw)
}
