// Package endpoint implements the four endpoint state machines every
// application-facing object in this module is built from (spec §4.5):
// CommandBase, StatusBase, ErrorBase and LogBase.
package endpoint

import (
	"strings"
	"sync"
	"time"

	"machinetalk/channel"
	"machinetalk/cmdpb"
	"machinetalk/container"
	"machinetalk/internal/errs"
	"machinetalk/internal/logx"
)

// CommandBase composes one RpcClient channel and exposes the
// connected/disconnected edge plus ticket/reply tracking every command
// method needs (spec §4.5, §4.6).
type CommandBase struct {
	rpc *channel.RpcClient

	mu          sync.Mutex
	connected   bool
	ticket      uint32
	executed    uint32
	completed   uint32
	errorString string

	executedCond  *sync.Cond
	completedCond *sync.Cond

	log logx.Logger
}

// NewCommandBase wraps an already-constructed RpcClient. Callers build the
// RpcClient themselves (URI, identity) and hand it here so CommandBase never
// has to know about transport configuration.
func NewCommandBase(rpc *channel.RpcClient, log logx.Logger) *CommandBase {
	if log == nil {
		log = logx.NoOp()
	}
	c := &CommandBase{rpc: rpc, log: log}
	c.executedCond = sync.NewCond(&c.mu)
	c.completedCond = sync.NewCond(&c.mu)

	rpc.OnStateChanged(c.onChannelState)
	rpc.OnMessageReceived(c.onChannelMessage)
	return c
}

func (c *CommandBase) Start() { c.rpc.Start() }
func (c *CommandBase) Stop()  { c.rpc.Stop() }
func (c *CommandBase) Wait()  { c.rpc.Wait() }

// Connected reports the public connected edge (spec §4.5: channel up →
// endpoint up → set_connected).
func (c *CommandBase) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *CommandBase) ErrorString() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorString
}

func (c *CommandBase) onChannelState(state string) {
	c.mu.Lock()
	c.connected = state == channel.StateUp
	c.mu.Unlock()
}

func (c *CommandBase) onChannelMessage(_ string, msg *container.Container) {
	switch msg.Type {
	case container.MsgEmcCommandExecuted:
		c.mu.Lock()
		if msg.ReplyTicket > c.executed {
			c.executed = msg.ReplyTicket
		}
		c.mu.Unlock()
		c.executedCond.Broadcast()
	case container.MsgEmcCommandCompleted:
		c.mu.Lock()
		if msg.ReplyTicket > c.completed {
			c.completed = msg.ReplyTicket
		}
		c.mu.Unlock()
		c.completedCond.Broadcast()
	case container.MsgError:
		c.mu.Lock()
		c.errorString = strings.Join(msg.Note, "\n")
		c.mu.Unlock()
	}
}

// Send allocates the next ticket under the transmit-lock and forwards a
// command container of the given kind on the RpcClient. Returns
// (0, errs.ErrNotConnected) if the channel isn't up (spec §4.6: "returns
// null if not currently connected"). params may be nil for parameterless
// commands (e.g. program pause).
func (c *CommandBase) Send(kind cmdpb.Kind, params *cmdpb.Params) (uint32, error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return 0, errs.ErrNotConnected
	}
	c.ticket++
	ticket := c.ticket
	c.mu.Unlock()

	msg := &container.Container{Ticket: ticket, CommandParams: params}
	if err := c.rpc.Send(container.CommandMsgType(int32(kind)), msg); err != nil {
		return 0, err
	}
	return ticket, nil
}

// waitTicket blocks until watermark >= ticket or timeout elapses, re-checking
// the predicate after every wakeup (spec §4.6, §5: spurious-wakeup safe).
func (c *CommandBase) waitTicket(watermark *uint32, cond *sync.Cond, ticket uint32, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	done := make(chan struct{})

	c.mu.Lock()
	defer c.mu.Unlock()
	for *watermark < ticket {
		if timeout <= 0 {
			return false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		timer := time.AfterFunc(remaining, func() {
			cond.Broadcast()
			close(done)
		})
		cond.Wait()
		timer.Stop()
		select {
		case <-done:
		default:
		}
	}
	return true
}

// WaitExecuted blocks until reply_ticket >= ticket has been observed on an
// EMCCMD_EXECUTED container, or timeout elapses. ticket==0 is treated as
// "the next executed reply completes the wait" per spec §4.6.
func (c *CommandBase) WaitExecuted(ticket uint32, timeout time.Duration) bool {
	if ticket == 0 {
		c.mu.Lock()
		ticket = c.executed + 1
		c.mu.Unlock()
	}
	return c.waitTicket(&c.executed, c.executedCond, ticket, timeout)
}

// WaitCompleted is WaitExecuted's counterpart for EMCCMD_COMPLETED.
func (c *CommandBase) WaitCompleted(ticket uint32, timeout time.Duration) bool {
	if ticket == 0 {
		c.mu.Lock()
		ticket = c.completed + 1
		c.mu.Unlock()
	}
	return c.waitTicket(&c.completed, c.completedCond, ticket, timeout)
}

