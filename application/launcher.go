package application

import (
	"sync"

	"machinetalk/channel"
	"machinetalk/cmdpb"
	"machinetalk/container"
	"machinetalk/internal/errs"
	"machinetalk/internal/logx"
)

// Launcher is a minimal RpcClient-backed endpoint used to remote-start or
// stop a machine instance before its Command/Status endpoints exist (spec
// SPEC_FULL §5, grounded on §4.6's CommandBase: same RpcClient + ticketed
// request shape, a much smaller kind vocabulary).
type Launcher struct {
	rpc *channel.RpcClient

	mu        sync.Mutex
	connected bool
	ticket    uint32

	log logx.Logger
}

// NewLauncher builds a Launcher bound to uri. An empty identity gets the
// spec §6 "<hostname>-<uuid>" default. opts overrides the channel's default
// heartbeat/liveness, e.g. cfg.ChannelOptions() off a loaded config.Config.
func NewLauncher(uri, identity string, log logx.Logger, opts ...channel.Option) *Launcher {
	if log == nil {
		log = logx.NoOp()
	}
	rpc := channel.NewRpcClient(uri, identity, log, opts...)
	l := &Launcher{rpc: rpc, log: log}
	rpc.OnStateChanged(l.onChannelState)
	return l
}

func (l *Launcher) Start() { l.rpc.Start() }
func (l *Launcher) Stop()  { l.rpc.Stop() }
func (l *Launcher) Wait()  { l.rpc.Wait() }

func (l *Launcher) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *Launcher) onChannelState(state string) {
	l.mu.Lock()
	l.connected = state == channel.StateUp
	l.mu.Unlock()
}

func (l *Launcher) send(typ container.MsgType, index int32) (uint32, error) {
	l.mu.Lock()
	if !l.connected {
		l.mu.Unlock()
		return 0, errs.ErrNotConnected
	}
	l.ticket++
	ticket := l.ticket
	l.mu.Unlock()

	params := cmdpb.Params{Index: index}
	msg := &container.Container{Ticket: ticket, CommandParams: &params}
	if err := l.rpc.Send(typ, msg); err != nil {
		return 0, err
	}
	return ticket, nil
}

// LaunchStart starts the machine instance.
func (l *Launcher) LaunchStart() (uint32, error) {
	return l.send(container.MsgLauncherStart, 0)
}

// Call invokes the launcher's configured action at the given index.
func (l *Launcher) Call(index int32) (uint32, error) {
	return l.send(container.MsgLauncherCall, index)
}

// Terminate asks the launcher to stop the machine instance it started.
func (l *Launcher) Terminate() (uint32, error) {
	return l.send(container.MsgLauncherTerminate, 0)
}

// Shutdown asks the launcher process itself to exit.
func (l *Launcher) Shutdown() (uint32, error) {
	return l.send(container.MsgLauncherShutdown, 0)
}
