// Package application provides the typed public surface applications
// actually call: one thin facade per endpoint (Command, Status, Error, Log,
// Launcher, File) composing the endpoint package's state machines with the
// mechanical per-kind marshalling spec §4.6 describes.
package application

import (
	"time"

	"machinetalk/channel"
	"machinetalk/cmdpb"
	"machinetalk/endpoint"
	"machinetalk/internal/logx"
	"machinetalk/statuspb"
)

// Command is the typed surface over CommandBase: one method per command
// kind, each doing the mechanical parameter marshalling spec §4.6 describes
// and returning the ticket CommandBase.Send allocated.
type Command struct {
	*endpoint.CommandBase
}

// NewCommand builds a Command endpoint over a freshly constructed RpcClient
// bound to uri. identity is the DEALER socket's ZeroMQ identity; an empty
// identity gets the spec §6 "<hostname>-<uuid>" default. opts overrides the
// channel's default heartbeat/liveness, e.g. cfg.ChannelOptions() off a
// loaded config.Config.
func NewCommand(uri, identity string, log logx.Logger, opts ...channel.Option) *Command {
	rpc := channel.NewRpcClient(uri, identity, log, opts...)
	return &Command{CommandBase: endpoint.NewCommandBase(rpc, log)}
}

func (c *Command) send(kind cmdpb.Kind, p cmdpb.Params) (uint32, error) {
	return c.CommandBase.Send(kind, &p)
}

// TaskModeSet sets the task mode (manual/auto/mdi); mode is carried in Index.
func (c *Command) TaskModeSet(mode int32) (uint32, error) {
	return c.send(cmdpb.KindTaskModeSet, cmdpb.Params{Index: mode})
}

// TaskStateSet sets the task state (estop/on/off); state is carried in Index.
func (c *Command) TaskStateSet(state int32) (uint32, error) {
	return c.send(cmdpb.KindTaskStateSet, cmdpb.Params{Index: state})
}

// ProgramOpen loads an NC program file.
func (c *Command) ProgramOpen(file string) (uint32, error) {
	return c.send(cmdpb.KindProgramOpen, cmdpb.Params{File: file})
}

// ProgramRun starts interpretation from the given line (0 for the start).
func (c *Command) ProgramRun(line int32) (uint32, error) {
	return c.send(cmdpb.KindProgramRun, cmdpb.Params{Index: line})
}

func (c *Command) ProgramPause() (uint32, error) {
	return c.send(cmdpb.KindProgramPause, cmdpb.Params{})
}

func (c *Command) ProgramStep() (uint32, error) {
	return c.send(cmdpb.KindProgramStep, cmdpb.Params{})
}

func (c *Command) ProgramResume() (uint32, error) {
	return c.send(cmdpb.KindProgramResume, cmdpb.Params{})
}

func (c *Command) ProgramReset() (uint32, error) {
	return c.send(cmdpb.KindProgramReset, cmdpb.Params{})
}

// MDIExecute runs one line of interactive MDI code.
func (c *Command) MDIExecute(line string) (uint32, error) {
	return c.send(cmdpb.KindMDIExecute, cmdpb.Params{File: line})
}

func (c *Command) SpindleOn(velocity float64) (uint32, error) {
	return c.send(cmdpb.KindSpindleOn, cmdpb.Params{Velocity: velocity})
}

func (c *Command) SpindleOff(index int32) (uint32, error) {
	return c.send(cmdpb.KindSpindleOff, cmdpb.Params{Index: index})
}

// SpindleForward and SpindleReverse share SpindleOn's container type and
// differ only by the sign of velocity (spec §4.6).
func (c *Command) SpindleForward(index int32, velocity float64) (uint32, error) {
	return c.send(cmdpb.KindSpindleOn, cmdpb.Params{Index: index, Velocity: velocity})
}

func (c *Command) SpindleReverse(index int32, velocity float64) (uint32, error) {
	return c.send(cmdpb.KindSpindleOn, cmdpb.Params{Index: index, Velocity: -velocity})
}

func (c *Command) SpindleBrake(index int32, engage bool) (uint32, error) {
	return c.send(cmdpb.KindSpindleBrake, cmdpb.Params{Index: index, Enable: engage})
}

func (c *Command) SpindleConstant(index int32, enable bool) (uint32, error) {
	return c.send(cmdpb.KindSpindleConstant, cmdpb.Params{Index: index, Enable: enable})
}

func (c *Command) SpindleIncrease(index int32) (uint32, error) {
	return c.send(cmdpb.KindSpindleIncrease, cmdpb.Params{Index: index})
}

func (c *Command) SpindleDecrease(index int32) (uint32, error) {
	return c.send(cmdpb.KindSpindleDecrease, cmdpb.Params{Index: index})
}

func (c *Command) CoolantFlood(enable bool) (uint32, error) {
	return c.send(cmdpb.KindCoolantFlood, cmdpb.Params{Enable: enable})
}

func (c *Command) CoolantMist(enable bool) (uint32, error) {
	return c.send(cmdpb.KindCoolantMist, cmdpb.Params{Enable: enable})
}

func (c *Command) JogStop(axis int32) (uint32, error) {
	return c.send(cmdpb.KindJogStop, cmdpb.Params{Index: axis, JogType: cmdpb.JogTypeStop})
}

func (c *Command) JogContinuous(axis int32, velocity float64) (uint32, error) {
	return c.send(cmdpb.KindJogContinuous, cmdpb.Params{Index: axis, Velocity: velocity, JogType: cmdpb.JogTypeContinuous})
}

func (c *Command) JogIncrement(axis int32, velocity, distance float64) (uint32, error) {
	return c.send(cmdpb.KindJogIncrement, cmdpb.Params{Index: axis, Velocity: velocity, Distance: distance, JogType: cmdpb.JogTypeIncrement})
}

func (c *Command) Home(axis int32) (uint32, error) {
	return c.send(cmdpb.KindHome, cmdpb.Params{Index: axis})
}

func (c *Command) Unhome(axis int32) (uint32, error) {
	return c.send(cmdpb.KindUnhome, cmdpb.Params{Index: axis})
}

func (c *Command) AxisMinLimit(axis int32, limit float64) (uint32, error) {
	return c.send(cmdpb.KindAxisMinLimit, cmdpb.Params{Index: axis, Value: limit})
}

// AxisMaxLimit returns its allocated ticket, unlike the min-limit method the
// original implementation shipped (spec §9's open question: fixed here, not
// replicated).
func (c *Command) AxisMaxLimit(axis int32, limit float64) (uint32, error) {
	return c.send(cmdpb.KindAxisMaxLimit, cmdpb.Params{Index: axis, Value: limit})
}

func (c *Command) TrajMode(mode int32) (uint32, error) {
	return c.send(cmdpb.KindTrajMode, cmdpb.Params{Index: mode})
}

func (c *Command) TrajScale(scale float64) (uint32, error) {
	return c.send(cmdpb.KindTrajScale, cmdpb.Params{Scale: scale})
}

func (c *Command) TrajMaxVelocity(velocity float64) (uint32, error) {
	return c.send(cmdpb.KindTrajMaxVelocity, cmdpb.Params{Velocity: velocity})
}

func (c *Command) TeleopEnable(enable bool) (uint32, error) {
	return c.send(cmdpb.KindTeleopEnable, cmdpb.Params{Enable: enable})
}

func (c *Command) TeleopVector(pose statuspb.Position) (uint32, error) {
	return c.send(cmdpb.KindTeleopVector, cmdpb.Params{Pose: pose})
}

func (c *Command) FeedOverrideEnable(enable bool) (uint32, error) {
	return c.send(cmdpb.KindFeedOverrideEnable, cmdpb.Params{Enable: enable})
}

func (c *Command) FeedHoldEnable(enable bool) (uint32, error) {
	return c.send(cmdpb.KindFeedHoldEnable, cmdpb.Params{Enable: enable})
}

func (c *Command) BlockDelete(enable bool) (uint32, error) {
	return c.send(cmdpb.KindBlockDelete, cmdpb.Params{Enable: enable})
}

func (c *Command) OptionalStop(enable bool) (uint32, error) {
	return c.send(cmdpb.KindOptionalStop, cmdpb.Params{Enable: enable})
}

func (c *Command) AnalogOutput(index int32, value float64) (uint32, error) {
	return c.send(cmdpb.KindAnalogOutput, cmdpb.Params{Index: index, Value: value})
}

func (c *Command) DigitalOutput(index int32, enable bool) (uint32, error) {
	return c.send(cmdpb.KindDigitalOutput, cmdpb.Params{Index: index, Enable: enable})
}

func (c *Command) AdaptiveFeed(scale float64) (uint32, error) {
	return c.send(cmdpb.KindAdaptiveFeed, cmdpb.Params{Scale: scale})
}

func (c *Command) ToolTableLoad() (uint32, error) {
	return c.send(cmdpb.KindToolTableLoad, cmdpb.Params{})
}

func (c *Command) ToolOffsetSet(tool cmdpb.ToolData) (uint32, error) {
	return c.send(cmdpb.KindToolOffsetSet, cmdpb.Params{Tool: tool})
}

// SetDebugLevel sets the server's debug verbosity. Correctly marshals the
// level into DebugLevel rather than overloading Index (spec §9's open
// question: the original implementation's bug is not reproduced here).
func (c *Command) SetDebugLevel(level int32) (uint32, error) {
	return c.send(cmdpb.KindSetDebugLevel, cmdpb.Params{DebugLevel: level})
}

func (c *Command) OverrideLimits(axis int32) (uint32, error) {
	return c.send(cmdpb.KindOverrideLimits, cmdpb.Params{Index: axis})
}

func (c *Command) Shutdown() (uint32, error) {
	return c.send(cmdpb.KindShutdown, cmdpb.Params{})
}

// WaitExecuted and WaitCompleted re-export CommandBase's waits with the same
// signature, kept here only so callers importing application don't also
// need to import endpoint for the return type of Send.
func (c *Command) WaitExecuted(ticket uint32, timeout time.Duration) bool {
	return c.CommandBase.WaitExecuted(ticket, timeout)
}

func (c *Command) WaitCompleted(ticket uint32, timeout time.Duration) bool {
	return c.CommandBase.WaitCompleted(ticket, timeout)
}
