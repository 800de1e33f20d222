package container

// MsgType is the container's message-kind discriminator (spec §3, §6). The
// concrete numeric assignment is this module's own — spec §1 treats the
// schema as an external input, so there is no "real" protocol number to be
// faithful to; what matters is that every listed symbolic name round-trips.
type MsgType int32

const (
	MsgUnknown MsgType = iota

	MsgPing
	MsgPingAcknowledge
	MsgError
	MsgLogMessage

	MsgEmcStatusFullUpdate
	MsgEmcStatusIncrementalUpdate

	MsgEmcCommandExecuted
	MsgEmcCommandCompleted

	MsgHalrcompFullUpdate
	MsgHalrcompIncrementalUpdate
	MsgHalrcompError
	MsgHalrcompBind
	MsgHalrcompBindConfirm
	MsgHalrcompBindReject
	MsgHalrcompSet
	MsgHalrcompSetReject

	MsgEmcNmlError
	MsgEmcNmlText
	MsgEmcNmlDisplay
	MsgEmcOperatorError
	MsgEmcOperatorText
	MsgEmcOperatorDisplay

	MsgLauncherStart
	MsgLauncherTerminate
	MsgLauncherCall
	MsgLauncherShutdown

	// MsgEmcCommandBase is the first of a contiguous run of one MsgType per
	// cmdpb.Kind (spec §4.6: "each maps one-to-one to a container type").
	// A command request's type is MsgEmcCommandBase + cmdpb.Kind.
	MsgEmcCommandBase MsgType = 1000

	MsgShutdown MsgType = 2000
)

// CommandMsgType returns the container type for a cmdpb command kind.
func CommandMsgType(kind int32) MsgType { return MsgEmcCommandBase + MsgType(kind) }

// IsCommandRequest reports whether t is one of the ~35 mechanical command
// request kinds (as opposed to a reply, status, or control message).
func (t MsgType) IsCommandRequest() bool {
	return t > MsgEmcCommandBase && t < MsgShutdown
}

// IsErrorNote reports whether t is one of the six error/text/display
// container kinds the Error endpoint buffers (spec §4.5).
func (t MsgType) IsErrorNote() bool {
	switch t {
	case MsgEmcNmlError, MsgEmcNmlText, MsgEmcNmlDisplay,
		MsgEmcOperatorError, MsgEmcOperatorText, MsgEmcOperatorDisplay:
		return true
	default:
		return false
	}
}
