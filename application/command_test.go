package application

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"machinetalk/internal/errs"
)

// Command methods never touch real sockets until Start is called, so every
// kind-specific method can be exercised for its "not connected" shape
// without opening one — this doubles as a compile-time check that every
// method's cmdpb.Kind/Params wiring is well formed.
func Test_Command_KindMethodsRequireConnectedChannel(t *testing.T) {
	c := NewCommand("tcp://127.0.0.1:5999", "test", nil)

	calls := []func() (uint32, error){
		func() (uint32, error) { return c.TaskModeSet(1) },
		func() (uint32, error) { return c.ProgramOpen("part.ngc") },
		func() (uint32, error) { return c.SpindleForward(0, 100) },
		func() (uint32, error) { return c.SpindleReverse(0, 100) },
		func() (uint32, error) { return c.AxisMaxLimit(0, 10) },
		func() (uint32, error) { return c.SetDebugLevel(5) },
		func() (uint32, error) { return c.Shutdown() },
	}

	for _, call := range calls {
		ticket, err := call()
		assert.ErrorIs(t, err, errs.ErrNotConnected)
		assert.Equal(t, uint32(0), ticket)
	}
}

func Test_Command_SpindleForwardAndReverseDifferOnlyBySign(t *testing.T) {
	// Both share KindSpindleOn and are otherwise indistinguishable from the
	// caller's perspective besides the sign baked into velocity — verified
	// directly on cmdpb.Params in cmdpb_test.go; here we only confirm the
	// facade methods exist with the expected signature and fail uniformly
	// before a channel is up.
	c := NewCommand("tcp://127.0.0.1:5999", "test", nil)

	_, errFwd := c.SpindleForward(1, 50)
	_, errRev := c.SpindleReverse(1, 50)

	assert.ErrorIs(t, errFwd, errs.ErrNotConnected)
	assert.ErrorIs(t, errRev, errs.ErrNotConnected)
}
