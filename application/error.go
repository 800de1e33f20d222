package application

import (
	"machinetalk/endpoint"
	"machinetalk/internal/logx"
)

// Error is the typed surface over ErrorBase. It has no further behaviour of
// its own — spec §4.5's trivial state machine and draining buffer are the
// entire contract.
type Error struct {
	*endpoint.ErrorBase
}

func NewError(uri string, log logx.Logger) *Error {
	return &Error{ErrorBase: endpoint.NewErrorBase(uri, log)}
}
