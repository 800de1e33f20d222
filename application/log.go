package application

import (
	"machinetalk/endpoint"
	"machinetalk/internal/logx"
)

// Log is the typed surface over LogBase.
type Log struct {
	*endpoint.LogBase
}

// NewLog builds a Log endpoint bound to uri with the given log_level
// threshold (inclusive; spec §4.5).
func NewLog(uri string, logLevel int32, log logx.Logger) *Log {
	return &Log{LogBase: endpoint.NewLogBase(uri, logLevel, log)}
}
