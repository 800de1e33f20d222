package container

import "machinetalk/internal/wire"

// LogRecord is the LOG_MESSAGE sub-message (spec §4.5, §6).
type LogRecord struct {
	Level       int32
	Origin      string
	Tag         string
	Pid         int32
	Text        string
	TimestampMs int64
}

const (
	logFieldLevel = iota + 1
	logFieldOrigin
	logFieldTag
	logFieldPid
	logFieldText
	logFieldTimestampMs
)

func (l LogRecord) marshal() []byte {
	var b []byte
	b = wire.AppendInt32(b, logFieldLevel, l.Level)
	b = wire.AppendStr(b, logFieldOrigin, l.Origin)
	b = wire.AppendStr(b, logFieldTag, l.Tag)
	b = wire.AppendInt32(b, logFieldPid, l.Pid)
	b = wire.AppendStr(b, logFieldText, l.Text)
	b = wire.AppendVarint(b, logFieldTimestampMs, uint64(l.TimestampMs))
	return b
}

func parseLogRecord(raw []byte) (LogRecord, error) {
	var l LogRecord
	fields, err := wire.ParseFields(raw)
	if err != nil {
		return l, err
	}
	for _, f := range fields {
		switch f.Num {
		case logFieldLevel:
			l.Level = wire.Int32(f.Raw)
		case logFieldOrigin:
			l.Origin = wire.Str(f.Raw)
		case logFieldTag:
			l.Tag = wire.Str(f.Raw)
		case logFieldPid:
			l.Pid = wire.Int32(f.Raw)
		case logFieldText:
			l.Text = wire.Str(f.Raw)
		case logFieldTimestampMs:
			l.TimestampMs = int64(wire.Varint(f.Raw))
		}
	}
	return l, nil
}
