package endpoint

import (
	"sync"

	"machinetalk/channel"
	"machinetalk/container"
	"machinetalk/internal/dispatch"
	"machinetalk/internal/logx"
)

// LogRecord is the application-facing decoded form of a LOG_MESSAGE
// container (spec §4.5).
type LogRecord struct {
	Level       int32
	Origin      string
	Tag         string
	Pid         int32
	Text        string
	TimestampMs int64
}

// LogListener observes every LogRecord that passes the endpoint's level
// filter.
type LogListener func(LogRecord)

// LogBase composes one SimpleSubscribe channel over {log} and filters
// records by a configurable minimum severity (spec §4.5: "messages with
// level numerically greater than log_level are filtered out").
type LogBase struct {
	sub *channel.SimpleSubscribe

	mu        sync.Mutex
	logLevel  int32
	listeners []LogListener

	log logx.Logger
}

// NewLogBase builds a LogBase bound to uri with the given log_level
// threshold (inclusive).
func NewLogBase(uri string, logLevel int32, log logx.Logger) *LogBase {
	if log == nil {
		log = logx.NoOp()
	}
	sub := channel.NewSimpleSubscribe(uri, []string{"log"}, log)
	l := &LogBase{sub: sub, logLevel: logLevel, log: log}
	sub.OnMessageReceived(l.onChannelMessage)
	return l
}

func (l *LogBase) Start() { l.sub.Start() }
func (l *LogBase) Stop()  { l.sub.Stop() }
func (l *LogBase) Wait()  { l.sub.Wait() }

func (l *LogBase) State() string { return l.sub.State() }

// SetLogLevel updates the filter threshold.
func (l *LogBase) SetLogLevel(level int32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logLevel = level
}

// OnLogRecord registers a listener for every record passing the filter.
func (l *LogBase) OnLogRecord(f LogListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, f)
}

func (l *LogBase) onChannelMessage(_ string, msg *container.Container) {
	if msg.Type != container.MsgLogMessage || msg.Log == nil {
		return
	}
	l.mu.Lock()
	threshold := l.logLevel
	cbs := append([]LogListener(nil), l.listeners...)
	l.mu.Unlock()

	if msg.Log.Level > threshold {
		return
	}
	rec := LogRecord{
		Level:       msg.Log.Level,
		Origin:      msg.Log.Origin,
		Tag:         msg.Log.Tag,
		Pid:         msg.Log.Pid,
		Text:        msg.Log.Text,
		TimestampMs: msg.Log.TimestampMs,
	}
	for _, cb := range cbs {
		cb := cb
		dispatch.Safe(l.log, "logbase.record", func() { cb(rec) })
	}
}
