package endpoint

import (
	"sync"

	"machinetalk/channel"
	"machinetalk/container"
	"machinetalk/internal/logx"
)

// errorTopics is the fixed SimpleSubscribe topic set an ErrorBase
// subscribes to (spec §4.5).
var errorTopics = []string{"error", "text", "display"}

// ErrorBase composes one SimpleSubscribe channel over {error, text,
// display} and buffers every recognised NML/operator note into a drainable
// list (spec §4.5, §7).
type ErrorBase struct {
	sub *channel.SimpleSubscribe

	mu       sync.Mutex
	messages []string

	log logx.Logger
}

// NewErrorBase builds an ErrorBase bound to uri.
func NewErrorBase(uri string, log logx.Logger) *ErrorBase {
	if log == nil {
		log = logx.NoOp()
	}
	sub := channel.NewSimpleSubscribe(uri, errorTopics, log)
	e := &ErrorBase{sub: sub, log: log}
	sub.OnMessageReceived(e.onChannelMessage)
	return e
}

func (e *ErrorBase) Start() { e.sub.Start() }
func (e *ErrorBase) Stop()  { e.sub.Stop() }
func (e *ErrorBase) Wait()  { e.sub.Wait() }

func (e *ErrorBase) State() string { return e.sub.State() }

func (e *ErrorBase) onChannelMessage(_ string, msg *container.Container) {
	if !msg.Type.IsErrorNote() {
		return
	}
	text := ""
	if len(msg.Note) > 0 {
		text = msg.Note[0]
		for _, n := range msg.Note[1:] {
			text += "\n" + n
		}
	}
	e.mu.Lock()
	e.messages = append(e.messages, text)
	e.mu.Unlock()
}

// GetMessages drains and returns every buffered message (spec §4.5:
// "readable via get_messages(), draining semantics").
func (e *ErrorBase) GetMessages() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	msgs := e.messages
	e.messages = nil
	return msgs
}
