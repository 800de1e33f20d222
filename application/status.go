package application

import (
	"machinetalk/channel"
	"machinetalk/container"
	"machinetalk/endpoint"
	"machinetalk/internal/logx"
	"machinetalk/statuspb"
)

// Status is the typed surface over StatusBase: a subscribed, merged mirror
// of the server's motion/task/io/config/interp sub-trees.
type Status struct {
	*endpoint.StatusBase
}

// NewStatus builds a Status endpoint over a StatusSubscribe bound to uri,
// subscribed to every topic in topics (spec §4.5; pass statuspb.AllTopics
// for the common case of mirroring everything). opts overrides the
// channel's default heartbeat/liveness, e.g. cfg.ChannelOptions() off a
// loaded config.Config.
func NewStatus(uri string, topics []statuspb.Topic, log logx.Logger, opts ...channel.Option) *Status {
	sub := channel.NewStatusSubscribe(uri, container.MsgEmcStatusFullUpdate, log, opts...)
	for _, t := range topics {
		sub.AddTopic(string(t))
	}
	return &Status{StatusBase: endpoint.NewStatusBase(sub, log)}
}
