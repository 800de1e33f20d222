package logx

import "go.uber.org/fx"

// Module provides the fx wiring for the logging facade: a Logger built off
// the zero-value Options (console, info level) for a graph assembled
// without a config.Config. A graph that also includes config.Module should
// use that one instead — combining both would give fx two competing Logger
// providers.
var Module = fx.Options(
	fx.Provide(func() Logger { return New(Options{}) }),
)
