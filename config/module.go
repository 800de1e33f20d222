package config

import (
	"go.uber.org/fx"

	"machinetalk/internal/logx"
)

// Module provides the fx dependency injection options for the config
// package: *Config itself, plus the logx.Logger the rest of the graph
// consumes, built off Config.Logging the way the teacher's logger.Module
// provides a Logger built off *config.Config.
var Module = fx.Options(
	fx.Provide(DefaultConfig),
	fx.Provide(func(cfg *Config) logx.Logger { return cfg.Logger() }),
)
