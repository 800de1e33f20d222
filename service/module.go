package service

import "go.uber.org/fx"

// Module provides the fx dependency injection options for the service
// package.
var Module = fx.Options(
	fx.Provide(NewContainer),
)
