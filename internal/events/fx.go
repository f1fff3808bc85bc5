package events

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func provideEmitter(log *zap.Logger) Emitter {
	return NewDispatcher(log)
}

// Module wires the domain event dispatcher.
var Module = fx.Module("events",
	fx.Provide(provideEmitter),
)
