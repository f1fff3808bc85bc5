package gateway

import "go.uber.org/fx"

func provideProcessor() Processor {
	return NewSimulated()
}

// Module wires the payment capability. Deployments with a real provider swap
// the constructor here.
var Module = fx.Module("gateway",
	fx.Provide(provideProcessor),
)
