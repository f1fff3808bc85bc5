package config

import "go.uber.org/fx"

// Module wires application and settlement configuration.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewSettlementPolicyHolder,
	),
)
