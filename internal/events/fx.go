package events

import "go.uber.org/fx"

// Module wires the billing-event outbox.
var Module = fx.Module("events",
	fx.Provide(NewOutbox),
)
