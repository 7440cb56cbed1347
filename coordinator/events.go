package coordinator

import "github.com/tailored-agentic-units/hrassist/telemetry"

// Coordinator event types.
const (
	EventStart         telemetry.EventType = "coordinator.start"
	EventLookup        telemetry.EventType = "coordinator.lookup"
	EventResolve       telemetry.EventType = "coordinator.resolve"
	EventFirstToken    telemetry.EventType = "coordinator.first_token"
	EventPersist       telemetry.EventType = "coordinator.persist"
	EventPersistError  telemetry.EventType = "coordinator.persist.error"
	EventStreamAbandon telemetry.EventType = "coordinator.stream.abandoned"
	EventComplete      telemetry.EventType = "coordinator.complete"
	EventError         telemetry.EventType = "coordinator.error"
)
