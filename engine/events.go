package engine

import "github.com/tailored-agentic-units/hrassist/telemetry"

// Agent event types emitted during the tool loop.
const (
	EventRunStart       telemetry.EventType = "engine.run.start"
	EventIterationStart telemetry.EventType = "engine.iteration.start"
	EventToolCall       telemetry.EventType = "engine.tool.call"
	EventToolComplete   telemetry.EventType = "engine.tool.complete"
	EventResponse       telemetry.EventType = "engine.response"
	EventError          telemetry.EventType = "engine.error"
)
