package domain

// AutonomyLevel controls how much human approval a decision requires
// before it may reach execution.
type AutonomyLevel int

const (
	// AutonomyNone disables the gateway entirely: every decision is rejected.
	AutonomyNone AutonomyLevel = iota
	// AutonomyAssistant surfaces decisions as advice, never executes.
	AutonomyAssistant
	// AutonomyCopilot queues every passing decision for human approval.
	AutonomyCopilot
	// AutonomyAutonomous executes confident decisions, queues the rest.
	AutonomyAutonomous
	// AutonomyAgent behaves like autonomous; reserved for multi-step agents.
	AutonomyAgent
)

const (
	levelStringNone       = "none"
	levelStringAssistant  = "assistant"
	levelStringCopilot    = "copilot"
	levelStringAutonomous = "autonomous"
	levelStringAgent      = "agent"
)

// ParseAutonomyLevel converts a config string to a typed level.
func ParseAutonomyLevel(s string) (AutonomyLevel, bool) {
	switch s {
	case levelStringNone:
		return AutonomyNone, true
	case levelStringAssistant:
		return AutonomyAssistant, true
	case levelStringCopilot:
		return AutonomyCopilot, true
	case levelStringAutonomous:
		return AutonomyAutonomous, true
	case levelStringAgent:
		return AutonomyAgent, true
	}
	return AutonomyNone, false
}

// AllowsAutoExecution reports whether the level may execute without a human.
func (l AutonomyLevel) AllowsAutoExecution() bool {
	return l == AutonomyAutonomous || l == AutonomyAgent
}

// String returns the string representation of the level.
func (l AutonomyLevel) String() string {
	switch l {
	case AutonomyNone:
		return levelStringNone
	case AutonomyAssistant:
		return levelStringAssistant
	case AutonomyCopilot:
		return levelStringCopilot
	case AutonomyAutonomous:
		return levelStringAutonomous
	case AutonomyAgent:
		return levelStringAgent
	default:
		return "unknown"
	}
}
