package domain

// DispositionKind is the routed outcome of evaluating a decision.
type DispositionKind int

const (
	// DispositionDropped marks a decision below the suggestion threshold.
	// Dropped decisions are returned to the caller but never recorded.
	DispositionDropped DispositionKind = iota
	DispositionAutoExecuted
	DispositionQueued
	DispositionAdvised
	DispositionRejected
)

const (
	dispositionStringDropped      = "dropped"
	dispositionStringAutoExecuted = "auto_executed"
	dispositionStringQueued       = "queued"
	dispositionStringAdvised      = "advised"
	dispositionStringRejected     = "rejected"
)

// Disposition carries the routed outcome together with the rule
// that produced it.
type Disposition struct {
	Kind   DispositionKind
	Reason string
}

// String returns the string representation of the kind.
func (k DispositionKind) String() string {
	switch k {
	case DispositionDropped:
		return dispositionStringDropped
	case DispositionAutoExecuted:
		return dispositionStringAutoExecuted
	case DispositionQueued:
		return dispositionStringQueued
	case DispositionAdvised:
		return dispositionStringAdvised
	case DispositionRejected:
		return dispositionStringRejected
	default:
		return "unknown"
	}
}
