package domain

import "time"

// EventKind enum for decision log entries.
type EventKind string

const (
	EventKindDecision EventKind = "decision"
	EventKindApproval EventKind = "approval"
)

// DecisionEvent is the journal form of an evaluated decision. It is
// appended to the decision log before any side effect is attempted.
type DecisionEvent struct {
	Timestamp    time.Time `json:"ts"`
	Pair         string    `json:"pair"`
	DecisionID   string    `json:"decision_id"`
	Action       string    `json:"action"`
	Confidence   float64   `json:"confidence"`
	Entry        string    `json:"entry,omitempty"`
	Stop         string    `json:"stop,omitempty"`
	Target       string    `json:"target,omitempty"`
	Size         string    `json:"size,omitempty"`
	Leverage     int       `json:"leverage,omitempty"`
	Reasoning    string    `json:"reasoning"`
	Invalidation string    `json:"invalidation,omitempty"`
	Supersedes   string    `json:"supersedes,omitempty"`
	Disposition  string    `json:"disposition"`
	Reason       string    `json:"reason,omitempty"`
}

// NewDecisionEvent builds the journal form of a decision and its disposition.
func NewDecisionEvent(d Decision, disp Disposition, ts time.Time) DecisionEvent {
	return DecisionEvent{
		Timestamp:    ts,
		Pair:         d.Pair.String(),
		DecisionID:   d.ID,
		Action:       d.Action.String(),
		Confidence:   d.Confidence,
		Entry:        d.Entry.String(),
		Stop:         d.Stop.String(),
		Target:       d.Target.String(),
		Size:         d.Size.String(),
		Leverage:     d.Leverage,
		Reasoning:    d.Reasoning,
		Invalidation: d.Invalidation,
		Supersedes:   d.Supersedes,
		Disposition:  disp.Kind.String(),
		Reason:       disp.Reason,
	}
}

// ApprovalEvent is the journal form of an approval record transition.
type ApprovalEvent struct {
	Timestamp  time.Time `json:"ts"`
	Pair       string    `json:"pair"`
	DecisionID string    `json:"decision_id"`
	State      string    `json:"state"`
	Notes      string    `json:"notes,omitempty"`
	ModifiedID string    `json:"modified_id,omitempty"`
}

// ApprovalEventStateRejectedLate marks a resolution that lost a race
// against a timeout or the kill switch. Logged, never executed.
const ApprovalEventStateRejectedLate = "rejected_late"

// LogRecord bundles a replayed decision log entry with its index.
type LogRecord struct {
	Index uint64
	Kind  EventKind
	// Event is either DecisionEvent or ApprovalEvent.
	Event any
}
