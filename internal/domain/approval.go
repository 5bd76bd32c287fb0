package domain

import "time"

// ApprovalState is the state of a queued decision awaiting human disposition.
type ApprovalState int

const (
	// ApprovalBacklogged means the record waits in the FIFO backlog
	// behind the single pending slot and has not been surfaced yet.
	ApprovalBacklogged ApprovalState = iota
	ApprovalPending
	ApprovalApproved
	ApprovalRejected
	ApprovalModified
	ApprovalTimedOut
)

const (
	approvalStringBacklogged = "backlogged"
	approvalStringPending    = "pending"
	approvalStringApproved   = "approved"
	approvalStringRejected   = "rejected"
	approvalStringModified   = "modified"
	approvalStringTimedOut   = "timed_out"
)

// Terminal reports whether the state admits no further transitions.
func (s ApprovalState) Terminal() bool {
	switch s {
	case ApprovalApproved, ApprovalRejected, ApprovalModified, ApprovalTimedOut:
		return true
	}
	return false
}

// String returns the string representation of the state.
func (s ApprovalState) String() string {
	switch s {
	case ApprovalBacklogged:
		return approvalStringBacklogged
	case ApprovalPending:
		return approvalStringPending
	case ApprovalApproved:
		return approvalStringApproved
	case ApprovalRejected:
		return approvalStringRejected
	case ApprovalModified:
		return approvalStringModified
	case ApprovalTimedOut:
		return approvalStringTimedOut
	default:
		return "unknown"
	}
}

// ApprovalRecord links a queued decision to its human resolution.
type ApprovalRecord struct {
	Decision    Decision
	State       ApprovalState
	SubmittedAt time.Time
	// Deadline is set when the record is surfaced to the human layer.
	Deadline   time.Time
	ResolvedAt time.Time
	Notes      string
	// Modified holds the superseding decision for modified resolutions.
	Modified *Decision
}

// ModifiedID returns the id of the superseding decision, if any.
func (r ApprovalRecord) ModifiedID() string {
	if r.Modified == nil {
		return ""
	}
	return r.Modified.ID
}

// VerdictKind is the human resolution applied to a pending record.
type VerdictKind int

const (
	VerdictApprove VerdictKind = iota
	VerdictReject
	VerdictModify
)

// Verdict is a human resolution delivered to the approval queue.
type Verdict struct {
	Kind  VerdictKind
	Notes string
	// Modified carries the replacement decision for VerdictModify.
	Modified *Decision
}

// Approve builds an approval verdict.
func Approve(notes string) Verdict {
	return Verdict{Kind: VerdictApprove, Notes: notes}
}

// Reject builds a rejection verdict.
func Reject(reason string) Verdict {
	return Verdict{Kind: VerdictReject, Notes: reason}
}

// Modify builds a modification verdict carrying the superseding decision.
func Modify(d Decision, notes string) Verdict {
	return Verdict{Kind: VerdictModify, Notes: notes, Modified: &d}
}
