package domain

// Action represents the type of trading action proposed by a decision.
type Action int

const (
	ActionLong Action = iota
	ActionShort
	ActionClose
	ActionAdjust
	ActionWait
)

// action string constants to avoid magic strings
const (
	actionStringLong   = "long"
	actionStringShort  = "short"
	actionStringClose  = "close"
	actionStringAdjust = "adjust"
	actionStringWait   = "wait"
)

// ParseAction converts an action string to a typed Action.
func ParseAction(s string) (Action, bool) {
	switch s {
	case actionStringLong:
		return ActionLong, true
	case actionStringShort:
		return ActionShort, true
	case actionStringClose:
		return ActionClose, true
	case actionStringAdjust:
		return ActionAdjust, true
	case actionStringWait:
		return ActionWait, true
	}
	return ActionWait, false
}

// IsOpening reports whether the action opens a new position.
// Opening actions require a stop price on the decision.
func (a Action) IsOpening() bool {
	return a == ActionLong || a == ActionShort
}

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionLong:
		return actionStringLong
	case ActionShort:
		return actionStringShort
	case ActionClose:
		return actionStringClose
	case ActionAdjust:
		return actionStringAdjust
	case ActionWait:
		return actionStringWait
	default:
		return "unknown"
	}
}
