// Package policy maps evaluation inputs to a disposition through a
// closed, ordered decision table. Pure: no clock, no hidden state.
package policy

import (
	"github.com/vadiminshakov/tradegate/internal/domain"
)

// Inputs are the five facts a routing decision depends on, plus the
// configured execution threshold and the reasons carried by failing
// verdicts. Nothing else may influence the disposition.
type Inputs struct {
	Level         domain.AutonomyLevel
	Confidence    float64
	RiskOK        bool
	SessionOK     bool
	Halted        bool
	MinToExecute  float64
	RiskReason    string
	SessionReason string
}

type rule struct {
	name string
	when func(Inputs) bool
	then func(Inputs) domain.Disposition
}

// table is the decision table from the gateway design. First matching
// row wins; the last row is a catch-all.
var table = []rule{
	{
		name: "halted",
		when: func(in Inputs) bool { return in.Halted },
		then: rejected(func(Inputs) string { return "halted" }),
	},
	{
		name: "session limit",
		when: func(in Inputs) bool { return !in.SessionOK },
		then: rejected(func(in Inputs) string { return "session limit: " + in.SessionReason }),
	},
	{
		name: "risk violation",
		when: func(in Inputs) bool { return !in.RiskOK },
		then: rejected(func(in Inputs) string { return "risk violation: " + in.RiskReason }),
	},
	{
		name: "manual mode",
		when: func(in Inputs) bool { return in.Level == domain.AutonomyNone },
		then: rejected(func(Inputs) string { return "manual mode" }),
	},
	{
		name: "assistant advises",
		when: func(in Inputs) bool { return in.Level == domain.AutonomyAssistant },
		then: func(Inputs) domain.Disposition {
			return domain.Disposition{Kind: domain.DispositionAdvised, Reason: "assistant mode never executes"}
		},
	},
	{
		name: "copilot queues",
		when: func(in Inputs) bool { return in.Level == domain.AutonomyCopilot },
		then: func(Inputs) domain.Disposition {
			return domain.Disposition{Kind: domain.DispositionQueued, Reason: "copilot mode requires approval"}
		},
	},
	{
		name: "confidence fallback",
		when: func(in Inputs) bool {
			return in.Level.AllowsAutoExecution() && in.Confidence < in.MinToExecute
		},
		then: func(Inputs) domain.Disposition {
			return domain.Disposition{Kind: domain.DispositionQueued, Reason: "confidence below execution threshold"}
		},
	},
	{
		name: "auto execute",
		when: func(Inputs) bool { return true },
		then: func(Inputs) domain.Disposition {
			return domain.Disposition{Kind: domain.DispositionAutoExecuted, Reason: "confidence meets execution threshold"}
		},
	},
}

func rejected(reason func(Inputs) string) func(Inputs) domain.Disposition {
	return func(in Inputs) domain.Disposition {
		return domain.Disposition{Kind: domain.DispositionRejected, Reason: reason(in)}
	}
}

// Route walks the table and returns the disposition of the first
// matching row.
func Route(in Inputs) domain.Disposition {
	for _, r := range table {
		if r.when(in) {
			return r.then(in)
		}
	}
	// unreachable: the table ends with a catch-all
	return domain.Disposition{Kind: domain.DispositionRejected, Reason: "no rule matched"}
}
