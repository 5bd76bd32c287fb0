package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vadiminshakov/tradegate/internal/domain"
)

func passing(level domain.AutonomyLevel, confidence float64) Inputs {
	return Inputs{
		Level:        level,
		Confidence:   confidence,
		RiskOK:       true,
		SessionOK:    true,
		MinToExecute: 0.75,
	}
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name       string
		in         Inputs
		wantKind   domain.DispositionKind
		wantReason string
	}{
		{
			name: "halted dominates everything",
			in: func() Inputs {
				in := passing(domain.AutonomyAgent, 0.99)
				in.Halted = true
				return in
			}(),
			wantKind:   domain.DispositionRejected,
			wantReason: "halted",
		},
		{
			name: "session limit beats risk",
			in: Inputs{
				Level:         domain.AutonomyAutonomous,
				Confidence:    0.9,
				RiskOK:        false,
				SessionOK:     false,
				MinToExecute:  0.75,
				RiskReason:    "leverage too high",
				SessionReason: "max daily trades reached (10)",
			},
			wantKind:   domain.DispositionRejected,
			wantReason: "session limit: max daily trades reached (10)",
		},
		{
			name: "risk violation rejects",
			in: func() Inputs {
				in := passing(domain.AutonomyAutonomous, 0.9)
				in.RiskOK = false
				in.RiskReason = "leverage too high: 20 > 10 max"
				return in
			}(),
			wantKind:   domain.DispositionRejected,
			wantReason: "risk violation: leverage too high: 20 > 10 max",
		},
		{
			name:       "none rejects even perfect decisions",
			in:         passing(domain.AutonomyNone, 0.99),
			wantKind:   domain.DispositionRejected,
			wantReason: "manual mode",
		},
		{
			name:     "assistant advises",
			in:       passing(domain.AutonomyAssistant, 0.99),
			wantKind: domain.DispositionAdvised,
		},
		{
			name:     "copilot queues regardless of confidence",
			in:       passing(domain.AutonomyCopilot, 0.99),
			wantKind: domain.DispositionQueued,
		},
		{
			name:     "autonomous below execution threshold queues",
			in:       passing(domain.AutonomyAutonomous, 0.55),
			wantKind: domain.DispositionQueued,
		},
		{
			name:     "autonomous at threshold executes",
			in:       passing(domain.AutonomyAutonomous, 0.75),
			wantKind: domain.DispositionAutoExecuted,
		},
		{
			name:     "agent above threshold executes",
			in:       passing(domain.AutonomyAgent, 0.9),
			wantKind: domain.DispositionAutoExecuted,
		},
		{
			name:     "agent below threshold queues",
			in:       passing(domain.AutonomyAgent, 0.7),
			wantKind: domain.DispositionQueued,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			disp := Route(tc.in)
			assert.Equal(t, tc.wantKind, disp.Kind)
			if tc.wantReason != "" {
				assert.Equal(t, tc.wantReason, disp.Reason)
			}
			assert.NotEmpty(t, disp.Reason, "every disposition carries a reason")
		})
	}
}

func TestRoute_Deterministic(t *testing.T) {
	in := passing(domain.AutonomyCopilot, 0.8)
	first := Route(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Route(in))
	}
}
