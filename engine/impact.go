package engine

import "github.com/shopspring/decimal"

// =============================================================================
// IMPACT PROJECTOR - Read-only balance preview
// =============================================================================

// EnvelopeImpact is the projected effect of planned transfers on one
// envelope.
type EnvelopeImpact struct {
	ID             EnvelopeID
	Name           string
	CurrentBalance Money
	Change         Money
	NewBalance     Money
	MonthlyTarget  *Money

	// Fill percentages are NewBalance (resp. CurrentBalance) relative to
	// the monthly target; zero when the envelope has no positive target.
	FillPercentage    decimal.Decimal
	NewFillPercentage decimal.Decimal
}

// TransferImpact aggregates the projected effect of a transfer list.
type TransferImpact struct {
	Envelopes        map[EnvelopeID]*EnvelopeImpact
	UnassignedChange Money // Negative of TotalTransferred
	TotalTransferred Money
}

// ProjectImpact computes projected balances and fill percentages for the
// given transfers against the original snapshots. Pure projection for
// display; it never influences the simulation decision itself.
func ProjectImpact(transfers []PlannedTransfer, envelopes []EnvelopeSnapshot) TransferImpact {
	impact := TransferImpact{
		Envelopes:        make(map[EnvelopeID]*EnvelopeImpact, len(envelopes)),
		UnassignedChange: Zero(),
		TotalTransferred: Zero(),
	}

	for _, env := range envelopes {
		impact.Envelopes[env.ID] = &EnvelopeImpact{
			ID:             env.ID,
			Name:           env.Name,
			CurrentBalance: env.CurrentBalance,
			Change:         Zero(),
			NewBalance:     env.CurrentBalance,
			MonthlyTarget:  env.MonthlyTarget,
			FillPercentage: env.FillPercentage(),
		}
	}

	impact.TotalTransferred = SumTransfers(transfers)
	impact.UnassignedChange = impact.TotalTransferred.Neg()

	for _, transfer := range transfers {
		env, ok := impact.Envelopes[transfer.ToEnvelopeID]
		if !ok {
			continue
		}
		env.Change = env.Change.Add(transfer.Amount)
		env.NewBalance = env.CurrentBalance.Add(env.Change)
		env.NewFillPercentage = fillPercentage(env.NewBalance, env.MonthlyTarget)
	}

	return impact
}
