package engine

// =============================================================================
// TRANSFER PLANNER - Funding amount -> planned transfers
// =============================================================================

// PlanTransfers converts a rule's funding amount into planned transfers.
// Single-target types produce one transfer from the unassigned pool to the
// configured target (none when no target is configured). Split-remainder
// fans the amount out across TargetIDs in configured order via SplitExact,
// so the transfer amounts sum to the funding amount exactly.
func PlanTransfers(rule Rule, amount Money) []PlannedTransfer {
	switch rule.Type {
	case RuleFixedAmount, RulePercentage, RuleConditional, RulePriorityFill:
		if rule.Config.TargetID == "" {
			return nil
		}
		return []PlannedTransfer{{
			FromEnvelopeID: UnassignedPool,
			ToEnvelopeID:   rule.Config.TargetID,
			Amount:         amount,
			Description:    "Auto-funding: " + rule.Name,
			RuleID:         rule.ID,
			RuleName:       rule.Name,
		}}

	case RuleSplitRemainder:
		if len(rule.Config.TargetIDs) == 0 {
			return nil
		}
		parts := SplitExact(amount, len(rule.Config.TargetIDs))
		transfers := make([]PlannedTransfer, 0, len(parts))
		for i, envelopeID := range rule.Config.TargetIDs {
			transfers = append(transfers, PlannedTransfer{
				FromEnvelopeID: UnassignedPool,
				ToEnvelopeID:   envelopeID,
				Amount:         parts[i],
				Description:    "Auto-funding (split): " + rule.Name,
				RuleID:         rule.ID,
				RuleName:       rule.Name,
			})
		}
		return transfers

	default:
		return nil
	}
}
