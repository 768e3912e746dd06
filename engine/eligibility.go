package engine

// =============================================================================
// RULE ELIGIBILITY - Single yes/no gate per rule
// =============================================================================

// ShouldExecute composes the enabled flag, trigger compatibility, schedule
// check, and condition evaluation into one gate:
//
//  1. Disabled rules never execute.
//  2. The rule's trigger must match the run's trigger, except that manual
//     rules always pass the trigger check regardless of what invoked the
//     run.
//  3. Time-based triggers must be due per the schedule clock.
//  4. Conditional rules must additionally satisfy all their conditions.
func ShouldExecute(rule Rule, ctx Context) bool {
	if !rule.Enabled {
		return false
	}

	if rule.Trigger != ctx.Trigger && rule.Trigger != TriggerManual {
		return false
	}

	if rule.Trigger.IsTimeBased() {
		if !ScheduleDue(rule.Trigger, rule.LastExecuted, ctx.EffectiveDate()) {
			return false
		}
	}

	if rule.Type == RuleConditional {
		return EvaluateConditions(rule.Config.Conditions, ctx)
	}

	return true
}
