package sla

import "github.com/spec-kit/sla-monitor/internal/domain"

// Resolve selects the most specific active rule matching the ticket.
// Specificity scores +2 for an exact entity match and +1 for an exact
// priority match. Ties prefer a non-nil entity, then a non-nil priority,
// then the lowest rule id, so resolution is deterministic for any input
// order. Returns nil when no active rule matches; callers skip SLA
// evaluation in that case.
func Resolve(ticket *domain.Ticket, rules []domain.SlaRule) *domain.SlaRule {
	var best *domain.SlaRule
	bestScore := -1

	for i := range rules {
		rule := &rules[i]
		if !rule.IsActive || rule.Validate() != nil || !rule.AppliesTo(ticket) {
			continue
		}
		score := specificity(rule)
		if best == nil || score > bestScore || (score == bestScore && beatsOnTie(rule, best)) {
			best = rule
			bestScore = score
		}
	}
	return best
}

func specificity(rule *domain.SlaRule) int {
	score := 0
	if rule.EntityID != nil {
		score += 2
	}
	if rule.Priority != nil {
		score++
	}
	return score
}

func beatsOnTie(candidate, incumbent *domain.SlaRule) bool {
	if (candidate.EntityID != nil) != (incumbent.EntityID != nil) {
		return candidate.EntityID != nil
	}
	if (candidate.Priority != nil) != (incumbent.Priority != nil) {
		return candidate.Priority != nil
	}
	return candidate.ID < incumbent.ID
}
