package engine

import (
	"fmt"
	"strings"

	"roadwatch/internal/config"
	"roadwatch/internal/domain"
)

// RuleTable maps each priority to its escalation rule.
// Params: exactly four entries, one per priority.
// Returns: read-only lookup shared by deadline and escalation evaluation.
type RuleTable struct {
	rules    map[domain.Priority]domain.EscalationRule
	warnings []string
}

// DefaultRules returns the built-in four-entry rule table.
// Params: none.
// Returns: critical/high/medium/low rules.
func DefaultRules() []domain.EscalationRule {
	return []domain.EscalationRule{
		{Priority: domain.PriorityCritical, DeadlineDays: 1, EscalateAfterDays: 1, NotifyRoles: []string{"supervisor", "manager", "director"}},
		{Priority: domain.PriorityHigh, DeadlineDays: 3, EscalateAfterDays: 2, NotifyRoles: []string{"supervisor", "manager"}},
		{Priority: domain.PriorityMedium, DeadlineDays: 7, EscalateAfterDays: 5, NotifyRoles: []string{"supervisor"}},
		{Priority: domain.PriorityLow, DeadlineDays: 14, EscalateAfterDays: 10, NotifyRoles: []string{"supervisor"}},
	}
}

// NewRuleTable validates rules and builds lookup table.
// Params: one rule per priority.
// Returns: rule table or error when the table is incomplete or invalid.
func NewRuleTable(rules []domain.EscalationRule) (*RuleTable, error) {
	table := &RuleTable{rules: make(map[domain.Priority]domain.EscalationRule, len(rules))}
	for i, rule := range rules {
		if !rule.Priority.Known() {
			return nil, fmt.Errorf("rule[%d]: unknown priority %q", i, rule.Priority)
		}
		if _, exists := table.rules[rule.Priority]; exists {
			return nil, fmt.Errorf("rule[%d]: duplicate priority %q", i, rule.Priority)
		}
		if rule.DeadlineDays <= 0 {
			return nil, fmt.Errorf("rule %q: deadline_days must be >0", rule.Priority)
		}
		if rule.EscalateAfterDays <= 0 {
			return nil, fmt.Errorf("rule %q: escalate_after_days must be >0", rule.Priority)
		}
		if len(rule.NotifyRoles) == 0 {
			return nil, fmt.Errorf("rule %q: notify_roles must not be empty", rule.Priority)
		}
		if rule.EscalateAfterDays > rule.DeadlineDays {
			table.warnings = append(table.warnings, fmt.Sprintf(
				"rule %q: escalate_after_days (%d) exceeds deadline_days (%d); escalation waits past the deadline",
				rule.Priority, rule.EscalateAfterDays, rule.DeadlineDays,
			))
		}
		rule.NotifyRoles = append([]string(nil), rule.NotifyRoles...)
		table.rules[rule.Priority] = rule
	}
	for _, priority := range domain.Priorities() {
		if _, ok := table.rules[priority]; !ok {
			return nil, fmt.Errorf("rule table is missing priority %q", priority)
		}
	}
	return table, nil
}

// MustDefaultRuleTable returns the built-in table and panics if it is invalid.
func MustDefaultRuleTable() *RuleTable {
	table, err := NewRuleTable(DefaultRules())
	if err != nil {
		panic(err)
	}
	return table
}

// RuleTableFromConfig overlays configured rule overrides onto the defaults.
// Params: rule overrides keyed by priority name.
// Returns: validated rule table.
func RuleTableFromConfig(overrides map[string]config.RuleConfig) (*RuleTable, error) {
	rules := DefaultRules()
	for i, rule := range rules {
		override, ok := overrides[string(rule.Priority)]
		if !ok {
			continue
		}
		roles := make([]string, 0, len(override.NotifyRoles))
		for _, role := range override.NotifyRoles {
			roles = append(roles, strings.TrimSpace(role))
		}
		rules[i] = domain.EscalationRule{
			Priority:          rule.Priority,
			DeadlineDays:      override.DeadlineDays,
			EscalateAfterDays: override.EscalateAfterDays,
			NotifyRoles:       roles,
		}
	}
	for name := range overrides {
		if !domain.Priority(name).Known() {
			return nil, fmt.Errorf("rule.%s: unknown priority", name)
		}
	}
	return NewRuleTable(rules)
}

// Lookup resolves rule for priority, falling back to medium.
// Params: record priority, possibly empty or unrecognized.
// Returns: resolved rule copy.
func (t *RuleTable) Lookup(priority domain.Priority) domain.EscalationRule {
	rule := t.rules[priority.OrDefault()]
	rule.NotifyRoles = append([]string(nil), rule.NotifyRoles...)
	return rule
}

// Rules returns all rules ordered critical first.
func (t *RuleTable) Rules() []domain.EscalationRule {
	out := make([]domain.EscalationRule, 0, len(t.rules))
	priorities := domain.Priorities()
	for i := len(priorities) - 1; i >= 0; i-- {
		out = append(out, t.Lookup(priorities[i]))
	}
	return out
}

// Warnings lists non-fatal table anomalies detected at construction.
func (t *RuleTable) Warnings() []string {
	return append([]string(nil), t.warnings...)
}
