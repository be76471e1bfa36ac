// Package rules is the RuleValidationEngine: a data-driven table of independent
// business rules evaluated over ExtractedData.
package rules

import (
	"github.com/jonathan/contract-auditor/internal/types"
)

// Rule is one row of the rule table.
type Rule struct {
	ID       string
	Field    string
	Severity types.Severity
	// ReviewReason is the contract-level reason recorded when the rule matches.
	ReviewReason string
	// Predicate reports a violation. It must return false when its field is unset.
	Predicate func(types.ExtractedData) bool
	// Message and Reasoning render the issue text for matched data.
	Message   func(types.ExtractedData) string
	Reasoning func(types.ExtractedData) string
}

// Engine evaluates a fixed rule table. Validate is pure and safe for concurrent use.
type Engine struct {
	rules []Rule
}

// NewEngine returns an Engine over a copy of rules, evaluated in order.
func NewEngine(rules []Rule) *Engine {
	return &Engine{rules: append([]Rule(nil), rules...)}
}

// Rules returns the rule table.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Validate evaluates every rule against data; there is no short-circuit.
// Each match adds one issue and its review reason. Review is required iff any rule matched.
func (e *Engine) Validate(data types.ExtractedData) types.ValidationResult {
	result := types.ValidationResult{
		Issues:        []types.ValidationIssue{},
		ReviewReasons: []string{},
	}

	for _, r := range e.rules {
		if r.Predicate == nil || !r.Predicate(data) {
			continue
		}

		issue := types.ValidationIssue{
			Field:    r.Field,
			Rule:     r.ID,
			Severity: r.Severity,
		}
		if r.Message != nil {
			issue.Message = r.Message(data)
		}
		if r.Reasoning != nil {
			if reasoning := r.Reasoning(data); reasoning != "" {
				issue.Reasoning = &reasoning
			}
		}
		result.Issues = append(result.Issues, issue)

		if r.ReviewReason != "" {
			result.ReviewReasons = append(result.ReviewReasons, r.ReviewReason)
		}
	}

	result.RequiresHumanReview = len(result.Issues) > 0
	return result
}
