package engine

import "time"

// Outcome classifies the result of evaluating one rule against one email.
type Outcome string

const (
	// OutcomeNotMatched means the condition evaluated to false.
	OutcomeNotMatched Outcome = "not_matched"
	// OutcomeExecuted means the condition matched and the action was
	// applied successfully.
	OutcomeExecuted Outcome = "executed"
	// OutcomeSkippedInactive means the rule is disabled and was not
	// evaluated.
	OutcomeSkippedInactive Outcome = "skipped_inactive"
	// OutcomeConditionError means the condition failed to parse or
	// evaluate; the rule is treated as a non-match.
	OutcomeConditionError Outcome = "condition_error"
	// OutcomeActionError means the condition matched but the provider
	// mutation failed.
	OutcomeActionError Outcome = "action_error"
)

// RuleResult is the per-rule entry of a run report.
type RuleResult struct {
	RuleID   string  `json:"ruleId"`
	RuleName string  `json:"ruleName"`
	Outcome  Outcome `json:"outcome"`
	// Error carries the condition or action error message, if any.
	Error string `json:"error,omitempty"`
}

// RunReport aggregates the outcomes of one engine run for one email.
type RunReport struct {
	MessageID string        `json:"messageId"`
	Results   []RuleResult  `json:"results"`
	Matched   int           `json:"matched"`
	Executed  int           `json:"executed"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

func (r *RunReport) add(result RuleResult) {
	r.Results = append(r.Results, result)
	switch result.Outcome {
	case OutcomeExecuted:
		r.Matched++
		r.Executed++
	case OutcomeActionError:
		r.Matched++
		r.Failed++
	case OutcomeConditionError:
		r.Failed++
	}
}
