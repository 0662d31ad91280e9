package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/mailrules/internal/condition"
	"github.com/teemow/mailrules/internal/instrumentation"
	"github.com/teemow/mailrules/internal/logging"
	"github.com/teemow/mailrules/internal/rules"
)

// TokenSource supplies valid access tokens per identity. Satisfied by
// *auth.Refresher.
type TokenSource interface {
	EnsureValid(ctx context.Context, userKey string) (string, error)
}

// RuleSource lists an identity's rules in creation order. Satisfied by
// *rules.Repository.
type RuleSource interface {
	List(ctx context.Context, userKey string) ([]rules.Rule, error)
}

// ActionExecutor applies a matched rule's action. Satisfied by *Executor.
type ActionExecutor interface {
	Apply(ctx context.Context, accessToken, userKey string, email rules.Email, rule rules.Rule) error
}

// Engine runs a user's rules against incoming email.
type Engine struct {
	tokens   TokenSource
	rules    RuleSource
	executor ActionExecutor
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
	now      func() time.Time
}

// New creates an Engine. logger and metrics may be nil.
func New(tokens TokenSource, ruleSource RuleSource, executor ActionExecutor, logger *slog.Logger, metrics *instrumentation.Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		tokens:   tokens,
		rules:    ruleSource,
		executor: executor,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// ProcessIncomingEmail evaluates all of the identity's active rules
// against the email, in creation order, applying the action of every
// rule that matches.
//
// A missing or unrefreshable credential and a failing rule store abort
// the run: nothing can proceed without a token or a rule list. Everything
// after that is isolated per rule - a condition error counts as a
// non-match and an action error is recorded while the remaining rules
// still run. The returned report carries one entry per rule.
func (e *Engine) ProcessIncomingEmail(ctx context.Context, userKey string, email rules.Email) (*RunReport, error) {
	start := e.now()
	logger := e.logger.With(
		logging.UserHash(userKey),
		slog.String(logging.KeyMessage, email.MessageID))

	accessToken, err := e.tokens.EnsureValid(ctx, userKey)
	if err != nil {
		e.metrics.RecordEmailProcessed(ctx, false)
		return nil, err
	}

	ruleList, err := e.rules.List(ctx, userKey)
	if err != nil {
		e.metrics.RecordEmailProcessed(ctx, false)
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	report := &RunReport{MessageID: email.MessageID}
	attrs := email.Attributes()

	for _, rule := range ruleList {
		result := e.evaluateRule(ctx, accessToken, userKey, email, attrs, rule, logger)
		e.metrics.RecordRuleOutcome(ctx, string(result.Outcome))
		report.add(result)
	}

	report.Duration = e.now().Sub(start)
	e.metrics.RecordEmailProcessed(ctx, true)
	logger.Info("email processed",
		logging.Operation("process_email"),
		slog.Int("rules", len(ruleList)),
		slog.Int("matched", report.Matched),
		slog.Int("executed", report.Executed),
		slog.Int("failed", report.Failed),
		slog.Duration(logging.KeyDuration, report.Duration))
	return report, nil
}

func (e *Engine) evaluateRule(ctx context.Context, accessToken, userKey string, email rules.Email, attrs rules.EmailAttributes, rule rules.Rule, logger *slog.Logger) RuleResult {
	result := RuleResult{RuleID: rule.ID, RuleName: rule.Name}

	if !rule.IsActive {
		result.Outcome = OutcomeSkippedInactive
		return result
	}

	// Conditions are parse-checked at rule creation, but a rule written
	// before a grammar change may no longer parse; treat that as a
	// non-match, not a crash.
	expr, err := condition.Parse(rule.Condition)
	if err != nil {
		logger.Warn("rule condition failed to parse",
			logging.Operation("rule_evaluate"),
			slog.String(logging.KeyRule, rule.ID),
			logging.Err(err))
		result.Outcome = OutcomeConditionError
		result.Error = err.Error()
		return result
	}

	matched, err := expr.Eval(attrs)
	if err != nil {
		logger.Warn("rule condition failed to evaluate",
			logging.Operation("rule_evaluate"),
			slog.String(logging.KeyRule, rule.ID),
			logging.Err(err))
		result.Outcome = OutcomeConditionError
		result.Error = err.Error()
		return result
	}
	if !matched {
		result.Outcome = OutcomeNotMatched
		return result
	}

	if err := e.executor.Apply(ctx, accessToken, userKey, email, rule); err != nil {
		logger.Error("rule action failed",
			logging.Operation("action_apply"),
			slog.String(logging.KeyRule, rule.ID),
			slog.String("action", string(rule.Action)),
			logging.Err(err))
		result.Outcome = OutcomeActionError
		result.Error = err.Error()
		return result
	}

	result.Outcome = OutcomeExecuted
	return result
}
