package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mailrules/internal/auth"
	"github.com/teemow/mailrules/internal/rules"
)

type fakeTokens struct {
	token string
	err   error
	calls int
}

func (f *fakeTokens) EnsureValid(context.Context, string) (string, error) {
	f.calls++
	return f.token, f.err
}

type fakeRules struct {
	rules []rules.Rule
	err   error
}

func (f *fakeRules) List(context.Context, string) ([]rules.Rule, error) {
	return f.rules, f.err
}

type appliedAction struct {
	ruleID string
	action rules.Action
}

type fakeExecutor struct {
	applied []appliedAction
	failFor map[string]error // rule ID -> error
}

func (f *fakeExecutor) Apply(_ context.Context, _, _ string, _ rules.Email, rule rules.Rule) error {
	if err, ok := f.failFor[rule.ID]; ok {
		return err
	}
	f.applied = append(f.applied, appliedAction{ruleID: rule.ID, action: rule.Action})
	return nil
}

func activeRule(id, name, cond string, action rules.Action) rules.Rule {
	return rules.Rule{
		ID:        id,
		Name:      name,
		Condition: cond,
		Action:    action,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
}

func testEmail() rules.Email {
	return rules.Email{
		MessageID:      "msg-1",
		Subject:        "Your order has shipped",
		Sender:         "Amazon Orders",
		SenderEmail:    "ship-confirm@amazon.com",
		IsRead:         false,
		HasAttachments: false,
	}
}

func TestProcessMatchedRuleExecutes(t *testing.T) {
	executor := &fakeExecutor{}
	eng := New(
		&fakeTokens{token: "tok"},
		&fakeRules{rules: []rules.Rule{
			activeRule("r1", "amazon to read", `sender.contains("amazon")`, rules.ActionMarkRead),
		}},
		executor, nil, nil)

	report, err := eng.ProcessIncomingEmail(context.Background(), "u1", testEmail())
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, OutcomeExecuted, report.Results[0].Outcome)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.Executed)
	assert.Zero(t, report.Failed)
	require.Len(t, executor.applied, 1)
	assert.Equal(t, rules.ActionMarkRead, executor.applied[0].action)
}

func TestProcessInactiveRuleNeverExecutes(t *testing.T) {
	executor := &fakeExecutor{}
	eng := New(
		&fakeTokens{token: "tok"},
		&fakeRules{rules: []rules.Rule{
			activeRule("r1", "active", `sender.contains("amazon")`, rules.ActionMarkRead),
			{
				ID: "r2", Name: "inactive", Condition: `sender.contains("amazon")`,
				Action: rules.ActionMarkImportant, IsActive: false,
			},
		}},
		executor, nil, nil)

	report, err := eng.ProcessIncomingEmail(context.Background(), "u1", testEmail())
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, OutcomeExecuted, report.Results[0].Outcome)
	assert.Equal(t, OutcomeSkippedInactive, report.Results[1].Outcome)
	require.Len(t, executor.applied, 1)
	assert.Equal(t, "r1", executor.applied[0].ruleID)
}

func TestProcessActionFailureIsIsolated(t *testing.T) {
	executor := &fakeExecutor{failFor: map[string]error{
		"r1": errors.New("permission denied"),
	}}
	eng := New(
		&fakeTokens{token: "tok"},
		&fakeRules{rules: []rules.Rule{
			activeRule("r1", "first", `sender.contains("amazon")`, rules.ActionMarkImportant),
			activeRule("r2", "second", `sender.contains("amazon")`, rules.ActionMarkRead),
		}},
		executor, nil, nil)

	report, err := eng.ProcessIncomingEmail(context.Background(), "u1", testEmail())
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, OutcomeActionError, report.Results[0].Outcome)
	assert.Contains(t, report.Results[0].Error, "permission denied")
	// Rule B still executes after rule A's action failed
	assert.Equal(t, OutcomeExecuted, report.Results[1].Outcome)
	assert.Equal(t, 2, report.Matched)
	assert.Equal(t, 1, report.Executed)
	assert.Equal(t, 1, report.Failed)
}

func TestProcessConditionErrorIsNonMatch(t *testing.T) {
	executor := &fakeExecutor{}
	eng := New(
		&fakeTokens{token: "tok"},
		&fakeRules{rules: []rules.Rule{
			{ID: "r1", Name: "broken", Condition: `subject ==`, Action: rules.ActionMarkRead, IsActive: true},
			activeRule("r2", "ok", `true`, rules.ActionMarkRead),
		}},
		executor, nil, nil)

	report, err := eng.ProcessIncomingEmail(context.Background(), "u1", testEmail())
	require.NoError(t, err)

	assert.Equal(t, OutcomeConditionError, report.Results[0].Outcome)
	assert.Equal(t, OutcomeExecuted, report.Results[1].Outcome)
	require.Len(t, executor.applied, 1)
}

func TestProcessMultipleRulesMayMatch(t *testing.T) {
	executor := &fakeExecutor{}
	eng := New(
		&fakeTokens{token: "tok"},
		&fakeRules{rules: []rules.Rule{
			activeRule("r1", "important", `sender.contains("amazon")`, rules.ActionMarkImportant),
			activeRule("r2", "read", `!isRead`, rules.ActionMarkRead),
		}},
		executor, nil, nil)

	report, err := eng.ProcessIncomingEmail(context.Background(), "u1", testEmail())
	require.NoError(t, err)

	// No short-circuiting: both rules fire, in list order
	assert.Equal(t, 2, report.Executed)
	require.Len(t, executor.applied, 2)
	assert.Equal(t, "r1", executor.applied[0].ruleID)
	assert.Equal(t, "r2", executor.applied[1].ruleID)
}

func TestProcessUnauthenticatedAbortsRun(t *testing.T) {
	executor := &fakeExecutor{}
	eng := New(
		&fakeTokens{err: auth.ErrUnauthenticated},
		&fakeRules{rules: []rules.Rule{
			activeRule("r1", "rule", `true`, rules.ActionMarkRead),
		}},
		executor, nil, nil)

	report, err := eng.ProcessIncomingEmail(context.Background(), "u1", testEmail())
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	assert.Nil(t, report)
	assert.Empty(t, executor.applied)
}

func TestProcessReauthenticationRequiredAbortsRun(t *testing.T) {
	eng := New(
		&fakeTokens{err: auth.ErrReauthenticationRequired},
		&fakeRules{}, &fakeExecutor{}, nil, nil)

	_, err := eng.ProcessIncomingEmail(context.Background(), "u1", testEmail())
	assert.ErrorIs(t, err, auth.ErrReauthenticationRequired)
}

func TestProcessRuleStoreFailureAbortsRun(t *testing.T) {
	eng := New(
		&fakeTokens{token: "tok"},
		&fakeRules{err: errors.New("connection refused")},
		&fakeExecutor{}, nil, nil)

	report, err := eng.ProcessIncomingEmail(context.Background(), "u1", testEmail())
	require.Error(t, err)
	assert.Nil(t, report)
}

func TestProcessNoRules(t *testing.T) {
	eng := New(&fakeTokens{token: "tok"}, &fakeRules{}, &fakeExecutor{}, nil, nil)

	report, err := eng.ProcessIncomingEmail(context.Background(), "u1", testEmail())
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Zero(t, report.Matched)
}

func TestProcessCaseInsensitiveMatching(t *testing.T) {
	executor := &fakeExecutor{}
	eng := New(
		&fakeTokens{token: "tok"},
		&fakeRules{rules: []rules.Rule{
			activeRule("r1", "linkedin", `senderEmail.contains("linkedin.com")`, rules.ActionMarkRead),
		}},
		executor, nil, nil)

	email := testEmail()
	email.SenderEmail = "NOTIFICATIONS@LINKEDIN.COM"

	report, err := eng.ProcessIncomingEmail(context.Background(), "u1", email)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExecuted, report.Results[0].Outcome)
}
