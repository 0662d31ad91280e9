package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mailrules/internal/mail"
	"github.com/teemow/mailrules/internal/rules"
)

type providerCall struct {
	messageID string
	add       []string
	remove    []string
}

type stubProvider struct {
	labels    []mail.Label
	created   int
	calls     []providerCall
	modifyErr error
}

func (p *stubProvider) ListLabels(context.Context, string) ([]mail.Label, error) {
	return p.labels, nil
}

func (p *stubProvider) CreateLabel(_ context.Context, _ string, name string) (mail.Label, error) {
	p.created++
	label := mail.Label{ID: "Label_new", Name: name, Type: "user"}
	p.labels = append(p.labels, label)
	return label, nil
}

func (p *stubProvider) ModifyMessage(_ context.Context, _ string, messageID string, add, remove []string) error {
	if p.modifyErr != nil {
		return p.modifyErr
	}
	p.calls = append(p.calls, providerCall{messageID: messageID, add: add, remove: remove})
	return nil
}

type stubFolderStore struct {
	folders []mail.Folder
}

func (s *stubFolderStore) List(context.Context, string) ([]mail.Folder, error) {
	return s.folders, nil
}

func (s *stubFolderStore) Upsert(_ context.Context, _ string, folder mail.Folder) error {
	s.folders = append(s.folders, folder)
	return nil
}

func newTestExecutor(provider *stubProvider) *Executor {
	resolver := mail.NewResolver(provider, &stubFolderStore{}, nil)
	return NewExecutor(provider, resolver, nil, nil)
}

func TestApplyMarkRead(t *testing.T) {
	provider := &stubProvider{}
	executor := newTestExecutor(provider)

	rule := activeRule("r1", "read", `true`, rules.ActionMarkRead)
	require.NoError(t, executor.Apply(context.Background(), "tok", "u1", testEmail(), rule))

	// Exactly one modify call removing UNREAD and adding nothing
	require.Len(t, provider.calls, 1)
	assert.Equal(t, "msg-1", provider.calls[0].messageID)
	assert.Empty(t, provider.calls[0].add)
	assert.Equal(t, []string{mail.LabelUnread}, provider.calls[0].remove)
}

func TestApplyMarkImportant(t *testing.T) {
	provider := &stubProvider{}
	executor := newTestExecutor(provider)

	rule := activeRule("r1", "flag", `true`, rules.ActionMarkImportant)
	require.NoError(t, executor.Apply(context.Background(), "tok", "u1", testEmail(), rule))

	require.Len(t, provider.calls, 1)
	assert.Equal(t, []string{mail.LabelImportant}, provider.calls[0].add)
	assert.Empty(t, provider.calls[0].remove)
}

func TestApplyMoveToFolderExistingLabel(t *testing.T) {
	provider := &stubProvider{labels: []mail.Label{
		{ID: "Label_42", Name: "Receipts", Type: "user"},
	}}
	executor := newTestExecutor(provider)

	rule := activeRule("r1", "move", `true`, rules.ActionMoveToFolder)
	rule.Parameters.FolderName = "receipts"
	require.NoError(t, executor.Apply(context.Background(), "tok", "u1", testEmail(), rule))

	assert.Zero(t, provider.created)
	require.Len(t, provider.calls, 1)
	assert.Equal(t, []string{"Label_42"}, provider.calls[0].add)
	assert.Equal(t, []string{mail.LabelInbox}, provider.calls[0].remove)
}

func TestApplyMoveToFolderCreatesLabel(t *testing.T) {
	provider := &stubProvider{}
	executor := newTestExecutor(provider)

	rule := activeRule("r1", "move", `true`, rules.ActionMoveToFolder)
	rule.Parameters.FolderName = "Receipts"
	require.NoError(t, executor.Apply(context.Background(), "tok", "u1", testEmail(), rule))

	assert.Equal(t, 1, provider.created)
	require.Len(t, provider.calls, 1)
	assert.Equal(t, []string{"Label_new"}, provider.calls[0].add)
}

func TestApplyMoveFailureLeavesFolderCreated(t *testing.T) {
	provider := &stubProvider{modifyErr: errors.New("message not found")}
	executor := newTestExecutor(provider)

	rule := activeRule("r1", "move", `true`, rules.ActionMoveToFolder)
	rule.Parameters.FolderName = "Receipts"
	err := executor.Apply(context.Background(), "tok", "u1", testEmail(), rule)

	// Partial failure: the folder label exists, the message is unmoved
	require.Error(t, err)
	assert.Equal(t, 1, provider.created)
	assert.Empty(t, provider.calls)
}

func TestApplyUnknownAction(t *testing.T) {
	executor := newTestExecutor(&stubProvider{})
	rule := activeRule("r1", "bad", `true`, rules.Action("forward"))

	err := executor.Apply(context.Background(), "tok", "u1", testEmail(), rule)
	assert.Error(t, err)
}

func TestEngineEndToEndAmazonMarkRead(t *testing.T) {
	provider := &stubProvider{}
	executor := newTestExecutor(provider)
	eng := New(
		&fakeTokens{token: "tok"},
		&fakeRules{rules: []rules.Rule{
			activeRule("r1", "amazon", `sender.contains("amazon")`, rules.ActionMarkRead),
		}},
		executor, nil, nil)

	report, err := eng.ProcessIncomingEmail(context.Background(), "u1", testEmail())
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, OutcomeExecuted, report.Results[0].Outcome)
	require.Len(t, provider.calls, 1)
	assert.Equal(t, []string{mail.LabelUnread}, provider.calls[0].remove)
}
