package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	rules     []Rule
	listErr   error
	createErr error
	updateErr error
	deleteErr error
}

func (f *fakeStore) List(_ context.Context, userKey string) ([]Rule, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Rule
	for _, r := range f.rules {
		if r.UserKey == userKey {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, rule Rule) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.rules = append(f.rules, rule)
	return nil
}

func (f *fakeStore) Update(_ context.Context, rule Rule) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.rules {
		if f.rules[i].ID == rule.ID && f.rules[i].UserKey == rule.UserKey {
			rule.CreatedAt = f.rules[i].CreatedAt
			f.rules[i] = rule
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) Delete(_ context.Context, userKey, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.rules {
		if f.rules[i].ID == id && f.rules[i].UserKey == userKey {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return nil
		}
	}
	return nil
}

func validDraft() Draft {
	return Draft{
		Name:      "Mark Amazon read",
		Condition: `sender.contains("amazon")`,
		Action:    ActionMarkRead,
		IsActive:  true,
	}
}

func TestCreateAssignsIdentityAndTimestamps(t *testing.T) {
	store := &fakeStore{}
	repo := NewRepository(store, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	rule, err := repo.Create(context.Background(), "u1", validDraft())
	require.NoError(t, err)

	assert.NotEmpty(t, rule.ID)
	assert.Equal(t, "u1", rule.UserKey)
	assert.Equal(t, fixed, rule.CreatedAt)
	assert.Equal(t, fixed, rule.UpdatedAt)
	require.Len(t, store.rules, 1)
	assert.Equal(t, rule.ID, store.rules[0].ID)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Draft)
		wantMsg string
	}{
		{
			name:    "empty name",
			mutate:  func(d *Draft) { d.Name = "" },
			wantMsg: "name",
		},
		{
			name:    "empty condition",
			mutate:  func(d *Draft) { d.Condition = "" },
			wantMsg: "condition",
		},
		{
			name:    "condition does not parse",
			mutate:  func(d *Draft) { d.Condition = `os.exec("rm -rf /")` },
			wantMsg: "",
		},
		{
			name:    "unknown action",
			mutate:  func(d *Draft) { d.Action = "forward_to" },
			wantMsg: "unknown action",
		},
		{
			name: "move to folder without folder name",
			mutate: func(d *Draft) {
				d.Action = ActionMoveToFolder
				d.Parameters.FolderName = ""
			},
			wantMsg: "folder name required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			repo := NewRepository(store, nil)

			draft := validDraft()
			tt.mutate(&draft)

			_, err := repo.Create(context.Background(), "u1", draft)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
			assert.Empty(t, store.rules, "invalid draft must not reach storage")
		})
	}
}

func TestCreateMoveToFolderWithName(t *testing.T) {
	repo := NewRepository(&fakeStore{}, nil)

	draft := validDraft()
	draft.Action = ActionMoveToFolder
	draft.Parameters.FolderName = "Receipts"

	rule, err := repo.Create(context.Background(), "u1", draft)
	require.NoError(t, err)
	assert.Equal(t, "Receipts", rule.Parameters.FolderName)
}

func TestCreateStorageError(t *testing.T) {
	repo := NewRepository(&fakeStore{createErr: errors.New("disk full")}, nil)

	_, err := repo.Create(context.Background(), "u1", validDraft())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "disk full")
}

func TestUpdateReplacesRule(t *testing.T) {
	store := &fakeStore{}
	repo := NewRepository(store, nil)

	created, err := repo.Create(context.Background(), "u1", validDraft())
	require.NoError(t, err)

	created.Name = "renamed"
	created.Condition = `subject.startsWith("invoice")`
	updated, err := repo.Update(context.Background(), "u1", created)
	require.NoError(t, err)

	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, "renamed", store.rules[0].Name)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))
}

func TestUpdateAbsentRule(t *testing.T) {
	repo := NewRepository(&fakeStore{}, nil)

	rule := Rule{ID: "nope", Name: "x", Condition: "isRead", Action: ActionMarkRead}
	_, err := repo.Update(context.Background(), "u1", rule)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateValidatesBeforeStorage(t *testing.T) {
	store := &fakeStore{}
	repo := NewRepository(store, nil)

	created, err := repo.Create(context.Background(), "u1", validDraft())
	require.NoError(t, err)

	created.Name = ""
	_, err = repo.Update(context.Background(), "u1", created)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Mark Amazon read", store.rules[0].Name, "stored rule must be untouched")
}

func TestToggleFlipsActive(t *testing.T) {
	store := &fakeStore{}
	repo := NewRepository(store, nil)

	created, err := repo.Create(context.Background(), "u1", validDraft())
	require.NoError(t, err)
	require.True(t, created.IsActive)

	toggled, err := repo.Toggle(context.Background(), "u1", created.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	toggled, err = repo.Toggle(context.Background(), "u1", created.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)
}

func TestToggleAbsentRule(t *testing.T) {
	repo := NewRepository(&fakeStore{}, nil)

	_, err := repo.Toggle(context.Background(), "u1", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIdempotent(t *testing.T) {
	store := &fakeStore{}
	repo := NewRepository(store, nil)

	created, err := repo.Create(context.Background(), "u1", validDraft())
	require.NoError(t, err)

	require.NoError(t, repo.Delete(context.Background(), "u1", created.ID))
	assert.Empty(t, store.rules)

	// A second delete of the same rule succeeds silently
	assert.NoError(t, repo.Delete(context.Background(), "u1", created.ID))
}

func TestListScopedToUser(t *testing.T) {
	store := &fakeStore{}
	repo := NewRepository(store, nil)

	_, err := repo.Create(context.Background(), "u1", validDraft())
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), "u2", validDraft())
	require.NoError(t, err)

	rules, err := repo.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "u1", rules[0].UserKey)
}
