package mail

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	labels      []Label
	listErr     error
	createErr   error
	createCalls int
	modifyCalls []modifyCall
	modifyErr   error
}

type modifyCall struct {
	messageID string
	add       []string
	remove    []string
}

func (p *fakeProvider) ListLabels(context.Context, string) ([]Label, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.labels, nil
}

func (p *fakeProvider) CreateLabel(_ context.Context, _ string, name string) (Label, error) {
	p.createCalls++
	if p.createErr != nil {
		return Label{}, p.createErr
	}
	label := Label{ID: fmt.Sprintf("Label_%d", p.createCalls), Name: name, Type: "user"}
	p.labels = append(p.labels, label)
	return label, nil
}

func (p *fakeProvider) ModifyMessage(_ context.Context, _ string, messageID string, add, remove []string) error {
	p.modifyCalls = append(p.modifyCalls, modifyCall{messageID: messageID, add: add, remove: remove})
	return p.modifyErr
}

type fakeFolderStore struct {
	folders map[string]Folder // labelID -> folder
	err     error
}

func newFakeFolderStore() *fakeFolderStore {
	return &fakeFolderStore{folders: make(map[string]Folder)}
}

func (s *fakeFolderStore) List(context.Context, string) ([]Folder, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Folder, 0, len(s.folders))
	for _, f := range s.folders {
		out = append(out, f)
	}
	return out, nil
}

func (s *fakeFolderStore) Upsert(_ context.Context, _ string, folder Folder) error {
	if s.err != nil {
		return s.err
	}
	s.folders[folder.LabelID] = folder
	return nil
}

func TestResolveExistingLabelCaseInsensitive(t *testing.T) {
	provider := &fakeProvider{labels: []Label{
		{ID: "Label_7", Name: "Newsletters", Type: "user"},
	}}
	store := newFakeFolderStore()
	resolver := NewResolver(provider, store, nil)

	folder, err := resolver.Resolve(context.Background(), "tok", "u1", "newsletters")
	require.NoError(t, err)
	assert.Equal(t, "Label_7", folder.LabelID)
	assert.Equal(t, "Newsletters", folder.Name)
	// No new label may be created when a name match exists
	assert.Zero(t, provider.createCalls)
	// The mirror is refreshed
	assert.Contains(t, store.folders, "Label_7")
}

func TestResolveCreatesMissingLabel(t *testing.T) {
	provider := &fakeProvider{}
	store := newFakeFolderStore()
	resolver := NewResolver(provider, store, nil)

	folder, err := resolver.Resolve(context.Background(), "tok", "u1", "Receipts")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.createCalls)
	assert.Equal(t, "Receipts", folder.Name)
	assert.NotEmpty(t, folder.LabelID)
	assert.Contains(t, store.folders, folder.LabelID)
}

func TestResolveIsIdempotent(t *testing.T) {
	provider := &fakeProvider{}
	store := newFakeFolderStore()
	resolver := NewResolver(provider, store, nil)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, "tok", "u1", "Receipts")
	require.NoError(t, err)
	second, err := resolver.Resolve(ctx, "tok", "u1", "receipts")
	require.NoError(t, err)

	// Two resolutions of the same name create exactly one provider label
	assert.Equal(t, 1, provider.createCalls)
	assert.Equal(t, first.LabelID, second.LabelID)
}

func TestResolveProviderListError(t *testing.T) {
	provider := &fakeProvider{listErr: errors.New("quota exceeded")}
	resolver := NewResolver(provider, newFakeFolderStore(), nil)

	_, err := resolver.Resolve(context.Background(), "tok", "u1", "Receipts")
	require.Error(t, err)
	assert.Zero(t, provider.createCalls)
}

func TestResolveEmptyName(t *testing.T) {
	resolver := NewResolver(&fakeProvider{}, newFakeFolderStore(), nil)
	_, err := resolver.Resolve(context.Background(), "tok", "u1", "")
	assert.Error(t, err)
}

func TestResolveMirrorFailureDoesNotFailResolution(t *testing.T) {
	provider := &fakeProvider{labels: []Label{
		{ID: "Label_1", Name: "Receipts", Type: "user"},
	}}
	store := newFakeFolderStore()
	store.err = errors.New("disk full")
	resolver := NewResolver(provider, store, nil)

	folder, err := resolver.Resolve(context.Background(), "tok", "u1", "Receipts")
	require.NoError(t, err)
	assert.Equal(t, "Label_1", folder.LabelID)
}
