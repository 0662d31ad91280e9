package store

import (
	"context"
	"sync"

	"github.com/teemow/mailrules/internal/auth"
	"github.com/teemow/mailrules/internal/mail"
	"github.com/teemow/mailrules/internal/rules"
)

// NewMemory creates an in-memory store. Data does not survive a restart;
// it backs tests and ephemeral serve runs.
func NewMemory() *Store {
	return &Store{
		Credentials: &memoryCredentialStore{creds: make(map[string]auth.Credential)},
		Rules:       &memoryRuleStore{byUser: make(map[string][]rules.Rule)},
		Folders:     &memoryFolderStore{byUser: make(map[string]map[string]mail.Folder)},
	}
}

type memoryCredentialStore struct {
	mu    sync.RWMutex
	creds map[string]auth.Credential
}

func (s *memoryCredentialStore) Get(_ context.Context, userKey string) (auth.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[userKey]
	if !ok {
		return auth.Credential{}, auth.ErrNotFound
	}
	return cred, nil
}

func (s *memoryCredentialStore) Upsert(_ context.Context, userKey string, cred auth.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds[userKey] = cred
	return nil
}

func (s *memoryCredentialStore) Delete(_ context.Context, userKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.creds, userKey)
	return nil
}

type memoryRuleStore struct {
	mu     sync.RWMutex
	byUser map[string][]rules.Rule // insertion order == creation order
}

func (s *memoryRuleStore) List(_ context.Context, userKey string) ([]rules.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]rules.Rule, len(s.byUser[userKey]))
	copy(out, s.byUser[userKey])
	return out, nil
}

func (s *memoryRuleStore) Create(_ context.Context, rule rules.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byUser[rule.UserKey] = append(s.byUser[rule.UserKey], rule)
	return nil
}

func (s *memoryRuleStore) Update(_ context.Context, rule rules.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byUser[rule.UserKey]
	for i := range list {
		if list[i].ID == rule.ID {
			// Creation time is immutable on replace
			rule.CreatedAt = list[i].CreatedAt
			list[i] = rule
			return nil
		}
	}
	return rules.ErrNotFound
}

func (s *memoryRuleStore) Delete(_ context.Context, userKey, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byUser[userKey]
	for i := range list {
		if list[i].ID == id {
			s.byUser[userKey] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	// Deleting an absent rule is a no-op
	return nil
}

type memoryFolderStore struct {
	mu     sync.RWMutex
	byUser map[string]map[string]mail.Folder // userKey -> labelID -> folder
}

func (s *memoryFolderStore) List(_ context.Context, userKey string) ([]mail.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]mail.Folder, 0, len(s.byUser[userKey]))
	for _, f := range s.byUser[userKey] {
		out = append(out, f)
	}
	return out, nil
}

func (s *memoryFolderStore) Upsert(_ context.Context, userKey string, folder mail.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byUser[userKey] == nil {
		s.byUser[userKey] = make(map[string]mail.Folder)
	}
	s.byUser[userKey][folder.LabelID] = folder
	return nil
}
