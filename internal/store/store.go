package store

import (
	"github.com/teemow/mailrules/internal/auth"
	"github.com/teemow/mailrules/internal/mail"
	"github.com/teemow/mailrules/internal/rules"
)

// Store bundles the per-record-kind stores of one backend.
type Store struct {
	Credentials auth.CredentialStore
	Rules       rules.Store
	Folders     mail.FolderStore

	closeFn func() error
}

// Close releases backend resources. Safe to call on memory stores.
func (s *Store) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}
