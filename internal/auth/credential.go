package auth

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by CredentialStore.Get when no credential
	// exists for the identity. It is a normal outcome, distinct from a
	// storage failure.
	ErrNotFound = errors.New("credential not found")

	// ErrUnauthenticated means no mailbox is connected for the identity.
	// The user must run the connect flow.
	ErrUnauthenticated = errors.New("no mailbox connected for identity")

	// ErrReauthenticationRequired means the stored credential is expired
	// and carries no refresh token, so it cannot be renewed without a
	// full reauthorization.
	ErrReauthenticationRequired = errors.New("credential expired, reauthorization required")
)

// Credential is the stored OAuth token record for one connected mailbox.
type Credential struct {
	// Email is the connected mailbox address.
	Email string
	// AccessToken is the bearer token presented to the mail provider.
	AccessToken string
	// RefreshToken renews the access token; empty if the provider did
	// not issue one.
	RefreshToken string
	// ExpiresAt is the absolute expiry of AccessToken.
	ExpiresAt time.Time
}

// CredentialStore persists credentials keyed by user identity.
// Implementations live in the store package.
type CredentialStore interface {
	// Get returns the credential for the identity, or ErrNotFound.
	Get(ctx context.Context, userKey string) (Credential, error)
	// Upsert inserts or fully replaces the identity's credential.
	// Last write wins.
	Upsert(ctx context.Context, userKey string, cred Credential) error
	// Delete removes the credential. Deleting an absent credential is a
	// no-op.
	Delete(ctx context.Context, userKey string) error
}
