package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/mailrules/internal/instrumentation"
	"github.com/teemow/mailrules/internal/logging"
)

// expirySlack treats tokens expiring within the next minute as already
// expired, so a token handed to the mail provider does not lapse mid-call
// because of clock skew.
const expirySlack = 60 * time.Second

// Exchanger performs OAuth exchanges against the identity provider.
type Exchanger interface {
	// Exchange trades an authorization code for a token pair.
	Exchange(ctx context.Context, authCode string) (*oauth2.Token, error)
	// Refresh trades a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Refresher hands out valid access tokens for user identities,
// refreshing expired ones transparently.
type Refresher struct {
	store     CredentialStore
	exchanger Exchanger
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	now       func() time.Time
}

// NewRefresher creates a Refresher. logger and metrics may be nil.
func NewRefresher(store CredentialStore, exchanger Exchanger, logger *slog.Logger, metrics *instrumentation.Metrics) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		store:     store,
		exchanger: exchanger,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// EnsureValid returns a usable access token for the identity.
//
// The common path is a plain store lookup with no network call. An
// expired credential with a refresh token is renewed via the identity
// provider and the renewed access token and expiry are persisted; the
// refresh token and mailbox address are retained. An expired credential
// without a refresh token fails with ErrReauthenticationRequired and
// makes no network call.
func (r *Refresher) EnsureValid(ctx context.Context, userKey string) (string, error) {
	cred, err := r.store.Get(ctx, userKey)
	if errors.Is(err, ErrNotFound) {
		return "", ErrUnauthenticated
	}
	if err != nil {
		return "", fmt.Errorf("failed to load credential: %w", err)
	}

	if r.now().Add(expirySlack).Before(cred.ExpiresAt) {
		return cred.AccessToken, nil
	}

	if cred.RefreshToken == "" {
		r.logger.Warn("credential expired with no refresh token",
			logging.Operation("token_refresh"),
			logging.UserHash(userKey))
		return "", ErrReauthenticationRequired
	}

	tok, err := r.exchanger.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		r.metrics.RecordTokenRefresh(ctx, false)
		return "", fmt.Errorf("failed to refresh access token: %w", err)
	}

	cred.AccessToken = tok.AccessToken
	cred.ExpiresAt = tok.Expiry
	// Providers may rotate the refresh token on use.
	if tok.RefreshToken != "" {
		cred.RefreshToken = tok.RefreshToken
	}
	if err := r.store.Upsert(ctx, userKey, cred); err != nil {
		return "", fmt.Errorf("failed to persist refreshed credential: %w", err)
	}

	r.metrics.RecordTokenRefresh(ctx, true)
	r.logger.Info("access token refreshed",
		logging.Operation("token_refresh"),
		logging.UserHash(userKey),
		logging.Domain(cred.Email),
		slog.Time("expires_at", cred.ExpiresAt))
	return cred.AccessToken, nil
}

// Connect exchanges an authorization code from the user-initiated consent
// flow and stores the resulting credential, replacing any previous one
// for the identity.
func (r *Refresher) Connect(ctx context.Context, userKey, email, authCode string) error {
	tok, err := r.exchanger.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	cred := Credential{
		Email:        email,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if err := r.store.Upsert(ctx, userKey, cred); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	r.logger.Info("mailbox connected",
		logging.Operation("connect"),
		logging.UserHash(userKey),
		logging.Domain(email))
	return nil
}

// Disconnect removes the identity's credential. Subsequent EnsureValid
// calls fail with ErrUnauthenticated until the user reconnects.
func (r *Refresher) Disconnect(ctx context.Context, userKey string) error {
	if err := r.store.Delete(ctx, userKey); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	r.logger.Info("mailbox disconnected",
		logging.Operation("disconnect"),
		logging.UserHash(userKey))
	return nil
}
