package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/mailrules/internal/logging"
)

// Folder is the local mirror of a provider label used for folder
// emulation. LabelID is unique per account; the mirror is a cache, never
// a source of truth.
type Folder struct {
	ID        string
	UserKey   string
	Name      string
	LabelID   string
	CreatedAt time.Time
}

// FolderStore persists folder mirrors per user identity.
// Implementations live in the store package.
type FolderStore interface {
	List(ctx context.Context, userKey string) ([]Folder, error)
	// Upsert inserts or replaces a folder mirror keyed by its LabelID.
	Upsert(ctx context.Context, userKey string, folder Folder) error
}

// Resolver maps folder names to provider labels, creating labels lazily.
type Resolver struct {
	provider Provider
	store    FolderStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewResolver creates a Resolver. If logger is nil, slog.Default() is
// used.
func NewResolver(provider Provider, store FolderStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		provider: provider,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Resolve returns the folder for the given name, matching provider
// labels case-insensitively and creating the label if none exists.
//
// The provider label list is consulted on every call rather than the
// local mirror, so concurrent resolutions of the same name cannot create
// duplicate labels from a stale cache. Resolve is idempotent: a second
// call with the same name returns the same label.
func (r *Resolver) Resolve(ctx context.Context, accessToken, userKey, name string) (Folder, error) {
	if name == "" {
		return Folder{}, fmt.Errorf("folder name must not be empty")
	}

	labels, err := r.provider.ListLabels(ctx, accessToken)
	if err != nil {
		return Folder{}, fmt.Errorf("failed to resolve folder %q: %w", name, err)
	}

	for _, label := range labels {
		if strings.EqualFold(label.Name, name) {
			return r.mirror(ctx, userKey, label)
		}
	}

	created, err := r.provider.CreateLabel(ctx, accessToken, name)
	if err != nil {
		return Folder{}, fmt.Errorf("failed to create folder %q: %w", name, err)
	}
	r.logger.Info("folder created",
		logging.Operation("folder_resolve"),
		logging.UserHash(userKey),
		slog.String(logging.KeyFolder, name))
	return r.mirror(ctx, userKey, created)
}

// mirror upserts the local folder record for a provider label. A mirror
// write failure is logged but does not fail resolution; the label exists
// and the mirror will be rewritten on the next lookup.
func (r *Resolver) mirror(ctx context.Context, userKey string, label Label) (Folder, error) {
	folder := Folder{
		ID:        uuid.NewString(),
		UserKey:   userKey,
		Name:      label.Name,
		LabelID:   label.ID,
		CreatedAt: r.now().UTC(),
	}
	if err := r.store.Upsert(ctx, userKey, folder); err != nil {
		r.logger.Warn("failed to mirror folder locally",
			logging.Operation("folder_resolve"),
			logging.UserHash(userKey),
			slog.String(logging.KeyFolder, label.Name),
			logging.Err(err))
	}
	return folder, nil
}
