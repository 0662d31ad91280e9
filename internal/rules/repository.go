package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/mailrules/internal/condition"
	"github.com/teemow/mailrules/internal/logging"
)

var (
	// ErrNotFound is returned when a rule does not exist or is not owned
	// by the calling identity.
	ErrNotFound = errors.New("rule not found")

	// ErrValidation is returned when a draft fails validation. The wrapped
	// message names the offending field.
	ErrValidation = errors.New("invalid rule")
)

// Store is the persistence surface the repository needs. Implementations
// live in the store package.
type Store interface {
	// List returns all rules for the user, active and inactive, ordered
	// by creation time ascending.
	List(ctx context.Context, userKey string) ([]Rule, error)
	Create(ctx context.Context, rule Rule) error
	// Update replaces a rule by ID, scoped to the rule's owner. It
	// returns ErrNotFound if no such rule exists for that owner.
	Update(ctx context.Context, rule Rule) error
	// Delete removes a rule. Deleting an absent rule is a no-op.
	Delete(ctx context.Context, userKey, id string) error
}

// Repository manages rule CRUD for user identities, validating drafts
// before they reach storage.
type Repository struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewRepository creates a Repository backed by the given store. If logger
// is nil, slog.Default() is used.
func NewRepository(store Store, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// List returns the user's rules in creation order, inactive rules
// included.
func (r *Repository) List(ctx context.Context, userKey string) ([]Rule, error) {
	rules, err := r.store.List(ctx, userKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return rules, nil
}

// Create validates the draft, assigns an ID and persists the rule.
func (r *Repository) Create(ctx context.Context, userKey string, draft Draft) (Rule, error) {
	if err := validateDraft(draft); err != nil {
		return Rule{}, err
	}

	now := r.now().UTC()
	rule := Rule{
		ID:         uuid.NewString(),
		UserKey:    userKey,
		Name:       draft.Name,
		Condition:  draft.Condition,
		Action:     draft.Action,
		Parameters: draft.Parameters,
		IsActive:   draft.IsActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.store.Create(ctx, rule); err != nil {
		return Rule{}, fmt.Errorf("failed to create rule: %w", err)
	}

	r.logger.Info("rule created",
		logging.Operation("rule_create"),
		logging.UserHash(userKey),
		slog.String(logging.KeyRule, rule.ID),
		slog.String("action", string(rule.Action)))
	return rule, nil
}

// Update validates and fully replaces a rule by ID, scoped to the owner.
// Last write wins; there is no optimistic locking.
func (r *Repository) Update(ctx context.Context, userKey string, rule Rule) (Rule, error) {
	if err := validateDraft(Draft{
		Name:       rule.Name,
		Condition:  rule.Condition,
		Action:     rule.Action,
		Parameters: rule.Parameters,
	}); err != nil {
		return Rule{}, err
	}

	rule.UserKey = userKey
	rule.UpdatedAt = r.now().UTC()
	if err := r.store.Update(ctx, rule); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Rule{}, ErrNotFound
		}
		return Rule{}, fmt.Errorf("failed to update rule: %w", err)
	}

	r.logger.Info("rule updated",
		logging.Operation("rule_update"),
		logging.UserHash(userKey),
		slog.String(logging.KeyRule, rule.ID))
	return rule, nil
}

// Toggle flips a rule's active flag.
func (r *Repository) Toggle(ctx context.Context, userKey, id string) (Rule, error) {
	existing, err := r.get(ctx, userKey, id)
	if err != nil {
		return Rule{}, err
	}
	existing.IsActive = !existing.IsActive
	return r.Update(ctx, userKey, existing)
}

// Delete removes a rule. Deleting a rule that does not exist is not an
// error; the operation is idempotent.
func (r *Repository) Delete(ctx context.Context, userKey, id string) error {
	if err := r.store.Delete(ctx, userKey, id); err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	r.logger.Info("rule deleted",
		logging.Operation("rule_delete"),
		logging.UserHash(userKey),
		slog.String(logging.KeyRule, id))
	return nil
}

func (r *Repository) get(ctx context.Context, userKey, id string) (Rule, error) {
	rules, err := r.store.List(ctx, userKey)
	if err != nil {
		return Rule{}, fmt.Errorf("failed to list rules: %w", err)
	}
	for _, rule := range rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return Rule{}, ErrNotFound
}

// validateDraft enforces the rule contract: non-empty name, a condition
// that parses, a known action, and a folder name when the action moves
// the email.
func validateDraft(draft Draft) error {
	if draft.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	if draft.Condition == "" {
		return fmt.Errorf("%w: condition must not be empty", ErrValidation)
	}
	if _, err := condition.Parse(draft.Condition); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !draft.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrValidation, draft.Action)
	}
	if draft.Action == ActionMoveToFolder && draft.Parameters.FolderName == "" {
		return fmt.Errorf("%w: folder name required for %s", ErrValidation, ActionMoveToFolder)
	}
	return nil
}
