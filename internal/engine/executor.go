package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/mailrules/internal/instrumentation"
	"github.com/teemow/mailrules/internal/logging"
	"github.com/teemow/mailrules/internal/mail"
	"github.com/teemow/mailrules/internal/rules"
)

// Executor applies rule actions against the mail provider.
type Executor struct {
	provider mail.Provider
	resolver *mail.Resolver
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
}

// NewExecutor creates an Executor. logger and metrics may be nil.
func NewExecutor(provider mail.Provider, resolver *mail.Resolver, logger *slog.Logger, metrics *instrumentation.Metrics) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		provider: provider,
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
	}
}

// Apply performs the rule's action on the email. Each action is a single
// idempotent label mutation; move_to_folder additionally resolves (and
// possibly creates) the target folder first. The two steps are not
// transactional: a created folder stays created even if the subsequent
// move fails.
func (e *Executor) Apply(ctx context.Context, accessToken, userKey string, email rules.Email, rule rules.Rule) error {
	start := time.Now()
	err := e.apply(ctx, accessToken, userKey, email, rule)
	e.metrics.RecordAction(ctx, string(rule.Action), err == nil, time.Since(start))
	if err != nil {
		return err
	}

	e.logger.Debug("action applied",
		logging.Operation("action_apply"),
		logging.UserHash(userKey),
		slog.String(logging.KeyRule, rule.ID),
		slog.String(logging.KeyMessage, email.MessageID),
		slog.String("action", string(rule.Action)))
	return nil
}

func (e *Executor) apply(ctx context.Context, accessToken, userKey string, email rules.Email, rule rules.Rule) error {
	switch rule.Action {
	case rules.ActionMarkImportant:
		return e.provider.ModifyMessage(ctx, accessToken, email.MessageID,
			[]string{mail.LabelImportant}, nil)

	case rules.ActionMarkRead:
		return e.provider.ModifyMessage(ctx, accessToken, email.MessageID,
			nil, []string{mail.LabelUnread})

	case rules.ActionMoveToFolder:
		folder, err := e.resolver.Resolve(ctx, accessToken, userKey, rule.Parameters.FolderName)
		if err != nil {
			return err
		}
		// "Move" on a label-based provider: apply the folder label and
		// take the message out of the inbox.
		return e.provider.ModifyMessage(ctx, accessToken, email.MessageID,
			[]string{folder.LabelID}, []string{mail.LabelInbox})
	}
	return fmt.Errorf("unknown action %q", rule.Action)
}
