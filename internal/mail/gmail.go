package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/mailrules/internal/instrumentation"
	"github.com/teemow/mailrules/internal/logging"
)

// defaultCallTimeout bounds each Gmail API call. The transport default is
// no timeout, which would let a stuck call hold up an engine run.
const defaultCallTimeout = 10 * time.Second

// GmailProvider implements Provider against the Gmail API. Each call
// builds a service authenticated with the supplied access token, so one
// provider instance serves all identities.
type GmailProvider struct {
	timeout time.Duration
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// GmailOption configures a GmailProvider.
type GmailOption func(*GmailProvider)

// WithCallTimeout overrides the per-call timeout.
func WithCallTimeout(d time.Duration) GmailOption {
	return func(g *GmailProvider) { g.timeout = d }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *instrumentation.Metrics) GmailOption {
	return func(g *GmailProvider) { g.metrics = m }
}

// NewGmailProvider creates a Gmail-backed Provider. If logger is nil,
// slog.Default() is used.
func NewGmailProvider(logger *slog.Logger, opts ...GmailOption) *GmailProvider {
	if logger == nil {
		logger = slog.Default()
	}
	g := &GmailProvider{
		timeout: defaultCallTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GmailProvider) service(ctx context.Context, accessToken string) (*gmail.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return svc, nil
}

// ListLabels returns all labels of the connected mailbox.
func (g *GmailProvider) ListLabels(ctx context.Context, accessToken string) ([]Label, error) {
	start := time.Now()
	labels, err := g.listLabels(ctx, accessToken)
	g.metrics.RecordProviderCall(ctx, "list_labels", err == nil, time.Since(start))
	return labels, err
}

func (g *GmailProvider) listLabels(ctx context.Context, accessToken string) ([]Label, error) {
	svc, err := g.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}

	labels := make([]Label, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		labels = append(labels, Label{ID: l.Id, Name: l.Name, Type: l.Type})
	}
	return labels, nil
}

// CreateLabel creates a user label with the given name.
func (g *GmailProvider) CreateLabel(ctx context.Context, accessToken, name string) (Label, error) {
	start := time.Now()
	label, err := g.createLabel(ctx, accessToken, name)
	g.metrics.RecordProviderCall(ctx, "create_label", err == nil, time.Since(start))
	return label, err
}

func (g *GmailProvider) createLabel(ctx context.Context, accessToken, name string) (Label, error) {
	svc, err := g.service(ctx, accessToken)
	if err != nil {
		return Label{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	created, err := svc.Users.Labels.Create("me", &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return Label{}, fmt.Errorf("failed to create label %q: %w", name, err)
	}

	g.logger.Info("label created",
		logging.Operation("create_label"),
		slog.String(logging.KeyFolder, name))
	return Label{ID: created.Id, Name: created.Name, Type: created.Type}, nil
}

// ModifyMessage adds and removes labels on a message.
func (g *GmailProvider) ModifyMessage(ctx context.Context, accessToken, messageID string, addLabelIDs, removeLabelIDs []string) error {
	start := time.Now()
	err := g.modifyMessage(ctx, accessToken, messageID, addLabelIDs, removeLabelIDs)
	g.metrics.RecordProviderCall(ctx, "modify_message", err == nil, time.Since(start))
	return err
}

func (g *GmailProvider) modifyMessage(ctx context.Context, accessToken, messageID string, addLabelIDs, removeLabelIDs []string) error {
	svc, err := g.service(ctx, accessToken)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	_, err = svc.Users.Messages.Modify("me", messageID, &gmail.ModifyMessageRequest{
		AddLabelIds:    addLabelIDs,
		RemoveLabelIds: removeLabelIDs,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to modify message %s: %w", messageID, err)
	}
	return nil
}
