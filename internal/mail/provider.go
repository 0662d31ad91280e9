package mail

import (
	"context"
)

// Well-known system label IDs shared by label-based mail providers.
const (
	LabelInbox     = "INBOX"
	LabelUnread    = "UNREAD"
	LabelImportant = "IMPORTANT"
)

// Label is a provider-side message tag, used both for categorization
// (IMPORTANT, UNREAD) and folder emulation.
type Label struct {
	ID   string
	Name string
	// Type is "system" for built-in labels and "user" for created ones.
	Type string
}

// Provider is the mail-provider surface required by the rule engine.
// All calls authenticate with a bearer access token supplied per call.
type Provider interface {
	ListLabels(ctx context.Context, accessToken string) ([]Label, error)
	CreateLabel(ctx context.Context, accessToken, name string) (Label, error)
	// ModifyMessage adds and removes labels on a message in a single
	// idempotent mutation.
	ModifyMessage(ctx context.Context, accessToken, messageID string, addLabelIDs, removeLabelIDs []string) error
}
