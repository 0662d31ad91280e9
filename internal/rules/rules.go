package rules

import (
	"strings"
	"time"
)

// Action identifies what happens when a rule's condition matches.
type Action string

const (
	// ActionMarkImportant adds the provider's IMPORTANT label.
	ActionMarkImportant Action = "mark_important"
	// ActionMoveToFolder applies a folder label and removes INBOX.
	ActionMoveToFolder Action = "move_to_folder"
	// ActionMarkRead removes the provider's UNREAD label.
	ActionMarkRead Action = "mark_read"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionMarkImportant, ActionMoveToFolder, ActionMarkRead:
		return true
	}
	return false
}

// Parameters carries the action-specific payload of a rule.
type Parameters struct {
	// FolderName is required for ActionMoveToFolder and unused otherwise.
	FolderName string `json:"folderName,omitempty"`
}

// Rule is a user-defined condition/action mapping applied to incoming
// email. Rules never expire; they are created, toggled and deleted by
// explicit user action.
type Rule struct {
	ID         string     `json:"id"`
	UserKey    string     `json:"-"`
	Name       string     `json:"name"`
	Condition  string     `json:"condition"`
	Action     Action     `json:"action"`
	Parameters Parameters `json:"parameters"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Draft is the caller-supplied part of a rule, before an ID is assigned.
type Draft struct {
	Name       string     `json:"name"`
	Condition  string     `json:"condition"`
	Action     Action     `json:"action"`
	Parameters Parameters `json:"parameters"`
	IsActive   bool       `json:"isActive"`
}

// Email is the incoming message handed to the engine. MessageID is the
// provider-side message identifier used for label mutations.
type Email struct {
	MessageID      string `json:"messageId"`
	Subject        string `json:"subject"`
	Sender         string `json:"sender"`
	SenderEmail    string `json:"senderEmail"`
	IsRead         bool   `json:"isRead"`
	HasAttachments bool   `json:"hasAttachments"`
}

// Attributes returns the read-only view of the email exposed to condition
// evaluation. String fields are lowercased so comparisons are
// case-insensitive regardless of how the provider capitalizes headers.
func (e Email) Attributes() EmailAttributes {
	return EmailAttributes{
		Subject:        strings.ToLower(e.Subject),
		Sender:         strings.ToLower(e.Sender),
		SenderEmail:    strings.ToLower(e.SenderEmail),
		IsRead:         e.IsRead,
		HasAttachments: e.HasAttachments,
	}
}

// EmailAttributes is the fixed attribute vocabulary visible to conditions.
// It implements condition.Env.
type EmailAttributes struct {
	Subject        string
	Sender         string
	SenderEmail    string
	IsRead         bool
	HasAttachments bool
}

// StringVar implements condition.Env.
func (a EmailAttributes) StringVar(name string) (string, bool) {
	switch name {
	case "subject":
		return a.Subject, true
	case "sender":
		return a.Sender, true
	case "senderEmail":
		return a.SenderEmail, true
	}
	return "", false
}

// BoolVar implements condition.Env.
func (a EmailAttributes) BoolVar(name string) (bool, bool) {
	switch name {
	case "isRead":
		return a.IsRead, true
	case "hasAttachments":
		return a.HasAttachments, true
	}
	return false, false
}
