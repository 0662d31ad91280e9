// Package rules defines user-owned email rules and their repository.
//
// A rule pairs a boolean condition over email attributes (see the
// condition package) with a single action: mark the email important, mark
// it as read, or move it to a named folder. Rules are scoped to one user
// identity and evaluated in creation order.
//
// The Repository validates drafts before they reach storage, so malformed
// rules (empty name, unparseable condition, move action without a folder
// name) are rejected at create/update time and never reach evaluation.
package rules
