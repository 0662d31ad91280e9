// Package mail defines the narrow mail-provider surface the rule engine
// needs and its Gmail implementation.
//
// The Provider interface covers exactly three operations: listing labels,
// creating a label and modifying a message's label set. Folders are
// emulated with provider labels; the Resolver maps a user-facing folder
// name to a label, creating it lazily. Local Folder records only mirror
// provider labels for bookkeeping - the provider is authoritative on
// every lookup, so a stale mirror can never cause a duplicate label.
package mail
