// Package auth manages mailbox OAuth credentials per user identity.
//
// A Credential holds the access/refresh token pair for one connected
// mailbox; exactly one live credential exists per identity (upsert
// semantics). The Refresher hands out valid access tokens: fresh tokens
// are returned straight from the store, expired ones are exchanged via
// the identity provider's refresh endpoint, and a credential without a
// refresh token is terminal once expired and requires the user to
// reconnect.
//
// Concurrent EnsureValid calls for the same identity may both refresh;
// the provider's refresh endpoint tolerates this and the last persisted
// write wins. No mutual exclusion is required for correctness.
package auth
