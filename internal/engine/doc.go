// Package engine orchestrates rule evaluation for incoming email.
//
// One engine run covers one email for one user identity: a valid access
// token is obtained first (failure here is fatal for the run), the
// identity's rules are loaded in creation order, and each active rule is
// evaluated against the email's attributes. Matching rules trigger their
// action against the mail provider. Per-rule failures - a condition that
// no longer parses, a provider mutation that errors - are recorded in the
// run report and never abort the remaining rules, so one broken rule
// cannot block the rest of a user's rule set.
//
// Rules execute sequentially because a later rule may depend on provider
// state an earlier rule just created (for example a folder label).
// Runs for different emails or identities are independent and may execute
// concurrently.
package engine
