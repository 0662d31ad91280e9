// Package store provides persistence for credentials, rules and folder
// mirrors.
//
// Two backends implement the store contracts defined by the auth, rules
// and mail packages: an in-memory store for tests and ephemeral runs,
// and a SQLite store for durable single-node deployments. Both expose
// the same semantics: equality-filtered lookups, creation-time ordering
// for rules, idempotent deletes and explicit insert-or-update upserts.
package store
