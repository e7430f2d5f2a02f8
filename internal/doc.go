// Package internal holds the CampusFlow server internals.
//
// The tree is organized by responsibility:
// - api: HTTP handlers, middleware, problem responses, and routing
// - domain: approval workflow, events, users, tenants, notifications
// - storage: Postgres repositories and migrations
// - jobs: river background workers for email delivery
// - auth, audit, config, metrics, sanitize, email: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
