// Package logging provides structured logging helpers built on log/slog.
//
// It defines the canonical attribute keys used across the codebase so that
// log output stays queryable (operation, account, calendar, display, status),
// plus privacy helpers for logging account mailboxes without exposing PII:
// emails are either anonymized (AnonymizeEmail, UserHash) or reduced to their
// domain (Domain), and tokens are never logged in the clear (SanitizeToken).
package logging
