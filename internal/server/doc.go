// Package server exposes the HTTP API consumed by dashboards, displays, and
// the account-connect flow, plus the operational endpoints (health probes
// and the dedicated Prometheus metrics listener).
//
// Two kinds of callers authenticate with bearer tokens: users (full access
// to their own household) and displays (read and write scoped to their
// owner's data, gated by the owner's license and the display's active
// flag).
package server
