// Package tokens manages the OAuth access-token lifecycle for connected
// provider accounts: proactive refresh ahead of expiry, classification of
// refresh failures into re-auth-required versus transient, and persistence
// of rotated refresh tokens and sticky auth state.
package tokens
