// Package google holds the Google OAuth configuration and consent-flow
// helpers used to connect provider accounts.
//
// The package exposes the three pieces of the account lifecycle that talk to
// Google's auth endpoints: building the consent URL, exchanging an
// authorization code, and refreshing an access token. Everything else about
// token state lives in the tokens package.
package google
