// Package attribution assigns calendar events to household members based on
// which provider account each event came from.
package attribution
