package instrumentation

import "strings"

// Cardinality management helpers for metrics.
// These functions reduce high-cardinality label values to prevent metrics explosion.
//
// # Warning
//
// High cardinality in metrics can cause:
// - Increased memory usage in Prometheus/metrics backends
// - Slower query performance
// - Higher storage costs
//
// Always use these helpers when recording metrics with request paths.

// Path segments that are followed by a per-resource identifier. Whatever
// comes after one of these is collapsed to a placeholder.
var idParents = map[string]bool{
	"accounts": true,
	"displays": true,
	"events":   true,
}

// NormalizeRoutePath collapses resource ids in a request path so every
// route maps to a single label value.
//
// Example:
//
//	NormalizeRoutePath("/api/v1/displays/5f3a/data")        // "/api/v1/displays/{id}/data"
//	NormalizeRoutePath("/api/v1/events/google-a1-ev9")      // "/api/v1/events/{id}"
//	NormalizeRoutePath("/api/v1/displays/5f3a/events/ev9")  // "/api/v1/displays/{id}/events/{id}"
//	NormalizeRoutePath("/healthz")                          // "/healthz"
func NormalizeRoutePath(path string) string {
	if path == "" {
		return "unknown"
	}

	segments := strings.Split(path, "/")
	prev := ""
	for i, seg := range segments {
		if seg != "" && idParents[prev] {
			segments[i] = "{id}"
		}
		prev = seg
	}
	return strings.Join(segments, "/")
}
