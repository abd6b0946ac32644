// Package audit assigns correlation identifiers to discovery and dispatch
// runs so the several log lines one Find/Map call can produce are tied
// together, grounded in goneat's pkg/pathfinder/audit.go audit-trail
// concept (simplified here to the identifier it assigns, not goneat's full
// compliance-mode record store, which is out of scope for tempo).
package audit

import "github.com/google/uuid"

// NewRunID returns a fresh correlation identifier for one discovery walk or
// dispatch run, suitable for attaching to every log line the run produces.
func NewRunID() string {
	return uuid.NewString()
}
