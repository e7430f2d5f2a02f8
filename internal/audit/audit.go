package audit

import (
	"context"
	"time"
)

// Actions recorded by the workflow engine.
const (
	ActionApprove     = "APPROVE"
	ActionReject      = "REJECT"
	ActionStateChange = "STATE_CHANGE"
)

// Entity types referenced by audit entries.
const (
	EntityApproval = "Approval"
	EntityEvent    = "Event"
)

// Entry is a single append-only audit record. Changes holds a
// structured diff of whatever the action mutated.
type Entry struct {
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id,omitempty"`
	Changes    map[string]any `json:"changes,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Sink is a durable append-only log. A failed Append aborts the
// enclosing transaction; entries are never updated or deleted.
type Sink interface {
	Append(ctx context.Context, entry Entry) error
}
