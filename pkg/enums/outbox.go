package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateUser           OutboxAggregateType = "user"
	AggregateRoleAssignment OutboxAggregateType = "role_assignment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateUser,
	AggregateRoleAssignment,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventUserProvisioned OutboxEventType = "user_provisioned"
	EventUserUpdated     OutboxEventType = "user_updated"
	EventUserDeleted     OutboxEventType = "user_deleted"
	EventRoleGranted     OutboxEventType = "role_granted"
	EventRoleRevoked     OutboxEventType = "role_revoked"
)

var validOutboxEventTypes = []OutboxEventType{
	EventUserProvisioned,
	EventUserUpdated,
	EventUserDeleted,
	EventRoleGranted,
	EventRoleRevoked,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
