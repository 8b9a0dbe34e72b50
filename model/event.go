package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// InvalidationScope selects which cached decisions an event removes.
type InvalidationScope int

const (
	// InvalidateAll clears every cached decision.
	InvalidateAll InvalidationScope = iota
	// InvalidateUser clears decisions whose principal matches TargetID.
	InvalidateUser
	// InvalidateResource clears decisions tied to a resource type or a
	// resource owner matching TargetID.
	InvalidateResource
)

func (s InvalidationScope) String() string {
	switch s {
	case InvalidateAll:
		return "all"
	case InvalidateUser:
		return "user"
	case InvalidateResource:
		return "resource"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// InvalidationEvent tells caches that some subset of decisions is stale.
// Origin identifies the broadcaster that published the event so that it
// can drop its own message when it comes back off the wire.
type InvalidationEvent struct {
	Scope    InvalidationScope
	TargetID string
	IssuedAt time.Time
	Origin   string
}

// NewInvalidateAll builds an event clearing every entry.
func NewInvalidateAll() InvalidationEvent {
	return InvalidationEvent{Scope: InvalidateAll, IssuedAt: time.Now()}
}

// NewInvalidateUser builds an event clearing one principal's entries.
func NewInvalidateUser(userID string) InvalidationEvent {
	return InvalidationEvent{Scope: InvalidateUser, TargetID: userID, IssuedAt: time.Now()}
}

// NewInvalidateResource builds an event clearing entries tied to a
// resource type or resource owner.
func NewInvalidateResource(resourceID string) InvalidationEvent {
	return InvalidationEvent{Scope: InvalidateResource, TargetID: resourceID, IssuedAt: time.Now()}
}

// wireMessage is the cross-context schema. Absence of both userId and
// resourceId means "invalidate everything".
type wireMessage struct {
	Type       string `json:"type"`
	UserID     string `json:"userId,omitempty"`
	ResourceID string `json:"resourceId,omitempty"`
	Timestamp  int64  `json:"timestamp"`
	Origin     string `json:"origin,omitempty"`
}

const wireType = "CACHE_INVALIDATED"

// MarshalWire serializes the event for the external transport.
func (e InvalidationEvent) MarshalWire() ([]byte, error) {
	msg := wireMessage{
		Type:      wireType,
		Timestamp: e.IssuedAt.UnixMilli(),
		Origin:    e.Origin,
	}
	switch e.Scope {
	case InvalidateAll:
	case InvalidateUser:
		msg.UserID = e.TargetID
	case InvalidateResource:
		msg.ResourceID = e.TargetID
	default:
		return nil, fmt.Errorf("unknown invalidation scope: %d", e.Scope)
	}
	return json.Marshal(msg)
}

// UnmarshalWire deserializes a transport message back into the closed
// variant.
func UnmarshalWire(data []byte) (InvalidationEvent, error) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return InvalidationEvent{}, fmt.Errorf("decode invalidation message: %w", err)
	}
	if msg.Type != wireType {
		return InvalidationEvent{}, fmt.Errorf("unexpected message type: %q", msg.Type)
	}

	event := InvalidationEvent{
		IssuedAt: time.UnixMilli(msg.Timestamp),
		Origin:   msg.Origin,
	}
	switch {
	case msg.UserID != "":
		event.Scope = InvalidateUser
		event.TargetID = msg.UserID
	case msg.ResourceID != "":
		event.Scope = InvalidateResource
		event.TargetID = msg.ResourceID
	default:
		event.Scope = InvalidateAll
	}
	return event, nil
}
