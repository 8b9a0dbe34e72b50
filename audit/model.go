package audit

import "time"

// Entry records one permission decision.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Resource  string    `json:"resource"`
	Action    string    `json:"action"`
	OwnerID   string    `json:"owner_id,omitempty"`
	Allowed   bool      `json:"allowed"`
	Cached    bool      `json:"cached"`
}
