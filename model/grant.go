package model

// Scope bounds a grant to every instance of a resource or only to the
// instances owned by the principal.
type Scope string

const (
	ScopeOwn Scope = "own"
	ScopeAll Scope = "all"
)

// CapabilityGrant is one (resource, action, scope) entry in the
// capability matrix.
type CapabilityGrant struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Scope    Scope  `json:"scope"`
}

// Matches reports whether the grant covers the given resource and action.
// A grant may use ResourceAny / ActionAny as an explicit wildcard.
func (g CapabilityGrant) Matches(resource, action string) bool {
	if g.Resource != resource && g.Resource != ResourceAny {
		return false
	}
	return g.Action == action || g.Action == ActionAny
}
