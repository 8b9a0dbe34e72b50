package model

// Resource names understood by the capability matrix.
const (
	ResourceProducts   = "products"
	ResourcePages      = "pages"
	ResourceCategories = "categories"
	ResourceMedia      = "media"
	ResourceUsers      = "users"
	ResourceSettings   = "settings"

	// ResourceAny is the explicit wildcard used inside grants. It is never
	// valid in a permission request.
	ResourceAny = "*"
)

// Actions understood by the capability matrix.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionManage = "manage"

	ActionAny = "*"
)

var knownResources = map[string]bool{
	ResourceProducts:   true,
	ResourcePages:      true,
	ResourceCategories: true,
	ResourceMedia:      true,
	ResourceUsers:      true,
	ResourceSettings:   true,
}

var knownActions = map[string]bool{
	ActionCreate: true,
	ActionRead:   true,
	ActionUpdate: true,
	ActionDelete: true,
	ActionManage: true,
}

// KnownResource reports whether the resource name is registered.
func KnownResource(resource string) bool {
	return knownResources[resource]
}

// KnownAction reports whether the action name is registered.
func KnownAction(action string) bool {
	return knownActions[action]
}

// CRUDActions lists the actions reported by a resource-permissions query.
func CRUDActions() []string {
	return []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage}
}
