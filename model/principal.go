package model

// Principal is the authenticated actor on whose behalf a permission is
// checked. It is supplied by the caller per request; the engine keeps no
// principal state beyond the current call.
type Principal struct {
	ID     string `json:"id"`
	Role   Role   `json:"role"`
	Active bool   `json:"active"`
}
