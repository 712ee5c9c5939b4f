package models

// IdentityClaim is the verified identity asserted by the identity provider.
// It is never persisted as such; the users table keeps a directory copy.
type IdentityClaim struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// Complete reports whether the claim carries the fields a session needs.
func (c IdentityClaim) Complete() bool {
	return c.Email != "" && c.Name != ""
}
