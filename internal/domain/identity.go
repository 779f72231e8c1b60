package domain

// Identity is the session identity yielded by the external auth
// provider. Consumed read-only; the service never mutates it.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	Role        Role
}

// Owns reports whether the identity created the given issue. Records
// created before reporter IDs existed are matched by email.
func (id Identity) Owns(issue Issue) bool {
	if id.UID != "" && issue.ReporterID == id.UID {
		return true
	}
	return id.Email != "" && issue.ReporterEmail == id.Email
}
