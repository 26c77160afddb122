package constants

const (
	Superadmin = "superadmin"
	Admin      = "admin"
	Manager    = "manager"
	Analyst    = "analyst"
	Viewer     = "viewer"
)

// ValidRoles is the set of GP team roles a session may carry.
var ValidRoles = []string{Viewer, Analyst, Manager, Admin, Superadmin}

// IsValidRole returns true if role is one of the allowed enum values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
