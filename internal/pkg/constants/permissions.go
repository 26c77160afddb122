package constants

const (
	ViewData           = "view_data"
	CreateTransactions = "create_transactions"
	UploadProof        = "upload_proof"
	ManageInvestors    = "manage_investors"
	ConfirmWires       = "confirm_wires"
)

// PermissionRoles maps each permission to the team roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewData:           {Viewer, Analyst, Manager, Admin, Superadmin},
	CreateTransactions: {Manager, Admin, Superadmin},
	UploadProof:        {Analyst, Manager, Admin, Superadmin},
	ManageInvestors:    {Manager, Admin, Superadmin},
	ConfirmWires:       {Admin, Superadmin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
