package user

import "time"

// Role names understood by the role-membership oracle.
const (
	RoleAdmins            = "admins"
	RoleReviewers         = "reviewers"
	RoleApprovers         = "approvers"
	RoleBiometricians     = "biometricians"
	RoleHerbariumCurators = "herbarium_curators"
	RoleAnimalEthics      = "animal_ethics_committee"
	RoleDataManagers      = "data_managers"
)

// KnownRoles lists every role a user may be granted.
var KnownRoles = []string{
	RoleAdmins,
	RoleReviewers,
	RoleApprovers,
	RoleBiometricians,
	RoleHerbariumCurators,
	RoleAnimalEthics,
	RoleDataManagers,
}

// User is an account that can act on projects and documents.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
