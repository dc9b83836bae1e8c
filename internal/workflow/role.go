package workflow

import "fmt"

// Role is the authorization tag on a profile. The set is closed: every
// role-keyed decision in the codebase is an exhaustive switch over these
// five values so a new role cannot be added without updating each site.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleTechnician Role = "technician"
	RoleQC         Role = "qc"
	RoleSales      Role = "sales"

	// RoleSystem triggers the single automatic edge (qc_passed ->
	// ready_for_dispatch). It is never assignable to a profile.
	RoleSystem Role = "system"
)

// Roles lists the assignable roles.
var Roles = []Role{RoleAdmin, RoleSupervisor, RoleTechnician, RoleQC, RoleSales}

// ParseRole validates a role string from a request or token.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleSupervisor, RoleTechnician, RoleQC, RoleSales:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is an assignable profile role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleTechnician, RoleQC, RoleSales:
		return true
	}
	return false
}

// CodePrefix is the user-code prefix for profiles of this role, e.g.
// TEC-0007 for the seventh technician.
func (r Role) CodePrefix() string {
	switch r {
	case RoleAdmin:
		return "ADM"
	case RoleSupervisor:
		return "SUP"
	case RoleTechnician:
		return "TEC"
	case RoleQC:
		return "QCI"
	case RoleSales:
		return "SAL"
	}
	return "USR"
}

// Description is the seeded human-readable description of the role.
func (r Role) Description() string {
	switch r {
	case RoleAdmin:
		return "Full access: users, cycles, checklists, QC overrides"
	case RoleSupervisor:
		return "Assigns cycles to technicians and tracks progress"
	case RoleTechnician:
		return "Performs assembly work on assigned cycles"
	case RoleQC:
		return "Inspects completed assemblies"
	case RoleSales:
		return "Dispatches inspected cycles"
	}
	return ""
}
