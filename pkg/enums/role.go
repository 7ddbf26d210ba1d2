package enums

import "fmt"

// Role represents a permissions role within the organizational hierarchy.
// Roles are totally ordered; a lower rank means more privilege.
type Role string

const (
	RoleOwner        Role = "owner"
	RoleCompanyAdmin Role = "company_admin"
	RoleBrandAdmin   Role = "brand_admin"
	RoleShopManager  Role = "shop_manager"
	RoleAdmin        Role = "admin"
	RoleManager      Role = "manager"
	RoleUser         Role = "user"
	RoleViewer       Role = "viewer"
)

var roleRanks = map[Role]int{
	RoleOwner:        1,
	RoleCompanyAdmin: 2,
	RoleBrandAdmin:   3,
	RoleShopManager:  4,
	RoleAdmin:        5,
	RoleManager:      6,
	RoleUser:         7,
	RoleViewer:       8,
}

var validRoles = []Role{
	RoleOwner,
	RoleCompanyAdmin,
	RoleBrandAdmin,
	RoleShopManager,
	RoleAdmin,
	RoleManager,
	RoleUser,
	RoleViewer,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the total-order position of the role. Unknown roles sort
// after every valid role so they can never satisfy a requirement.
func (r Role) Rank() int {
	if rank, ok := roleRanks[r]; ok {
		return rank
	}
	return len(roleRanks) + 1
}

// Satisfies reports whether the role meets the required role's privilege level.
func (r Role) Satisfies(required Role) bool {
	return r.IsValid() && required.IsValid() && r.Rank() <= required.Rank()
}

// MorePrivilegedThan reports whether the role outranks the other role strictly.
func (r Role) MorePrivilegedThan(other Role) bool {
	return r.Rank() < other.Rank()
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
