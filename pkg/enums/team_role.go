package enums

import "fmt"

// TeamRole is the role a user holds inside an internal team. A team
// leader on a company's owning team administers that company implicitly.
type TeamRole string

const (
	TeamRoleLeader TeamRole = "leader"
	TeamRoleMember TeamRole = "member"
)

// String implements fmt.Stringer.
func (t TeamRole) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TeamRole.
func (t TeamRole) IsValid() bool {
	return t == TeamRoleLeader || t == TeamRoleMember
}

// ParseTeamRole converts raw input into a TeamRole.
func ParseTeamRole(value string) (TeamRole, error) {
	switch TeamRole(value) {
	case TeamRoleLeader, TeamRoleMember:
		return TeamRole(value), nil
	}
	return "", fmt.Errorf("invalid team role %q", value)
}
