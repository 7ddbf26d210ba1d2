package enums

import "fmt"

// Scope identifies a level in the tenant hierarchy: Company owns Brands,
// Brands own Shops. A grant always targets exactly one scope.
type Scope string

const (
	ScopeCompany Scope = "company"
	ScopeBrand   Scope = "brand"
	ScopeShop    Scope = "shop"
)

var scopeDepths = map[Scope]int{
	ScopeCompany: 1,
	ScopeBrand:   2,
	ScopeShop:    3,
}

// String implements fmt.Stringer.
func (s Scope) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Scope.
func (s Scope) IsValid() bool {
	_, ok := scopeDepths[s]
	return ok
}

// Depth returns the nesting level of the scope, Company being the shallowest.
func (s Scope) Depth() int {
	if depth, ok := scopeDepths[s]; ok {
		return depth
	}
	return 0
}

// ParseScope converts raw input into a Scope.
func ParseScope(value string) (Scope, error) {
	switch Scope(value) {
	case ScopeCompany, ScopeBrand, ScopeShop:
		return Scope(value), nil
	}
	return "", fmt.Errorf("invalid scope %q", value)
}
