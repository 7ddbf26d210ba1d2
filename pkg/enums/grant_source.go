package enums

// GrantSource distinguishes explicitly stored grants from grants derived
// during resolution from an ancestor scope.
type GrantSource string

const (
	GrantSourceDirect    GrantSource = "direct"
	GrantSourceInherited GrantSource = "inherited"
)

// String implements fmt.Stringer.
func (g GrantSource) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GrantSource.
func (g GrantSource) IsValid() bool {
	return g == GrantSourceDirect || g == GrantSourceInherited
}
