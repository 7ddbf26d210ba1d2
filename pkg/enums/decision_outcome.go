package enums

// DecisionOutcome records how an access check concluded for audit purposes.
type DecisionOutcome string

const (
	DecisionAllowed    DecisionOutcome = "allowed"
	DecisionDenied     DecisionOutcome = "denied"
	DecisionStoreError DecisionOutcome = "store_error"
)

// String implements fmt.Stringer.
func (d DecisionOutcome) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DecisionOutcome.
func (d DecisionOutcome) IsValid() bool {
	switch d {
	case DecisionAllowed, DecisionDenied, DecisionStoreError:
		return true
	}
	return false
}
