package enums

// InvitationStatus tracks the lifecycle of a team invitation.
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusRevoked  InvitationStatus = "revoked"
	InvitationStatusExpired  InvitationStatus = "expired"
)

// String implements fmt.Stringer.
func (i InvitationStatus) String() string {
	return string(i)
}

// IsValid reports whether the value is a known InvitationStatus.
func (i InvitationStatus) IsValid() bool {
	switch i {
	case InvitationStatusPending, InvitationStatusAccepted, InvitationStatusRevoked, InvitationStatusExpired:
		return true
	}
	return false
}
