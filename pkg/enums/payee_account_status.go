package enums

// PayeeAccountStatus mirrors the provider-side account capability state.
type PayeeAccountStatus string

const (
	PayeeAccountStatusPending    PayeeAccountStatus = "pending"
	PayeeAccountStatusActive     PayeeAccountStatus = "active"
	PayeeAccountStatusRestricted PayeeAccountStatus = "restricted"
	PayeeAccountStatusInactive   PayeeAccountStatus = "inactive"
)

var validPayeeAccountStatuses = []PayeeAccountStatus{
	PayeeAccountStatusPending,
	PayeeAccountStatusActive,
	PayeeAccountStatusRestricted,
	PayeeAccountStatusInactive,
}

// String implements fmt.Stringer.
func (p PayeeAccountStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PayeeAccountStatus.
func (p PayeeAccountStatus) IsValid() bool {
	for _, candidate := range validPayeeAccountStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// DerivePayeeAccountStatus recomputes the status from provider capability flags.
// Active requires both charges and payouts; a submitted application that is not
// fully enabled is restricted; everything else is still pending.
func DerivePayeeAccountStatus(chargesEnabled, payoutsEnabled, onboardingCompleted bool) PayeeAccountStatus {
	switch {
	case chargesEnabled && payoutsEnabled:
		return PayeeAccountStatusActive
	case onboardingCompleted:
		return PayeeAccountStatusRestricted
	default:
		return PayeeAccountStatusPending
	}
}
