package enums

import "fmt"

// ContributionStatus tracks the payment lifecycle of a contribution.
type ContributionStatus string

const (
	ContributionStatusPending   ContributionStatus = "pending"
	ContributionStatusCompleted ContributionStatus = "completed"
	ContributionStatusFailed    ContributionStatus = "failed"
	ContributionStatusRefunded  ContributionStatus = "refunded"
)

var validContributionStatuses = []ContributionStatus{
	ContributionStatusPending,
	ContributionStatusCompleted,
	ContributionStatusFailed,
	ContributionStatusRefunded,
}

// String implements fmt.Stringer.
func (c ContributionStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ContributionStatus.
func (c ContributionStatus) IsValid() bool {
	for _, candidate := range validContributionStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further webhook transition.
// Completed contributions only move through the separate refund workflow.
func (c ContributionStatus) IsTerminal() bool {
	return c == ContributionStatusCompleted || c == ContributionStatusRefunded
}

// ParseContributionStatus converts raw input into a ContributionStatus.
func ParseContributionStatus(value string) (ContributionStatus, error) {
	for _, candidate := range validContributionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contribution status %q", value)
}
