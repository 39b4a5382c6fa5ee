package workflows

// StateMachine enforces entity status transitions
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewListingStateMachine returns the listing lifecycle: a listing leaves
// ACTIVE exactly once and both end states are terminal.
func NewListingStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"ACTIVE":    {"SOLD", "CANCELLED"},
			"SOLD":      {},
			"CANCELLED": {},
		},
	}
}

// NewCertificateStateMachine returns the certificate lifecycle.
func NewCertificateStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"PENDING":  {"VERIFIED"},
			"VERIFIED": {},
		},
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}
