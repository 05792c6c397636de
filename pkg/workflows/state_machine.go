package workflows

// StateMachine enforces status transitions
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewStateMachine creates a state machine from an explicit transition table.
func NewStateMachine(transitions map[string][]string) *StateMachine {
	return &StateMachine{allowedTransitions: transitions}
}

// NewBookingStateMachine returns the booking lifecycle.
func NewBookingStateMachine() *StateMachine {
	return NewStateMachine(map[string][]string{
		"PENDING":    {"CONFIRMED", "REJECTED", "CANCELLED"},
		"CONFIRMED":  {"CHECKED_IN", "ACTIVE", "COMPLETED", "CANCELLED", "REJECTED"},
		"CHECKED_IN": {"ACTIVE", "COMPLETED"},
		"ACTIVE":     {"COMPLETED"},
		"COMPLETED":  {},
		"CANCELLED":  {},
		"REJECTED":   {},
	})
}

// NewDisputeStateMachine returns the dispute lifecycle. Resolution is final.
func NewDisputeStateMachine() *StateMachine {
	return NewStateMachine(map[string][]string{
		"OPEN":        {"IN_PROGRESS", "RESOLVED"},
		"IN_PROGRESS": {"OPEN", "RESOLVED"},
		"RESOLVED":    {},
	})
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
