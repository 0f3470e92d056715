package models

import "time"

// ProRequestStatus is the state of a pro-access request.
type ProRequestStatus string

const (
	ProRequestPending        ProRequestStatus = "PENDING"
	ProRequestApproved       ProRequestStatus = "APPROVED"
	ProRequestDenied         ProRequestStatus = "DENIED"
	ProRequestExpired        ProRequestStatus = "EXPIRED"
	ProRequestCreditsGranted ProRequestStatus = "CREDITS_GRANTED"
)

// Terminal reports whether no further transitions are allowed from the status.
func (s ProRequestStatus) Terminal() bool {
	return s != ProRequestPending
}

// ProAccessRequest tracks one request for the pro flag. At most one request
// per account is PENDING at a time; the rest are terminal history rows.
type ProAccessRequest struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	Status        ProRequestStatus `json:"status"`
	RequestedAt   time.Time        `json:"requested_at"`
	DecidedAt     *time.Time       `json:"decided_at,omitempty"`
	Note          *string          `json:"note,omitempty"`
	DecisionNote  *string          `json:"decision_note,omitempty"`
	CooldownUntil *time.Time       `json:"cooldown_until,omitempty"`
}
