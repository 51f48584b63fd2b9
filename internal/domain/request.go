package domain

import "time"

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
)

// Terminal reports whether no further transition is valid from s.
func (s RequestStatus) Terminal() bool { return s != StatusPending }

// CanTransition encodes the request state machine: pending is the only
// source state; approved, rejected and cancelled are terminal.
func (s RequestStatus) CanTransition(to RequestStatus) bool {
	if s != StatusPending {
		return false
	}
	switch to {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

type JoinRequest struct {
	ID          string
	PlanID      string
	RequesterID string
	Status      RequestStatus
	Message     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
