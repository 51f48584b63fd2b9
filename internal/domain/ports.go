package domain

import "context"

// PlanStore is the client of the remote travel-plan store. The server owns
// all canonical state; everything read through this port is a projection.
type PlanStore interface {
	// Read paths
	ListPlans(ctx context.Context, f PlanFilter) ([]TravelPlan, error)
	GetPlan(ctx context.Context, id string) (TravelPlan, error)
	GetRequest(ctx context.Context, id string) (JoinRequest, error)
	ListPlanRequests(ctx context.Context, planID string) ([]JoinRequest, error)
	ListUserRequests(ctx context.Context, userID string) ([]JoinRequest, error)

	// Write paths
	CreatePlan(ctx context.Context, p TravelPlan) (TravelPlan, error)
	DeletePlan(ctx context.Context, id string) error
	AddParticipant(ctx context.Context, planID, userID string) error
	RemoveParticipant(ctx context.Context, planID, userID string) error
	CreateRequest(ctx context.Context, planID, requesterID, message string) (JoinRequest, error)
	UpdateRequestStatus(ctx context.Context, id string, to RequestStatus) (JoinRequest, error)
	SubmitReview(ctx context.Context, r Review) error
}

// SessionProvider resolves the acting user from the opaque credential the
// transport carries. How the credential is obtained is out of scope here.
type SessionProvider interface {
	CurrentUser(ctx context.Context) (User, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
	// DelPrefix drops every key in a family, e.g. all cached plan listings.
	DelPrefix(ctx context.Context, prefix string) error
}

// PlanFilter narrows ListPlans. Zero values mean "no constraint".
type PlanFilter struct {
	Country       string
	City          string
	Type          TravelType
	Tag           string
	HostID        string
	ParticipantID string
	// PastOnly restricts to plans whose end date has passed; backs the
	// "past joined plans" read that gates reviews.
	PastOnly bool
}
