package planstore

import (
	"time"

	"tripmate/internal/domain"
)

// Wire shapes of the remote store. Kept separate from the domain so server
// field renames stay contained in this package.

type planDTO struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Country      string    `json:"country"`
	City         string    `json:"city"`
	BudgetMin    int64     `json:"budgetMin"`
	BudgetMax    int64     `json:"budgetMax"`
	Tags         []string  `json:"tags"`
	TravelType   string    `json:"travelType"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	HostID       string    `json:"hostId"`
	Participants []string  `json:"participants"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (d planDTO) toDomain() domain.TravelPlan {
	p := domain.TravelPlan{
		ID:          d.ID,
		Title:       d.Title,
		Destination: domain.Destination{Country: d.Country, City: d.City},
		Budget:      domain.BudgetRange{Min: d.BudgetMin, Max: d.BudgetMax},
		Tags:        d.Tags,
		Type:        domain.TravelType(d.TravelType),
		Dates:       domain.DateRange{Start: d.StartDate, End: d.EndDate},
		HostID:      d.HostID,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	// Dedupe through AddParticipant so a misbehaving server response can
	// never break the roster invariant client-side.
	for _, id := range d.Participants {
		p.AddParticipant(id)
	}
	return p
}

func fromDomainPlan(p domain.TravelPlan) planDTO {
	return planDTO{
		ID:           p.ID,
		Title:        p.Title,
		Country:      p.Destination.Country,
		City:         p.Destination.City,
		BudgetMin:    p.Budget.Min,
		BudgetMax:    p.Budget.Max,
		Tags:         p.Tags,
		TravelType:   string(p.Type),
		StartDate:    p.Dates.Start,
		EndDate:      p.Dates.End,
		HostID:       p.HostID,
		Participants: p.Participants,
		Description:  p.Description,
	}
}

func mapPlans(in []planDTO) []domain.TravelPlan {
	out := make([]domain.TravelPlan, 0, len(in))
	for _, d := range in {
		out = append(out, d.toDomain())
	}
	return out
}

type requestDTO struct {
	ID           string    `json:"id"`
	TravelPlanID string    `json:"travelPlanId"`
	RequesterID  string    `json:"requesterId"`
	Status       string    `json:"status"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (d requestDTO) toDomain() domain.JoinRequest {
	return domain.JoinRequest{
		ID:          d.ID,
		PlanID:      d.TravelPlanID,
		RequesterID: d.RequesterID,
		Status:      domain.RequestStatus(d.Status),
		Message:     d.Message,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func mapRequests(in []requestDTO) []domain.JoinRequest {
	out := make([]domain.JoinRequest, 0, len(in))
	for _, d := range in {
		out = append(out, d.toDomain())
	}
	return out
}

type userDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	AvatarURL string  `json:"avatarUrl"`
	Bio       string  `json:"bio"`
	Verified  bool    `json:"verified"`
	Rating    float64 `json:"rating"`
}

func (d userDTO) toDomain() domain.User {
	return domain.User{
		ID:        d.ID,
		Name:      d.Name,
		AvatarURL: d.AvatarURL,
		Bio:       d.Bio,
		Verified:  d.Verified,
		Rating:    d.Rating,
	}
}
