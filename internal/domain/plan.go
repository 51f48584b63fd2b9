package domain

import (
	"fmt"
	"time"
)

type TravelType string

const (
	TypeSolo    TravelType = "solo"
	TypeFriends TravelType = "friends"
	TypeFamily  TravelType = "family"
	TypeCouple  TravelType = "couple"
)

func (t TravelType) Valid() bool {
	switch t {
	case TypeSolo, TypeFriends, TypeFamily, TypeCouple:
		return true
	}
	return false
}

type Destination struct {
	Country string
	City    string
}

type BudgetRange struct {
	Min int64
	Max int64
}

type DateRange struct {
	Start time.Time
	End   time.Time
}

type TravelPlan struct {
	ID          string
	Title       string
	Destination Destination
	Budget      BudgetRange
	Tags        []string
	Type        TravelType
	Dates       DateRange
	HostID      string
	// Participants is ordered and contains each user id at most once.
	// The host is counted as a participant but never as a duplicate entry.
	Participants []string
	Description  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p *TravelPlan) IsHost(userID string) bool { return p.HostID == userID }

func (p *TravelPlan) IsParticipant(userID string) bool {
	if p.HostID == userID {
		return true
	}
	for _, id := range p.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// AddParticipant appends userID unless already present. Idempotent so a
// raced remote add cannot introduce a duplicate into the projection.
func (p *TravelPlan) AddParticipant(userID string) {
	if p.IsParticipant(userID) {
		return
	}
	p.Participants = append(p.Participants, userID)
}

func (p *TravelPlan) RemoveParticipant(userID string) {
	out := p.Participants[:0]
	for _, id := range p.Participants {
		if id != userID {
			out = append(out, id)
		}
	}
	p.Participants = out
}

// Ended reports whether the plan's travel window is in the past.
func (p *TravelPlan) Ended(now time.Time) bool { return p.Dates.End.Before(now) }

// Validate is the client-side fast-fail; the server remains authoritative.
func (p *TravelPlan) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("title is required: %w", ErrValidation)
	}
	if p.Destination.Country == "" || p.Destination.City == "" {
		return fmt.Errorf("destination country and city are required: %w", ErrValidation)
	}
	if p.Budget.Min < 0 || p.Budget.Max < p.Budget.Min {
		return fmt.Errorf("budget range must satisfy 0 <= min <= max: %w", ErrValidation)
	}
	if p.Dates.Start.IsZero() || p.Dates.End.IsZero() || p.Dates.End.Before(p.Dates.Start) {
		return fmt.Errorf("date range must satisfy start <= end: %w", ErrValidation)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("unknown travel type %q: %w", p.Type, ErrValidation)
	}
	return nil
}

type Review struct {
	PlanID     string
	ReviewerID string
	Rating     int
	Comment    string
	CreatedAt  time.Time
}

func (r *Review) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("rating must be an integer between 1 and 5: %w", ErrValidation)
	}
	return nil
}
