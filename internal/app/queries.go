package app

import (
	"context"
	"time"

	"tripmate/internal/domain"
)

// QueryService is the read surface: every accessor is a read-through over
// the cache, so reads below the staleness horizon never touch the store and
// reads after a command's invalidation always do.
type QueryService struct {
	store    domain.PlanStore
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(store domain.PlanStore, cache domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{store: store, cache: cache, cacheTTL: ttl}
}

func (s *QueryService) GetPlan(ctx context.Context, id string) (domain.TravelPlan, error) {
	key := keyPlan(id)
	var p domain.TravelPlan
	if ok, _ := s.cache.Get(ctx, key, &p); ok {
		return p, nil
	}
	p, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return domain.TravelPlan{}, err
	}
	_ = s.cache.Set(ctx, key, p, int(s.cacheTTL.Seconds()))
	return p, nil
}

func (s *QueryService) SearchPlans(ctx context.Context, f domain.PlanFilter) ([]domain.TravelPlan, error) {
	return s.cachedPlans(ctx, keyPlanList(f), f)
}

func (s *QueryService) HostedPlans(ctx context.Context, userID string) ([]domain.TravelPlan, error) {
	return s.cachedPlans(ctx, keyHosted(userID), domain.PlanFilter{HostID: userID})
}

func (s *QueryService) JoinedPlans(ctx context.Context, userID string) ([]domain.TravelPlan, error) {
	return s.cachedPlans(ctx, keyJoined(userID), domain.PlanFilter{ParticipantID: userID})
}

// PastJoinedPlans backs the review surface: plans the user participated in
// whose end date has passed.
func (s *QueryService) PastJoinedPlans(ctx context.Context, userID string) ([]domain.TravelPlan, error) {
	return s.cachedPlans(ctx, keyPast(userID), domain.PlanFilter{ParticipantID: userID, PastOnly: true})
}

func (s *QueryService) cachedPlans(ctx context.Context, key string, f domain.PlanFilter) ([]domain.TravelPlan, error) {
	var out []domain.TravelPlan
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	plans, err := s.store.ListPlans(ctx, f)
	if err != nil {
		return nil, err
	}
	// copy before caching so callers mutating the result cannot poison the
	// cached value
	cp := make([]domain.TravelPlan, len(plans))
	copy(cp, plans)
	_ = s.cache.Set(ctx, key, cp, int(s.cacheTTL.Seconds()))
	return plans, nil
}

func (s *QueryService) PlanRequests(ctx context.Context, planID string) ([]domain.JoinRequest, error) {
	key := keyPlanReqs(planID)
	var out []domain.JoinRequest
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	reqs, err := s.store.ListPlanRequests(ctx, planID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, reqs, int(s.cacheTTL.Seconds()))
	return reqs, nil
}

func (s *QueryService) UserRequests(ctx context.Context, userID string) ([]domain.JoinRequest, error) {
	key := keyUserReqs(userID)
	var out []domain.JoinRequest
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	reqs, err := s.store.ListUserRequests(ctx, userID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, reqs, int(s.cacheTTL.Seconds()))
	return reqs, nil
}
