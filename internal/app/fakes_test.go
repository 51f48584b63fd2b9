package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"tripmate/internal/domain"
)

// ---- fakes ----

// fakeStore behaves like the remote store: it owns canonical state and
// arbitrates conflicts the same way the server contract does.
type fakeStore struct {
	mu       sync.Mutex
	plans    map[string]*domain.TravelPlan
	requests map[string]*domain.JoinRequest
	reviews  []domain.Review
	nextID   int

	addParticipantErr error // injected failure for partial-failure tests
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		plans:    map[string]*domain.TravelPlan{},
		requests: map[string]*domain.JoinRequest{},
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return prefix + strconv.Itoa(f.nextID)
}

func (f *fakeStore) seedPlan(p domain.TravelPlan) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		p.ID = f.id("p")
	}
	cp := p
	f.plans[cp.ID] = &cp
	return cp.ID
}

func (f *fakeStore) ListPlans(ctx context.Context, flt domain.PlanFilter) ([]domain.TravelPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TravelPlan
	for _, p := range f.plans {
		if flt.HostID != "" && p.HostID != flt.HostID {
			continue
		}
		if flt.ParticipantID != "" && !p.IsParticipant(flt.ParticipantID) {
			continue
		}
		if flt.PastOnly && !p.Ended(time.Now()) {
			continue
		}
		if flt.Country != "" && p.Destination.Country != flt.Country {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) GetPlan(ctx context.Context, id string) (domain.TravelPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok {
		return domain.TravelPlan{}, domain.ErrNotFound
	}
	cp := *p
	cp.Participants = append([]string(nil), p.Participants...)
	return cp, nil
}

func (f *fakeStore) GetRequest(ctx context.Context, id string) (domain.JoinRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return domain.JoinRequest{}, domain.ErrNotFound
	}
	return *r, nil
}

func (f *fakeStore) ListPlanRequests(ctx context.Context, planID string) ([]domain.JoinRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.JoinRequest
	for _, r := range f.requests {
		if r.PlanID == planID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListUserRequests(ctx context.Context, userID string) ([]domain.JoinRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.JoinRequest
	for _, r := range f.requests {
		if r.RequesterID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) CreatePlan(ctx context.Context, p domain.TravelPlan) (domain.TravelPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.id("p")
	p.CreatedAt = time.Now()
	cp := p
	f.plans[p.ID] = &cp
	return p, nil
}

func (f *fakeStore) DeletePlan(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.plans[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.plans, id)
	return nil
}

func (f *fakeStore) AddParticipant(ctx context.Context, planID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addParticipantErr != nil {
		return f.addParticipantErr
	}
	p, ok := f.plans[planID]
	if !ok {
		return domain.ErrNotFound
	}
	if p.IsParticipant(userID) {
		return fmt.Errorf("already a participant: %w", domain.ErrConflict)
	}
	p.AddParticipant(userID)
	return nil
}

func (f *fakeStore) RemoveParticipant(ctx context.Context, planID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[planID]
	if !ok {
		return domain.ErrNotFound
	}
	if p.IsHost(userID) {
		return fmt.Errorf("hosts cannot leave: %w", domain.ErrForbidden)
	}
	if !p.IsParticipant(userID) {
		return fmt.Errorf("not a participant: %w", domain.ErrConflict)
	}
	p.RemoveParticipant(userID)
	return nil
}

func (f *fakeStore) CreateRequest(ctx context.Context, planID, requesterID, message string) (domain.JoinRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.plans[planID]; !ok {
		return domain.JoinRequest{}, domain.ErrNotFound
	}
	// At most one pending request per (requester, plan); the store is the
	// final arbiter even when the client raced past its own check.
	for _, r := range f.requests {
		if r.PlanID == planID && r.RequesterID == requesterID && r.Status == domain.StatusPending {
			return domain.JoinRequest{}, fmt.Errorf("pending request exists: %w", domain.ErrConflict)
		}
	}
	req := domain.JoinRequest{
		ID: f.id("r"), PlanID: planID, RequesterID: requesterID,
		Status: domain.StatusPending, Message: message, CreatedAt: time.Now(),
	}
	f.requests[req.ID] = &req
	return req, nil
}

func (f *fakeStore) UpdateRequestStatus(ctx context.Context, id string, to domain.RequestStatus) (domain.JoinRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return domain.JoinRequest{}, domain.ErrNotFound
	}
	if !r.Status.CanTransition(to) {
		return domain.JoinRequest{}, fmt.Errorf("request is %s: %w", r.Status, domain.ErrConflict)
	}
	r.Status = to
	r.UpdatedAt = time.Now()
	return *r, nil
}

func (f *fakeStore) SubmitReview(ctx context.Context, r domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews = append(f.reviews, r)
	return nil
}

func (f *fakeStore) pendingCount(planID, requesterID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.PlanID == planID && r.RequesterID == requesterID && r.Status == domain.StatusPending {
			n++
		}
	}
	return n
}

// fakeCache is an in-memory domain.Cache that records invalidations.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	dels  []string
}

func newFakeCache() *fakeCache { return &fakeCache{store: map[string][]byte{}} }

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

func (c *fakeCache) DelPrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.store {
		if strings.HasPrefix(k, prefix) {
			delete(c.store, k)
		}
	}
	c.dels = append(c.dels, prefix+"*")
	return nil
}

func (c *fakeCache) invalidations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.dels...)
}

// fakeSession pins the acting user, one per simulated session.
type fakeSession struct{ u domain.User }

func (s fakeSession) CurrentUser(ctx context.Context) (domain.User, error) { return s.u, nil }
