package app_test

import (
	"context"
	"testing"
	"time"

	"tripmate/internal/app"
	"tripmate/internal/domain"
)

func TestGetPlan_CacheMissThenHit(t *testing.T) {
	store, cache := newFakeStore(), newFakeCache()
	planID := seedLisbonPlan(store)
	q := app.NewQueryService(store, cache, 10*time.Minute)
	ctx := context.Background()

	p, err := q.GetPlan(ctx, planID)
	if err != nil {
		t.Fatalf("miss read: %v", err)
	}
	if p.Title != "Lisbon week" {
		t.Fatalf("unexpected plan: %+v", p)
	}

	// Mutate the store directly; an unaffected key may serve stale data
	// until its horizon, so the second read must come from cache.
	store.mu.Lock()
	store.plans[planID].Title = "SHOULD NOT SEE THIS"
	store.mu.Unlock()

	p2, err := q.GetPlan(ctx, planID)
	if err != nil {
		t.Fatalf("hit read: %v", err)
	}
	if p2.Title != "Lisbon week" {
		t.Fatalf("expected cached title, got %q", p2.Title)
	}
}

func TestSearchPlans_KeyedByFilter(t *testing.T) {
	store, cache := newFakeStore(), newFakeCache()
	seedLisbonPlan(store)
	store.seedPlan(domain.TravelPlan{
		Title:       "Kyoto spring",
		Destination: domain.Destination{Country: "JP", City: "Kyoto"},
		Budget:      domain.BudgetRange{Min: 800, Max: 2000},
		Type:        domain.TypeCouple,
		Dates: domain.DateRange{
			Start: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		},
		HostID: "h2",
	})
	q := app.NewQueryService(store, cache, 10*time.Minute)
	ctx := context.Background()

	all, err := q.SearchPlans(ctx, domain.PlanFilter{})
	if err != nil {
		t.Fatalf("search all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("want 2 plans, got %d", len(all))
	}

	pt, err := q.SearchPlans(ctx, domain.PlanFilter{Country: "PT"})
	if err != nil {
		t.Fatalf("search PT: %v", err)
	}
	if len(pt) != 1 || pt[0].Destination.Country != "PT" {
		t.Fatalf("filter leaked into the wrong key: %+v", pt)
	}
}

func TestUserScopedReads(t *testing.T) {
	store, cache := newFakeStore(), newFakeCache()
	planID := seedLisbonPlan(store)
	pastID := store.seedPlan(domain.TravelPlan{
		Title:       "Last summer",
		Destination: domain.Destination{Country: "ES", City: "Sevilla"},
		Budget:      domain.BudgetRange{Min: 50, Max: 300},
		Type:        domain.TypeFriends,
		Dates: domain.DateRange{
			Start: time.Date(2020, 8, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2020, 8, 10, 0, 0, 0, 0, time.UTC),
		},
		HostID:       "h2",
		Participants: []string{umi.ID},
	})
	q := app.NewQueryService(store, cache, 10*time.Minute)
	ctx := context.Background()

	hosted, err := q.HostedPlans(ctx, host.ID)
	if err != nil {
		t.Fatalf("hosted: %v", err)
	}
	if len(hosted) != 1 || hosted[0].ID != planID {
		t.Fatalf("unexpected hosted plans: %+v", hosted)
	}

	past, err := q.PastJoinedPlans(ctx, umi.ID)
	if err != nil {
		t.Fatalf("past: %v", err)
	}
	if len(past) != 1 || past[0].ID != pastID {
		t.Fatalf("unexpected past plans: %+v", past)
	}
}

func TestRequestListings_CacheAndInvalidate(t *testing.T) {
	store, cache := newFakeStore(), newFakeCache()
	planID := seedLisbonPlan(store)
	q := app.NewQueryService(store, cache, 10*time.Minute)
	cmds := app.NewCommandService(store, cache, fakeSession{umi}, nil)
	ctx := context.Background()

	mine, err := q.UserRequests(ctx, umi.ID)
	if err != nil {
		t.Fatalf("empty listing: %v", err)
	}
	if len(mine) != 0 {
		t.Fatalf("expected no requests, got %+v", mine)
	}

	// Creating a request invalidates the warm listing, so the next read
	// sees the pending entry instead of the cached empty result.
	if _, err := cmds.CreateJoinRequest(ctx, planID, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	mine, err = q.UserRequests(ctx, umi.ID)
	if err != nil {
		t.Fatalf("listing after create: %v", err)
	}
	if len(mine) != 1 || mine[0].Status != domain.StatusPending {
		t.Fatalf("stale listing after invalidation: %+v", mine)
	}
}
