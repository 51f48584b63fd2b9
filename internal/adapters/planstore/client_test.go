package planstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tripmate/internal/adapters/planstore"
	"tripmate/internal/domain"
)

func envelope(w http.ResponseWriter, status int, success bool, msg string, data any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"statusCode": status, "success": success, "message": msg, "data": data,
	})
}

func TestGetPlan_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			w.WriteHeader(500)
		default:
			envelope(w, 200, true, "", map[string]any{
				"id": "p1", "title": "Lisbon", "country": "PT", "city": "Lisbon",
				"budgetMin": 100, "budgetMax": 500, "travelType": "friends",
				"hostId": "h1", "participants": []string{"u1", "u1"},
			})
		}
	}))
	defer ts.Close()

	cl, err := planstore.New(ts.URL, "token", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	p, err := cl.GetPlan(ctx, "p1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.ID != "p1" || p.HostID != "h1" {
		t.Fatalf("unexpected plan: %+v", p)
	}
	// Server sent a duplicated roster; the projection must dedupe it.
	if len(p.Participants) != 1 {
		t.Fatalf("expected deduped participants, got %v", p.Participants)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected retries, got %d calls", hits)
	}
}

func TestEnvelopeFailure_ClassifiedConflict(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope(w, 409, false, "request is no longer pending", nil)
	}))
	defer ts.Close()

	cl, _ := planstore.New(ts.URL, "token", 100)
	_, err := cl.UpdateRequestStatus(context.Background(), "r1", domain.StatusApproved)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	if err.Error() != "request is no longer pending: "+domain.ErrConflict.Error() {
		t.Fatalf("server message lost: %v", err)
	}
}

func TestSuccessFalseOn200_IsFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 2xx transport status but an application-level failure.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"statusCode": 403, "success": false, "message": "hosts cannot leave", "data": nil,
		})
	}))
	defer ts.Close()

	cl, _ := planstore.New(ts.URL, "token", 100)
	err := cl.RemoveParticipant(context.Background(), "p1", "h1")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
}

func TestNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope(w, 404, false, "", nil)
	}))
	defer ts.Close()

	cl, _ := planstore.New(ts.URL, "token", 100)
	_, err := cl.GetRequest(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // refuse connections

	cl, _ := planstore.New(ts.URL, "token", 100)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := cl.GetPlan(ctx, "p1")
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("want ErrNetwork, got %v", err)
	}
}

func TestAuthHeaderAttached(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		envelope(w, 200, true, "", []any{})
	}))
	defer ts.Close()

	cl, _ := planstore.New(ts.URL, "secret", 100)
	if _, err := cl.ListPlans(context.Background(), domain.PlanFilter{}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != "Bearer secret" {
		t.Fatalf("credential not attached, got %q", got)
	}
}
