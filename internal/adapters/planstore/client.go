package planstore

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tripmate/internal/adapters/observability"
	"tripmate/internal/domain"
)

// Client talks to the remote travel-plan store. Every response is wrapped
// in the store's envelope; success=false counts as a failure even on 2xx.
type Client struct {
	base  string
	hc    *http.Client
	token string
	rl    *rate.Limiter
}

func New(base, token string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		hc:    &http.Client{Timeout: 20 * time.Second},
		token: token,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- PlanStore reads ----

func (c *Client) ListPlans(ctx context.Context, f domain.PlanFilter) ([]domain.TravelPlan, error) {
	q := url.Values{}
	setIf := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	setIf("country", f.Country)
	setIf("city", f.City)
	setIf("type", string(f.Type))
	setIf("tag", f.Tag)
	setIf("host", f.HostID)
	setIf("participant", f.ParticipantID)
	if f.PastOnly {
		q.Set("past", "true")
	}
	var out []planDTO
	if err := c.do(ctx, http.MethodGet, "/travel-plans", q, nil, &out); err != nil {
		return nil, err
	}
	return mapPlans(out), nil
}

func (c *Client) GetPlan(ctx context.Context, id string) (domain.TravelPlan, error) {
	var out planDTO
	if err := c.do(ctx, http.MethodGet, "/travel-plans/"+id, nil, nil, &out); err != nil {
		return domain.TravelPlan{}, err
	}
	return out.toDomain(), nil
}

func (c *Client) GetRequest(ctx context.Context, id string) (domain.JoinRequest, error) {
	var out requestDTO
	if err := c.do(ctx, http.MethodGet, "/join-requests/"+id, nil, nil, &out); err != nil {
		return domain.JoinRequest{}, err
	}
	return out.toDomain(), nil
}

func (c *Client) ListPlanRequests(ctx context.Context, planID string) ([]domain.JoinRequest, error) {
	q := url.Values{"travelPlan": {planID}}
	var out []requestDTO
	if err := c.do(ctx, http.MethodGet, "/join-requests", q, nil, &out); err != nil {
		return nil, err
	}
	return mapRequests(out), nil
}

func (c *Client) ListUserRequests(ctx context.Context, userID string) ([]domain.JoinRequest, error) {
	q := url.Values{"requester": {userID}}
	var out []requestDTO
	if err := c.do(ctx, http.MethodGet, "/join-requests", q, nil, &out); err != nil {
		return nil, err
	}
	return mapRequests(out), nil
}

// ---- PlanStore writes ----

func (c *Client) CreatePlan(ctx context.Context, p domain.TravelPlan) (domain.TravelPlan, error) {
	var out planDTO
	if err := c.do(ctx, http.MethodPost, "/travel-plans", nil, fromDomainPlan(p), &out); err != nil {
		return domain.TravelPlan{}, err
	}
	return out.toDomain(), nil
}

func (c *Client) DeletePlan(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/travel-plans/"+id, nil, nil, nil)
}

func (c *Client) AddParticipant(ctx context.Context, planID, userID string) error {
	body := map[string]string{"userId": userID}
	return c.do(ctx, http.MethodPost, "/travel-plans/"+planID+"/participants", nil, body, nil)
}

func (c *Client) RemoveParticipant(ctx context.Context, planID, userID string) error {
	q := url.Values{"userId": {userID}}
	return c.do(ctx, http.MethodDelete, "/travel-plans/"+planID+"/participants", q, nil, nil)
}

func (c *Client) CreateRequest(ctx context.Context, planID, requesterID, message string) (domain.JoinRequest, error) {
	body := map[string]string{"travelPlanId": planID, "requesterId": requesterID, "message": message}
	var out requestDTO
	if err := c.do(ctx, http.MethodPost, "/join-requests", nil, body, &out); err != nil {
		return domain.JoinRequest{}, err
	}
	return out.toDomain(), nil
}

func (c *Client) UpdateRequestStatus(ctx context.Context, id string, to domain.RequestStatus) (domain.JoinRequest, error) {
	body := map[string]string{"status": string(to)}
	var out requestDTO
	if err := c.do(ctx, http.MethodPatch, "/join-requests/"+id, nil, body, &out); err != nil {
		return domain.JoinRequest{}, err
	}
	return out.toDomain(), nil
}

func (c *Client) SubmitReview(ctx context.Context, r domain.Review) error {
	body := map[string]any{"reviewerId": r.ReviewerID, "rating": r.Rating, "comment": r.Comment}
	return c.do(ctx, http.MethodPost, "/travel-plans/"+r.PlanID+"/reviews", nil, body, nil)
}

// CurrentUser resolves the session credential to a user, satisfying
// domain.SessionProvider.
func (c *Client) CurrentUser(ctx context.Context) (domain.User, error) {
	var out userDTO
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &out); err != nil {
		return domain.User{}, err
	}
	return out.toDomain(), nil
}

// ---- Internals ----

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

// classify maps an envelope status to the domain taxonomy, keeping the
// server's message when it provides one.
func classify(status int, msg string) error {
	var base error
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		base = domain.ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		base = domain.ErrForbidden
	case http.StatusNotFound:
		base = domain.ErrNotFound
	case http.StatusConflict:
		base = domain.ErrConflict
	default:
		base = domain.ErrNetwork
	}
	if msg == "" {
		return base
	}
	return fmt.Errorf("%s: %w", msg, base)
}

// do performs one logical call with client-side rate limiting, retries on
// 429/5xx and transport errors, and envelope decoding into out.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	start := time.Now()
	var lastErr error
	for i := 0; i < 4; i++ {
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, rd)
		if err != nil {
			return err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "tripmate/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("%v: %w", err, domain.ErrNetwork)
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			wait := retryAfter(resp)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d: %w", resp.StatusCode, domain.ErrNetwork)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			observability.ObserveExternal("planstore", path, resp.StatusCode, time.Since(start))
			return lastErr

		default:
			var env envelope
			err := json.NewDecoder(resp.Body).Decode(&env)
			status := resp.StatusCode
			resp.Body.Close()
			observability.ObserveExternal("planstore", path, status, time.Since(start))

			if status == http.StatusNoContent {
				return nil
			}
			if err != nil {
				return fmt.Errorf("decode envelope: %v: %w", err, domain.ErrNetwork)
			}
			if env.StatusCode != 0 {
				status = env.StatusCode
			}
			if status < 200 || status >= 300 || !env.Success {
				return classify(status, env.Message)
			}
			if out == nil || len(env.Data) == 0 {
				return nil
			}
			return json.Unmarshal(env.Data, out)
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential delay (200ms, 400ms, 800ms...) with up to
// +50% jitter to avoid thundering herds across sessions.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
