package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"tripmate/internal/app"
	"tripmate/internal/domain"
)

type Handlers struct {
	Q *app.QueryService
	C *app.CommandService
	// Me resolves the session for the /v1/me/* reads.
	Me domain.SessionProvider
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Get("/v1/plans", h.searchPlans)
	s.mux.Get("/v1/plans/{id}", h.getPlan)

	s.mux.Group(func(m chi.Router) {
		m.Use(RequireAuth)

		m.Post("/v1/plans", h.createPlan)
		m.Delete("/v1/plans/{id}", h.deletePlan)
		m.Post("/v1/plans/{id}/participants", h.joinPlan)
		m.Delete("/v1/plans/{id}/participants", h.leavePlan)
		m.Get("/v1/plans/{id}/requests", h.planRequests)
		m.Post("/v1/plans/{id}/reviews", h.submitReview)

		m.Post("/v1/join-requests", h.createJoinRequest)
		m.Post("/v1/join-requests/{id}/accept", h.acceptJoinRequest)
		m.Post("/v1/join-requests/{id}/reject", h.rejectJoinRequest)
		m.Delete("/v1/join-requests/{id}", h.cancelJoinRequest)

		m.Get("/v1/me/plans", h.myPlans)
		m.Get("/v1/me/joined", h.myJoined)
		m.Get("/v1/me/past", h.myPast)
		m.Get("/v1/me/requests", h.myRequests)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps the domain taxonomy onto problem+json. Duplicate and
// already-member wrap conflict, so they are checked first.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid Input", err.Error())
	case errors.Is(err, domain.ErrDuplicateRequest):
		writeProblem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.Is(err, domain.ErrAlreadyMember):
		writeProblem(w, http.StatusConflict, "Already Member", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, domain.ErrNetwork):
		writeProblem(w, http.StatusBadGateway, "Upstream Unavailable", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal Error", err.Error())
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Error().Err(err).Msg("failed to write JSON body")
		}
	}
}

// ---- Read surface ----

func (h *Handlers) searchPlans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.PlanFilter{
		Country:       q.Get("country"),
		City:          q.Get("city"),
		Type:          domain.TravelType(q.Get("type")),
		Tag:           q.Get("tag"),
		HostID:        q.Get("host"),
		ParticipantID: q.Get("participant"),
		PastOnly:      q.Get("past") == "true",
	}
	if f.Type != "" && !f.Type.Valid() {
		writeProblem(w, http.StatusBadRequest, "Invalid Type", "unknown travel type")
		return
	}
	plans, err := h.Q.SearchPlans(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, plans)
}

func (h *Handlers) getPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Q.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, plan)
}

func (h *Handlers) planRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Q.PlanRequests(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, reqs)
}

func (h *Handlers) myPlans(w http.ResponseWriter, r *http.Request) { h.mine(w, r, h.Q.HostedPlans) }
func (h *Handlers) myJoined(w http.ResponseWriter, r *http.Request) { h.mine(w, r, h.Q.JoinedPlans) }
func (h *Handlers) myPast(w http.ResponseWriter, r *http.Request) { h.mine(w, r, h.Q.PastJoinedPlans) }

func (h *Handlers) mine(w http.ResponseWriter, r *http.Request, read func(context.Context, string) ([]domain.TravelPlan, error)) {
	u, err := h.Me.CurrentUser(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	plans, err := read(r.Context(), u.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, plans)
}

func (h *Handlers) myRequests(w http.ResponseWriter, r *http.Request) {
	u, err := h.Me.CurrentUser(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	reqs, err := h.Q.UserRequests(r.Context(), u.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, reqs)
}

// ---- Command surface ----

type createPlanBody struct {
	Title       string   `json:"title"`
	Country     string   `json:"country"`
	City        string   `json:"city"`
	BudgetMin   int64    `json:"budgetMin"`
	BudgetMax   int64    `json:"budgetMax"`
	Tags        []string `json:"tags"`
	TravelType  string   `json:"travelType"`
	StartDate   string   `json:"startDate"` // RFC 3339
	EndDate     string   `json:"endDate"`
	Description string   `json:"description"`
}

func (h *Handlers) createPlan(w http.ResponseWriter, r *http.Request) {
	var body createPlanBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	start, err1 := time.Parse(time.RFC3339, body.StartDate)
	end, err2 := time.Parse(time.RFC3339, body.EndDate)
	if err1 != nil || err2 != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Dates", "startDate and endDate must be RFC 3339")
		return
	}
	plan, err := h.C.CreatePlan(r.Context(), domain.TravelPlan{
		Title:       body.Title,
		Destination: domain.Destination{Country: body.Country, City: body.City},
		Budget:      domain.BudgetRange{Min: body.BudgetMin, Max: body.BudgetMax},
		Tags:        body.Tags,
		Type:        domain.TravelType(body.TravelType),
		Dates:       domain.DateRange{Start: start, End: end},
		Description: body.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (h *Handlers) deletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.C.DeletePlan(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) joinPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.C.JoinPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handlers) leavePlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.C.LeavePlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

type reviewBody struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *Handlers) submitReview(w http.ResponseWriter, r *http.Request) {
	var body reviewBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.C.SubmitReview(r.Context(), chi.URLParam(r, "id"), body.Rating, body.Comment); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createRequestBody struct {
	TravelPlanID string `json:"travelPlanId"`
	Message      string `json:"message"`
}

func (h *Handlers) createJoinRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if body.TravelPlanID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "travelPlanId is required")
		return
	}
	req, err := h.C.CreateJoinRequest(r.Context(), body.TravelPlanID, body.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *Handlers) acceptJoinRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.C.AcceptJoinRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handlers) rejectJoinRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.C.RejectJoinRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handlers) cancelJoinRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.C.CancelJoinRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
