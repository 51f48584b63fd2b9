package app

import (
	"context"
	"errors"
	"fmt"

	"tripmate/internal/adapters/observability"
	"tripmate/internal/domain"
)

// Command op names, used for outcomes and metrics.
const (
	OpCreateJoinRequest = "create_join_request"
	OpAcceptJoinRequest = "accept_join_request"
	OpRejectJoinRequest = "reject_join_request"
	OpCancelJoinRequest = "cancel_join_request"
	OpJoinPlan          = "join_plan"
	OpLeavePlan         = "leave_plan"
	OpCreatePlan        = "create_plan"
	OpDeletePlan        = "delete_plan"
	OpSubmitReview      = "submit_review"
)

// CommandService issues state transitions against the remote store. The
// store is the sole arbiter of conflicting concurrent mutations; this layer
// fast-fails obvious precondition violations, classifies remote failures,
// and invalidates the affected cache keys only after a definitive success.
type CommandService struct {
	store   domain.PlanStore
	cache   domain.Cache
	session domain.SessionProvider
	events  *OutcomeHub
}

func NewCommandService(store domain.PlanStore, cache domain.Cache, session domain.SessionProvider, events *OutcomeHub) *CommandService {
	return &CommandService{store: store, cache: cache, session: session, events: events}
}

// finish emits the command's single terminal outcome.
func (s *CommandService) finish(op string, err error, plan *domain.TravelPlan, req *domain.JoinRequest) {
	observability.ObserveCommand(op, resultLabel(err))
	if s.events != nil {
		s.events.publish(Outcome{Op: op, Err: err, Plan: plan, Request: req})
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrDuplicateRequest):
		return "duplicate_request"
	case errors.Is(err, domain.ErrAlreadyMember):
		return "already_member"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNetwork):
		return "network"
	default:
		return "error"
	}
}

// ---- Join-request state machine ----

func (s *CommandService) CreateJoinRequest(ctx context.Context, planID, message string) (domain.JoinRequest, error) {
	req, err := s.createJoinRequest(ctx, planID, message)
	var rp *domain.JoinRequest
	if err == nil {
		rp = &req
	}
	s.finish(OpCreateJoinRequest, err, nil, rp)
	return req, err
}

func (s *CommandService) createJoinRequest(ctx context.Context, planID, message string) (domain.JoinRequest, error) {
	actor, err := s.session.CurrentUser(ctx)
	if err != nil {
		return domain.JoinRequest{}, err
	}
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return domain.JoinRequest{}, err
	}
	// Hosts are participants implicitly, so both "is host" and "is member"
	// collapse into one membership check.
	if plan.IsParticipant(actor.ID) {
		return domain.JoinRequest{}, domain.ErrAlreadyMember
	}
	mine, err := s.store.ListUserRequests(ctx, actor.ID)
	if err != nil {
		return domain.JoinRequest{}, err
	}
	for _, r := range mine {
		if r.PlanID == planID && r.Status == domain.StatusPending {
			return domain.JoinRequest{}, domain.ErrDuplicateRequest
		}
	}

	req, err := s.store.CreateRequest(ctx, planID, actor.ID, message)
	if err != nil {
		// The server rejects a second pending request with a conflict; that
		// is the duplicate case to the caller.
		if errors.Is(err, domain.ErrConflict) {
			return domain.JoinRequest{}, fmt.Errorf("%v: %w", err, domain.ErrDuplicateRequest)
		}
		return domain.JoinRequest{}, err
	}

	if s.cache != nil {
		_ = s.cache.Del(ctx, keyUserReqs(actor.ID))
		_ = s.cache.Del(ctx, keyPlan(planID))
	}
	return req, nil
}

func (s *CommandService) AcceptJoinRequest(ctx context.Context, requestID string) (domain.JoinRequest, error) {
	req, err := s.acceptJoinRequest(ctx, requestID)
	var rp *domain.JoinRequest
	if err == nil {
		rp = &req
	}
	s.finish(OpAcceptJoinRequest, err, nil, rp)
	return req, err
}

func (s *CommandService) acceptJoinRequest(ctx context.Context, requestID string) (domain.JoinRequest, error) {
	_, req, plan, err := s.loadRequestForHost(ctx, requestID)
	if err != nil {
		return domain.JoinRequest{}, err
	}

	updated, err := s.store.UpdateRequestStatus(ctx, requestID, domain.StatusApproved)
	if err != nil {
		return domain.JoinRequest{}, err
	}

	// Membership add is a second aggregate on the server; keep it
	// idempotent so a race that already added the requester (or a retry
	// after a partial failure) still converges. A conflict from the add
	// means the user is already on the roster.
	if err := s.store.AddParticipant(ctx, req.PlanID, req.RequesterID); err != nil &&
		!errors.Is(err, domain.ErrConflict) && !errors.Is(err, domain.ErrAlreadyMember) {
		return domain.JoinRequest{}, err
	}

	if s.cache != nil {
		_ = s.cache.Del(ctx, keyHosted(plan.HostID))
		_ = s.cache.Del(ctx, keyPlanReqs(req.PlanID))
		_ = s.cache.Del(ctx, keyPlan(req.PlanID))
		_ = s.cache.Del(ctx, keyJoined(req.RequesterID))
		_ = s.cache.Del(ctx, keyPast(req.RequesterID))
		_ = s.cache.DelPrefix(ctx, planListPrefix)
	}
	return updated, nil
}

func (s *CommandService) RejectJoinRequest(ctx context.Context, requestID string) (domain.JoinRequest, error) {
	req, err := s.rejectJoinRequest(ctx, requestID)
	var rp *domain.JoinRequest
	if err == nil {
		rp = &req
	}
	s.finish(OpRejectJoinRequest, err, nil, rp)
	return req, err
}

func (s *CommandService) rejectJoinRequest(ctx context.Context, requestID string) (domain.JoinRequest, error) {
	_, req, plan, err := s.loadRequestForHost(ctx, requestID)
	if err != nil {
		return domain.JoinRequest{}, err
	}

	updated, err := s.store.UpdateRequestStatus(ctx, requestID, domain.StatusRejected)
	if err != nil {
		return domain.JoinRequest{}, err
	}

	// No membership change, so plan detail and listings stay warm.
	if s.cache != nil {
		_ = s.cache.Del(ctx, keyHosted(plan.HostID))
		_ = s.cache.Del(ctx, keyPlanReqs(req.PlanID))
		_ = s.cache.Del(ctx, keyUserReqs(req.RequesterID))
	}
	return updated, nil
}

func (s *CommandService) CancelJoinRequest(ctx context.Context, requestID string) (domain.JoinRequest, error) {
	req, err := s.cancelJoinRequest(ctx, requestID)
	var rp *domain.JoinRequest
	if err == nil {
		rp = &req
	}
	s.finish(OpCancelJoinRequest, err, nil, rp)
	return req, err
}

func (s *CommandService) cancelJoinRequest(ctx context.Context, requestID string) (domain.JoinRequest, error) {
	actor, err := s.session.CurrentUser(ctx)
	if err != nil {
		return domain.JoinRequest{}, err
	}
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return domain.JoinRequest{}, err
	}
	if req.RequesterID != actor.ID {
		return domain.JoinRequest{}, fmt.Errorf("only the requester may cancel: %w", domain.ErrForbidden)
	}
	if req.Status.Terminal() {
		return domain.JoinRequest{}, fmt.Errorf("request already %s: %w", req.Status, domain.ErrConflict)
	}

	updated, err := s.store.UpdateRequestStatus(ctx, requestID, domain.StatusCancelled)
	if err != nil {
		return domain.JoinRequest{}, err
	}

	if s.cache != nil {
		_ = s.cache.Del(ctx, keyUserReqs(actor.ID))
	}
	return updated, nil
}

// loadRequestForHost resolves the actor, the request, and its plan, and
// verifies the actor hosts the plan and the request is still pending.
func (s *CommandService) loadRequestForHost(ctx context.Context, requestID string) (domain.User, domain.JoinRequest, domain.TravelPlan, error) {
	actor, err := s.session.CurrentUser(ctx)
	if err != nil {
		return domain.User{}, domain.JoinRequest{}, domain.TravelPlan{}, err
	}
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return actor, domain.JoinRequest{}, domain.TravelPlan{}, err
	}
	plan, err := s.store.GetPlan(ctx, req.PlanID)
	if err != nil {
		return actor, req, domain.TravelPlan{}, err
	}
	if !plan.IsHost(actor.ID) {
		return actor, req, plan, fmt.Errorf("only the host may resolve requests: %w", domain.ErrForbidden)
	}
	if req.Status.Terminal() {
		return actor, req, plan, fmt.Errorf("request already %s: %w", req.Status, domain.ErrConflict)
	}
	return actor, req, plan, nil
}

// ---- Direct membership (open plans) ----

func (s *CommandService) JoinPlan(ctx context.Context, planID string) (domain.TravelPlan, error) {
	plan, err := s.joinPlan(ctx, planID)
	var pp *domain.TravelPlan
	if err == nil {
		pp = &plan
	}
	s.finish(OpJoinPlan, err, pp, nil)
	return plan, err
}

func (s *CommandService) joinPlan(ctx context.Context, planID string) (domain.TravelPlan, error) {
	actor, err := s.session.CurrentUser(ctx)
	if err != nil {
		return domain.TravelPlan{}, err
	}
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return domain.TravelPlan{}, err
	}
	if plan.IsParticipant(actor.ID) {
		return domain.TravelPlan{}, domain.ErrAlreadyMember
	}

	if err := s.store.AddParticipant(ctx, planID, actor.ID); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.TravelPlan{}, fmt.Errorf("%v: %w", err, domain.ErrAlreadyMember)
		}
		return domain.TravelPlan{}, err
	}
	plan.AddParticipant(actor.ID)

	s.invalidateMembership(ctx, planID, actor.ID)
	return plan, nil
}

func (s *CommandService) LeavePlan(ctx context.Context, planID string) (domain.TravelPlan, error) {
	plan, err := s.leavePlan(ctx, planID)
	var pp *domain.TravelPlan
	if err == nil {
		pp = &plan
	}
	s.finish(OpLeavePlan, err, pp, nil)
	return plan, err
}

func (s *CommandService) leavePlan(ctx context.Context, planID string) (domain.TravelPlan, error) {
	actor, err := s.session.CurrentUser(ctx)
	if err != nil {
		return domain.TravelPlan{}, err
	}
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return domain.TravelPlan{}, err
	}
	if plan.IsHost(actor.ID) {
		return domain.TravelPlan{}, fmt.Errorf("hosts cannot leave their own plan: %w", domain.ErrForbidden)
	}
	if !plan.IsParticipant(actor.ID) {
		return domain.TravelPlan{}, fmt.Errorf("not a participant: %w", domain.ErrConflict)
	}

	if err := s.store.RemoveParticipant(ctx, planID, actor.ID); err != nil {
		return domain.TravelPlan{}, err
	}
	plan.RemoveParticipant(actor.ID)

	s.invalidateMembership(ctx, planID, actor.ID)
	return plan, nil
}

// invalidateMembership covers every read a roster change can stale: the
// plan's detail, all listing variants, and the user's joined views.
func (s *CommandService) invalidateMembership(ctx context.Context, planID, userID string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, keyPlan(planID))
	_ = s.cache.DelPrefix(ctx, planListPrefix)
	_ = s.cache.Del(ctx, keyJoined(userID))
	_ = s.cache.Del(ctx, keyPast(userID))
}

// ---- Plan lifecycle ----

func (s *CommandService) CreatePlan(ctx context.Context, p domain.TravelPlan) (domain.TravelPlan, error) {
	plan, err := s.createPlan(ctx, p)
	var pp *domain.TravelPlan
	if err == nil {
		pp = &plan
	}
	s.finish(OpCreatePlan, err, pp, nil)
	return plan, err
}

func (s *CommandService) createPlan(ctx context.Context, p domain.TravelPlan) (domain.TravelPlan, error) {
	actor, err := s.session.CurrentUser(ctx)
	if err != nil {
		return domain.TravelPlan{}, err
	}
	p.HostID = actor.ID
	if err := p.Validate(); err != nil {
		return domain.TravelPlan{}, err
	}

	created, err := s.store.CreatePlan(ctx, p)
	if err != nil {
		return domain.TravelPlan{}, err
	}

	if s.cache != nil {
		_ = s.cache.DelPrefix(ctx, planListPrefix)
		_ = s.cache.Del(ctx, keyHosted(actor.ID))
	}
	return created, nil
}

func (s *CommandService) DeletePlan(ctx context.Context, planID string) error {
	err := s.deletePlan(ctx, planID)
	s.finish(OpDeletePlan, err, nil, nil)
	return err
}

func (s *CommandService) deletePlan(ctx context.Context, planID string) error {
	actor, err := s.session.CurrentUser(ctx)
	if err != nil {
		return err
	}
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	if !plan.IsHost(actor.ID) {
		return fmt.Errorf("only the host may delete a plan: %w", domain.ErrForbidden)
	}

	if err := s.store.DeletePlan(ctx, planID); err != nil {
		return err
	}

	if s.cache != nil {
		_ = s.cache.DelPrefix(ctx, planListPrefix)
		_ = s.cache.Del(ctx, keyHosted(actor.ID))
		_ = s.cache.Del(ctx, keyPlan(planID))
		// Pending requests cascade server-side; sweep every cached request
		// listing since the requesters are unknown here.
		_ = s.cache.DelPrefix(ctx, requestsPrefix)
	}
	return nil
}

func (s *CommandService) SubmitReview(ctx context.Context, planID string, rating int, comment string) error {
	err := s.submitReview(ctx, planID, rating, comment)
	s.finish(OpSubmitReview, err, nil, nil)
	return err
}

func (s *CommandService) submitReview(ctx context.Context, planID string, rating int, comment string) error {
	actor, err := s.session.CurrentUser(ctx)
	if err != nil {
		return err
	}
	r := domain.Review{PlanID: planID, ReviewerID: actor.ID, Rating: rating, Comment: comment}
	if err := r.Validate(); err != nil {
		return err
	}
	// Participation and end-date checks are the server's call; surface its
	// rejection rather than second-guessing it here.
	if err := s.store.SubmitReview(ctx, r); err != nil {
		return err
	}

	if s.cache != nil {
		_ = s.cache.Del(ctx, keyPast(actor.ID))
	}
	return nil
}
