package app

import (
	"net/url"

	"tripmate/internal/domain"
)

// Cache key scheme. Keys are either exact ("plan:<id>") or members of a
// family that commands sweep by prefix. The scopes each command invalidates
// are contractual: after a successful mutation, none of its listed keys may
// serve a pre-mutation read.
const (
	planListPrefix = "plans:" // every search/listing variant
	requestsPrefix = "reqs:"  // every request listing, per plan or per user
)

func keyPlan(id string) string { return "plan:" + id }
func keyHosted(userID string) string { return "hosted:" + userID }
func keyJoined(userID string) string { return "joined:" + userID }
func keyPast(userID string) string { return "past:" + userID }
func keyPlanReqs(planID string) string { return requestsPrefix + "plan:" + planID }
func keyUserReqs(userID string) string { return requestsPrefix + "user:" + userID }

// keyPlanList encodes the filter deterministically so equal queries share
// one cache entry.
func keyPlanList(f domain.PlanFilter) string {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("country", f.Country)
	set("city", f.City)
	set("type", string(f.Type))
	set("tag", f.Tag)
	set("host", f.HostID)
	set("participant", f.ParticipantID)
	if f.PastOnly {
		q.Set("past", "1")
	}
	return planListPrefix + q.Encode()
}
