// Package match filters the active subscriber set against one event.
package match

import "github.com/firewatch/incident-push/internal/domain"

// Subscribers returns the subset of subs whose preference filters all
// accept the event. A subscriber is included iff every non-empty filter it
// declares is satisfied; empty filter slices are wildcards. Order is
// preserved and the input is never mutated.
//
// Region semantics: when the event's fire department could not be resolved
// to a dispatch region, RegionID is empty and subscribers with a region
// filter are excluded — an empty region is a member of no filter set.
func Subscribers(ev domain.Event, subs []*domain.Subscriber) []*domain.Subscriber {
	var matched []*domain.Subscriber
	for _, s := range subs {
		if matches(ev, s) {
			matched = append(matched, s)
		}
	}
	return matched
}

func matches(ev domain.Event, s *domain.Subscriber) bool {
	if len(s.RegionIDs) > 0 && !contains(s.RegionIDs, ev.RegionID) {
		return false
	}
	if len(s.CountyIDs) > 0 && !contains(s.CountyIDs, ev.CountyID) {
		return false
	}
	if len(s.CategoryIDs) > 0 && !contains(s.CategoryIDs, ev.CategoryID) {
		return false
	}
	// OnlyOngoing applies to every event type: a status change that closes
	// an incident is suppressed for such subscribers even when all other
	// filters match.
	if s.OnlyOngoing && !ev.Ongoing() {
		return false
	}
	return true
}

func contains(ids []string, id string) bool {
	if id == "" {
		return false
	}
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
