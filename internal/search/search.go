// Package search composes activity predicates from optional criteria.
//
// A Query is a conjunction of Clauses. Storage engines translate each clause
// into their own dialect; Match evaluates the same semantics in memory.
package search

import (
	"strings"
	"time"

	"github.com/SnowDream39/vocamap-backend/internal/geo"
)

// Criteria captures the optional filters accepted by a search. Nil or empty
// fields contribute no predicate.
type Criteria struct {
	Keywords    []string
	TagIDs      []int64
	MaxMemberGT *int
	MaxMemberLT *int
	TimeBegin   *time.Time
	TimeEnd     *time.Time
}

// Clause is a single predicate over an activity.
type Clause interface {
	Match(Candidate) bool
}

// Candidate is the view of an activity a Clause is evaluated against.
type Candidate struct {
	ID           int64
	Name         string
	MaxMember    *int
	StartTime    time.Time
	EndTime      time.Time
	Position     geo.Point
	OwnerID      *int64
	TagIDs       map[int64]struct{}
	Participants map[int64]struct{}
}

// Keyword requires the activity name to contain Text.
type Keyword struct{ Text string }

// HasTag requires an association with TagID.
type HasTag struct{ TagID int64 }

// CapacityAtLeast requires max_member >= Min. Unbounded activities never match.
type CapacityAtLeast struct{ Min int }

// CapacityAtMost requires max_member <= Max. Unbounded activities never match.
type CapacityAtMost struct{ Max int }

// EndsAtOrAfter requires end_time >= At.
type EndsAtOrAfter struct{ At time.Time }

// StartsAtOrBefore requires start_time <= At.
type StartsAtOrBefore struct{ At time.Time }

// WithinDistance requires the position to lie within Meters of Center, inclusive.
type WithinDistance struct {
	Center geo.Point
	Meters float64
}

// OwnedBy requires owner_id = UserID.
type OwnedBy struct{ UserID int64 }

// JoinedBy requires a participation row for UserID.
type JoinedBy struct{ UserID int64 }

// HasID selects a single activity.
type HasID struct{ ID int64 }

func (c Keyword) Match(a Candidate) bool { return strings.Contains(a.Name, c.Text) }

func (c HasTag) Match(a Candidate) bool {
	_, ok := a.TagIDs[c.TagID]
	return ok
}

func (c CapacityAtLeast) Match(a Candidate) bool { return a.MaxMember != nil && *a.MaxMember >= c.Min }

func (c CapacityAtMost) Match(a Candidate) bool { return a.MaxMember != nil && *a.MaxMember <= c.Max }

func (c EndsAtOrAfter) Match(a Candidate) bool { return !a.EndTime.Before(c.At) }

func (c StartsAtOrBefore) Match(a Candidate) bool { return !a.StartTime.After(c.At) }

func (c WithinDistance) Match(a Candidate) bool { return geo.Within(c.Center, a.Position, c.Meters) }

func (c OwnedBy) Match(a Candidate) bool { return a.OwnerID != nil && *a.OwnerID == c.UserID }

func (c JoinedBy) Match(a Candidate) bool {
	_, ok := a.Participants[c.UserID]
	return ok
}

func (c HasID) Match(a Candidate) bool { return a.ID == c.ID }

// Query is a conjunction of clauses plus keyset pagination. Results are
// ordered by ascending id.
type Query struct {
	Clauses []Clause
	AfterID int64
	Limit   int
}

// Match reports whether every clause accepts the candidate.
func (q Query) Match(a Candidate) bool {
	if q.AfterID > 0 && a.ID <= q.AfterID {
		return false
	}
	for _, c := range q.Clauses {
		if !c.Match(a) {
			return false
		}
	}
	return true
}

// Where builds an unpaginated query from clauses.
func Where(clauses ...Clause) Query {
	return Query{Clauses: clauses}
}

// Compose turns criteria into clauses. Each supplied criterion adds one
// predicate per value; absent criteria add nothing. A capacity bound of 0 is
// supplied, not absent, and excludes unbounded activities.
func Compose(c Criteria) []Clause {
	clauses := make([]Clause, 0, len(c.Keywords)+len(c.TagIDs)+4)
	for _, kw := range c.Keywords {
		if kw == "" {
			continue
		}
		clauses = append(clauses, Keyword{Text: kw})
	}
	for _, id := range c.TagIDs {
		clauses = append(clauses, HasTag{TagID: id})
	}
	if c.MaxMemberGT != nil {
		clauses = append(clauses, CapacityAtLeast{Min: *c.MaxMemberGT})
	}
	if c.MaxMemberLT != nil {
		clauses = append(clauses, CapacityAtMost{Max: *c.MaxMemberLT})
	}
	if c.TimeBegin != nil {
		clauses = append(clauses, EndsAtOrAfter{At: *c.TimeBegin})
	}
	if c.TimeEnd != nil {
		clauses = append(clauses, StartsAtOrBefore{At: *c.TimeEnd})
	}
	return clauses
}

// Overlapping returns the clauses for activities whose window intersects
// [start, end].
func Overlapping(start, end time.Time) []Clause {
	return []Clause{EndsAtOrAfter{At: start}, StartsAtOrBefore{At: end}}
}

// ActiveAt returns the clauses for activities running at instant.
func ActiveAt(instant time.Time) []Clause {
	return Overlapping(instant, instant)
}

// SplitKeywords splits a whitespace-separated keyword string.
func SplitKeywords(raw string) []string {
	return strings.Fields(raw)
}
