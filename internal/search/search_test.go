package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SnowDream39/vocamap-backend/internal/geo"
)

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func filter(q Query, candidates ...Candidate) []string {
	var out []string
	for _, c := range candidates {
		if q.Match(c) {
			out = append(out, c.Name)
		}
	}
	return out
}

func TestComposeEmptyCriteriaMatchesEverything(t *testing.T) {
	clauses := Compose(Criteria{})
	require.Empty(t, clauses)

	q := Where(clauses...)
	require.True(t, q.Match(Candidate{Name: "anything"}))
}

func TestKeywordsAreConjunctive(t *testing.T) {
	q := Where(Compose(Criteria{Keywords: []string{"Anime", "Karaoke"}})...)

	got := filter(q,
		Candidate{ID: 1, Name: "Anime Night"},
		Candidate{ID: 2, Name: "Karaoke Party"},
		Candidate{ID: 3, Name: "Anime Karaoke Night"},
	)
	require.Equal(t, []string{"Anime Karaoke Night"}, got)
}

func TestKeywordMatchIsCaseSensitive(t *testing.T) {
	q := Where(Keyword{Text: "anime"})
	require.False(t, q.Match(Candidate{Name: "Anime Night"}))
}

func TestTagIDsRequireEveryTag(t *testing.T) {
	q := Where(Compose(Criteria{TagIDs: []int64{1, 2}})...)

	both := Candidate{Name: "both", TagIDs: map[int64]struct{}{1: {}, 2: {}}}
	one := Candidate{Name: "one", TagIDs: map[int64]struct{}{1: {}}}
	require.Equal(t, []string{"both"}, filter(q, both, one))
}

func TestCapacityBoundsAreInclusiveAndSkipUnbounded(t *testing.T) {
	q := Where(Compose(Criteria{MaxMemberGT: intPtr(5), MaxMemberLT: intPtr(10)})...)

	got := filter(q,
		Candidate{Name: "four", MaxMember: intPtr(4)},
		Candidate{Name: "five", MaxMember: intPtr(5)},
		Candidate{Name: "ten", MaxMember: intPtr(10)},
		Candidate{Name: "eleven", MaxMember: intPtr(11)},
		Candidate{Name: "unbounded"},
	)
	require.Equal(t, []string{"five", "ten"}, got)

	zero := Where(Compose(Criteria{MaxMemberGT: intPtr(0)})...)
	require.True(t, zero.Match(Candidate{MaxMember: intPtr(1)}))
}

func TestZeroCapacityBoundIsApplied(t *testing.T) {
	clauses := Compose(Criteria{MaxMemberGT: intPtr(0), MaxMemberLT: intPtr(0)})
	require.Equal(t, []Clause{CapacityAtLeast{Min: 0}, CapacityAtMost{Max: 0}}, clauses)

	lower := Where(Compose(Criteria{MaxMemberGT: intPtr(0)})...)
	require.Equal(t, []string{"capped"}, filter(lower,
		Candidate{Name: "capped", MaxMember: intPtr(3)},
		Candidate{Name: "unbounded"},
	))

	upper := Where(Compose(Criteria{MaxMemberLT: intPtr(0)})...)
	require.Empty(t, filter(upper,
		Candidate{Name: "capped", MaxMember: intPtr(3)},
		Candidate{Name: "unbounded"},
	))
}

func TestTimeWindowOverlap(t *testing.T) {
	day := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	activity := Candidate{Name: "morning", StartTime: day.Add(10 * time.Hour), EndTime: day.Add(12 * time.Hour)}

	overlapping := Where(Compose(Criteria{
		TimeBegin: timePtr(day.Add(11 * time.Hour)),
		TimeEnd:   timePtr(day.Add(13 * time.Hour)),
	})...)
	require.True(t, overlapping.Match(activity))

	after := Where(Compose(Criteria{
		TimeBegin: timePtr(day.Add(12*time.Hour + time.Minute)),
		TimeEnd:   timePtr(day.Add(13 * time.Hour)),
	})...)
	require.False(t, after.Match(activity))

	openEnded := Where(Compose(Criteria{TimeEnd: timePtr(day.Add(10 * time.Hour))})...)
	require.True(t, openEnded.Match(activity))
}

func TestActiveAtIsInclusive(t *testing.T) {
	start := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	activity := Candidate{StartTime: start, EndTime: start.Add(time.Hour)}

	require.True(t, Where(ActiveAt(start)...).Match(activity))
	require.True(t, Where(ActiveAt(start.Add(time.Hour))...).Match(activity))
	require.False(t, Where(ActiveAt(start.Add(-time.Second))...).Match(activity))
}

func TestWithinDistanceClause(t *testing.T) {
	origin := Candidate{Name: "origin", Position: geo.Point{Lon: 0, Lat: 0}}

	require.True(t, Where(WithinDistance{Center: geo.Point{}, Meters: 0}).Match(origin))
	require.False(t, Where(WithinDistance{Center: geo.Point{Lon: 1, Lat: 1}, Meters: 1000}).Match(origin))
}

func TestOwnerParticipantAndPagination(t *testing.T) {
	owner := int64(7)
	c := Candidate{ID: 3, OwnerID: &owner, Participants: map[int64]struct{}{7: {}, 8: {}}}

	require.True(t, Where(OwnedBy{UserID: 7}, JoinedBy{UserID: 8}).Match(c))
	require.False(t, Where(OwnedBy{UserID: 8}).Match(c))
	require.False(t, Where(OwnedBy{UserID: 7}).Match(Candidate{ID: 4}))
	require.False(t, Query{AfterID: 3}.Match(c))
	require.True(t, Query{AfterID: 2}.Match(c))
}

func TestSplitKeywords(t *testing.T) {
	require.Equal(t, []string{"Anime", "Karaoke"}, SplitKeywords("  Anime\tKaraoke "))
	require.Empty(t, SplitKeywords("   "))
}
