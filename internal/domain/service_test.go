package domain_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SnowDream39/vocamap-backend/internal/domain"
	"github.com/SnowDream39/vocamap-backend/internal/events"
	"github.com/SnowDream39/vocamap-backend/internal/geo"
	"github.com/SnowDream39/vocamap-backend/internal/observability"
	"github.com/SnowDream39/vocamap-backend/internal/persistence/memory"
	"github.com/SnowDream39/vocamap-backend/internal/search"
)

var (
	base  = time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	owner = domain.Principal{UserID: 1, Role: domain.RoleNormal}
	admin = domain.Principal{UserID: 99, Role: domain.RoleAdmin}
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func newService(t *testing.T, users int, opts ...domain.Option) (*domain.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	for i := 1; i <= users; i++ {
		store.AddUser(domain.User{ID: int64(i), Nickname: "user"})
	}
	store.AddUser(domain.User{ID: admin.UserID, Nickname: "admin"})
	opts = append([]domain.Option{domain.WithClock(func() time.Time { return base })}, opts...)
	return domain.NewService(store, opts...), store
}

func activityInput(name string) domain.CreateActivityInput {
	return domain.CreateActivityInput{
		Name:      name,
		StartTime: base.Add(10 * time.Hour),
		EndTime:   base.Add(12 * time.Hour),
		Position:  &geo.Point{Lon: 121.47, Lat: 31.23},
	}
}

func mustCreate(t *testing.T, svc *domain.Service, p domain.Principal, in domain.CreateActivityInput) int64 {
	t.Helper()
	id, err := svc.CreateActivity(context.Background(), p, in)
	require.NoError(t, err)
	return id
}

func names(views []domain.ActivityView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Name)
	}
	return out
}

func TestCreateActivityRoundTripsPositionInBothShapes(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()

	for _, body := range []string{
		`{"name":"a","start_time":"2024-05-01T10:00:00Z","end_time":"2024-05-01T12:00:00Z","position":{"lon":121.47,"lat":31.23}}`,
		`{"name":"b","start_time":"2024-05-01T10:00:00Z","end_time":"2024-05-01T12:00:00Z","position":{"type":"Point","coordinates":[121.47,31.23]}}`,
	} {
		var in domain.CreateActivityInput
		require.NoError(t, json.Unmarshal([]byte(body), &in))

		id := mustCreate(t, svc, owner, in)
		view, err := svc.GetActivity(ctx, id)
		require.NoError(t, err)
		assert.InDelta(t, 121.47, view.Position.Lon, 1e-6)
		assert.InDelta(t, 31.23, view.Position.Lat, 1e-6)
	}
}

func TestCreateActivityBindsTagsAndOwnerParticipation(t *testing.T) {
	svc, store := newService(t, 1)
	ctx := context.Background()

	tag, err := svc.CreateArtistTag(ctx, "Miku")
	require.NoError(t, err)

	in := activityInput("Live")
	in.TagIDs = []int64{tag.ID}
	id := mustCreate(t, svc, owner, in)

	view, err := svc.GetActivity(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []domain.TagView{{ID: tag.ID, Name: "Miku", Type: domain.TagTypeArtist}}, view.Tags)
	require.NotNil(t, view.Owner)
	require.Equal(t, owner.UserID, view.Owner.ID)

	participants, err := svc.Participants(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []domain.UserView{{ID: 1, Nickname: "user"}}, participants)

	recorded := store.Events()
	require.Equal(t, events.ActivityCreatedType, recorded[len(recorded)-1].Type)
}

func TestCreateActivityValidation(t *testing.T) {
	svc, _ := newService(t, 1)

	in := activityInput("")
	_, err := svc.CreateActivity(context.Background(), owner, in)
	require.Equal(t, domain.KindValidation, domain.KindOf(err))

	in = activityInput("ok")
	in.MaxMember = intPtr(0)
	_, err = svc.CreateActivity(context.Background(), owner, in)
	require.Equal(t, domain.KindValidation, domain.KindOf(err))

	in = activityInput("ok")
	in.Position = &geo.Point{Lon: 200, Lat: 0}
	_, err = svc.CreateActivity(context.Background(), owner, in)
	require.Equal(t, domain.KindValidation, domain.KindOf(err))

	in = activityInput("ok")
	in.Position = nil
	_, err = svc.CreateActivity(context.Background(), owner, in)
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestCreateActivityRejectsBodyWithoutPosition(t *testing.T) {
	svc, store := newService(t, 1)
	before := len(store.Events())

	var in domain.CreateActivityInput
	require.NoError(t, json.Unmarshal([]byte(`{"name":"a","start_time":"2024-05-01T10:00:00Z","end_time":"2024-05-01T12:00:00Z"}`), &in))
	require.Nil(t, in.Position)

	_, err := svc.CreateActivity(context.Background(), owner, in)
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Len(t, store.Events(), before)
}

func TestCreateActivityIsAtomic(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()

	in := activityInput("broken")
	in.TagIDs = []int64{404}
	_, err := svc.CreateActivity(ctx, owner, in)
	require.ErrorIs(t, err, domain.ErrTagNotFound)

	all, _, err := svc.ListActivities(ctx, nil, 0)
	require.NoError(t, err)
	require.Empty(t, all)

	tag, err := svc.CreateArtistTag(ctx, "Rin")
	require.NoError(t, err)
	in.TagIDs = []int64{tag.ID, tag.ID}
	_, err = svc.CreateActivity(ctx, owner, in)
	require.ErrorIs(t, err, domain.ErrDuplicateTag)
	require.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestCreateActivityUnknownOwner(t *testing.T) {
	svc, _ := newService(t, 0)
	_, err := svc.CreateActivity(context.Background(), domain.Principal{UserID: 5}, activityInput("x"))
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestJoinLeaveLifecycle(t *testing.T) {
	svc, _ := newService(t, 2)
	ctx := context.Background()
	id := mustCreate(t, svc, owner, activityInput("Meetup"))

	require.NoError(t, svc.Join(ctx, id, 2))
	require.ErrorIs(t, svc.Join(ctx, id, 2), domain.ErrAlreadyJoined)

	require.NoError(t, svc.Leave(ctx, id, 2))
	require.ErrorIs(t, svc.Leave(ctx, id, 2), domain.ErrNotJoined)

	participants, err := svc.Participants(ctx, id)
	require.NoError(t, err)
	require.Len(t, participants, 1)

	require.NoError(t, svc.Join(ctx, id, 2))
	participants, err = svc.Participants(ctx, id)
	require.NoError(t, err)
	require.Len(t, participants, 2)
}

func TestJoinNotFound(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()
	id := mustCreate(t, svc, owner, activityInput("Meetup"))

	require.ErrorIs(t, svc.Join(ctx, 404, 1), domain.ErrActivityNotFound)
	require.ErrorIs(t, svc.Join(ctx, id, 404), domain.ErrUserNotFound)
	require.ErrorIs(t, svc.Leave(ctx, 404, 1), domain.ErrActivityNotFound)
	require.ErrorIs(t, svc.Leave(ctx, id, 404), domain.ErrUserNotFound)

	_, err := svc.Participants(ctx, 404)
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
}

func TestJoinRespectsCapacity(t *testing.T) {
	svc, _ := newService(t, 3)
	ctx := context.Background()
	in := activityInput("Small")
	in.MaxMember = intPtr(2)
	id := mustCreate(t, svc, owner, in)

	full := testutil.ToFloat64(observability.ParticipationCounter("join", observability.ResultFull))

	require.NoError(t, svc.Join(ctx, id, 2))
	err := svc.Join(ctx, id, 3)
	require.ErrorIs(t, err, domain.ErrActivityFull)
	require.Equal(t, domain.KindConflict, domain.KindOf(err))

	require.InDelta(t, full+1, testutil.ToFloat64(observability.ParticipationCounter("join", observability.ResultFull)), 0.0001)
}

func TestConcurrentJoinsForLastSlot(t *testing.T) {
	svc, _ := newService(t, 3)
	ctx := context.Background()
	in := activityInput("One seat")
	in.MaxMember = intPtr(1)
	id := mustCreate(t, svc, owner, in)
	require.NoError(t, svc.Leave(ctx, id, owner.UserID))

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, user := range []int64{2, 3} {
		wg.Add(1)
		go func(i int, user int64) {
			defer wg.Done()
			results[i] = svc.Join(ctx, id, user)
		}(i, user)
	}
	wg.Wait()

	var ok, full int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrActivityFull):
			full++
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, full)

	participants, err := svc.Participants(ctx, id)
	require.NoError(t, err)
	require.Len(t, participants, 1)
}

func TestBurstOfJoinsNeverExceedsCapacity(t *testing.T) {
	const users = 30
	svc, _ := newService(t, users)
	ctx := context.Background()
	in := activityInput("Burst")
	in.MaxMember = intPtr(5)
	id := mustCreate(t, svc, owner, in)

	var wg sync.WaitGroup
	for u := int64(2); u <= users; u++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			_ = svc.Join(ctx, id, u)
		}(u)
	}
	wg.Wait()

	participants, err := svc.Participants(ctx, id)
	require.NoError(t, err)
	require.Len(t, participants, 5)
}

func TestUpdateActivityPartialPatch(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()
	in := activityInput("Before")
	in.Location = strPtr("Hall A")
	in.Description = strPtr("keep me")
	id := mustCreate(t, svc, owner, in)

	var patch domain.ActivityPatch
	require.NoError(t, json.Unmarshal([]byte(`{"name":"After","location":null}`), &patch))

	view, err := svc.UpdateActivity(ctx, owner, id, patch)
	require.NoError(t, err)
	require.Equal(t, "After", view.Name)
	require.Nil(t, view.Location)
	require.Equal(t, "keep me", *view.Description)
	require.True(t, view.StartTime.Equal(in.StartTime))
}

func TestUpdateActivityRequiresOwner(t *testing.T) {
	svc, _ := newService(t, 2)
	ctx := context.Background()
	id := mustCreate(t, svc, owner, activityInput("Mine"))

	_, err := svc.UpdateActivity(ctx, domain.Principal{UserID: 2}, id, domain.ActivityPatch{Name: domain.Some("Theirs")})
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.UpdateActivity(ctx, admin, id, domain.ActivityPatch{Name: domain.Some("Admin")})
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.UpdateActivity(ctx, owner, 404, domain.ActivityPatch{Name: domain.Some("x")})
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
}

func TestUpdateActivityRejectsInvalidPatch(t *testing.T) {
	svc, _ := newService(t, 1)
	id := mustCreate(t, svc, owner, activityInput("Mine"))

	_, err := svc.UpdateActivity(context.Background(), owner, id, domain.ActivityPatch{Name: domain.Null[string]()})
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestUpdateActivityCannotDropCapacityBelowParticipants(t *testing.T) {
	svc, _ := newService(t, 3)
	ctx := context.Background()
	id := mustCreate(t, svc, owner, activityInput("Crowd"))
	require.NoError(t, svc.Join(ctx, id, 2))
	require.NoError(t, svc.Join(ctx, id, 3))

	_, err := svc.UpdateActivity(ctx, owner, id, domain.ActivityPatch{MaxMember: domain.Some(2)})
	require.ErrorIs(t, err, domain.ErrCapacityBelowParticipants)

	view, err := svc.UpdateActivity(ctx, owner, id, domain.ActivityPatch{MaxMember: domain.Some(3)})
	require.NoError(t, err)
	require.Equal(t, 3, *view.MaxMember)

	view, err = svc.UpdateActivity(ctx, owner, id, domain.ActivityPatch{MaxMember: domain.Null[int]()})
	require.NoError(t, err)
	require.Nil(t, view.MaxMember)
}

func TestDeleteActivityRequiresAdminAndCascades(t *testing.T) {
	svc, _ := newService(t, 2)
	ctx := context.Background()
	id := mustCreate(t, svc, owner, activityInput("Doomed"))
	require.NoError(t, svc.Join(ctx, id, 2))

	require.ErrorIs(t, svc.DeleteActivity(ctx, owner, id), domain.ErrForbidden)
	require.ErrorIs(t, svc.DeleteActivity(ctx, admin, 404), domain.ErrActivityNotFound)
	require.NoError(t, svc.DeleteActivity(ctx, admin, id))

	_, err := svc.GetActivity(ctx, id)
	require.ErrorIs(t, err, domain.ErrActivityNotFound)

	joined, err := svc.ActivitiesByParticipant(ctx, 2)
	require.NoError(t, err)
	require.Empty(t, joined)
}

func TestReadModelWithoutTagsOrOwner(t *testing.T) {
	svc, store := newService(t, 1)
	ctx := context.Background()
	id := mustCreate(t, svc, owner, activityInput("Orphan"))
	store.RemoveUser(owner.UserID)

	views, err := svc.Search(ctx, search.Criteria{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, id, views[0].ID)
	require.NotNil(t, views[0].Tags)
	require.Empty(t, views[0].Tags)
	require.Nil(t, views[0].Owner)

	body, err := json.Marshal(views[0])
	require.NoError(t, err)
	require.Contains(t, string(body), `"tags":[]`)
	require.Contains(t, string(body), `"owner":null`)
}

func TestSearchKeywordsAreConjunctive(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()
	for _, name := range []string{"Anime Night", "Karaoke Party", "Anime Karaoke Night"} {
		mustCreate(t, svc, owner, activityInput(name))
	}

	views, err := svc.Search(ctx, search.Criteria{Keywords: search.SplitKeywords("Anime Karaoke")})
	require.NoError(t, err)
	require.Equal(t, []string{"Anime Karaoke Night"}, names(views))

	all, err := svc.Search(ctx, search.Criteria{})
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestSearchByTagsAndCapacity(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()
	a, err := svc.CreateArtistTag(ctx, "Luka")
	require.NoError(t, err)
	b, err := svc.CreateCategoryTag(ctx, admin, "Concert")
	require.NoError(t, err)

	both := activityInput("both")
	both.TagIDs = []int64{a.ID, b.ID}
	both.MaxMember = intPtr(10)
	mustCreate(t, svc, owner, both)

	one := activityInput("one")
	one.TagIDs = []int64{a.ID}
	mustCreate(t, svc, owner, one)

	views, err := svc.Search(ctx, search.Criteria{TagIDs: []int64{a.ID, b.ID}})
	require.NoError(t, err)
	require.Equal(t, []string{"both"}, names(views))

	views, err = svc.Search(ctx, search.Criteria{MaxMemberGT: intPtr(10), MaxMemberLT: intPtr(10)})
	require.NoError(t, err)
	require.Equal(t, []string{"both"}, names(views))

	views, err = svc.ActivitiesByTag(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
}

func TestTimeQueries(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()
	mustCreate(t, svc, owner, activityInput("Morning"))

	views, err := svc.ByTimePeriod(ctx, base.Add(11*time.Hour), base.Add(13*time.Hour))
	require.NoError(t, err)
	require.Len(t, views, 1)

	views, err = svc.ByTimePeriod(ctx, base.Add(12*time.Hour+time.Minute), base.Add(13*time.Hour))
	require.NoError(t, err)
	require.Empty(t, views)

	views, err = svc.ByTimePoint(ctx, base.Add(12*time.Hour))
	require.NoError(t, err)
	require.Len(t, views, 1)

	views, err = svc.ByTimePoint(ctx, base.Add(9*time.Hour))
	require.NoError(t, err)
	require.Empty(t, views)
}

func TestNearby(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()
	in := activityInput("Null island")
	in.Position = &geo.Point{Lon: 0, Lat: 0}
	mustCreate(t, svc, owner, in)

	views, err := svc.Nearby(ctx, geo.Point{Lon: 0, Lat: 0}, 0)
	require.NoError(t, err)
	require.Len(t, views, 1)

	views, err = svc.Nearby(ctx, geo.Point{Lon: 1, Lat: 1}, 1000)
	require.NoError(t, err)
	require.Empty(t, views)

	_, err = svc.Nearby(ctx, geo.Point{}, -1)
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestOwnerAndParticipantQueries(t *testing.T) {
	svc, _ := newService(t, 2)
	ctx := context.Background()
	id := mustCreate(t, svc, owner, activityInput("Owned"))
	mustCreate(t, svc, domain.Principal{UserID: 2}, activityInput("Other"))
	require.NoError(t, svc.Join(ctx, id, 2))

	views, err := svc.ActivitiesByOwner(ctx, owner.UserID)
	require.NoError(t, err)
	require.Equal(t, []string{"Owned"}, names(views))

	views, err = svc.ActivitiesByParticipant(ctx, 2)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"Owned", "Other"}, names(views))
}

func TestListActivitiesPaginates(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		mustCreate(t, svc, owner, activityInput(name))
	}

	page, next, err := svc.ListActivities(ctx, nil, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, names(page))
	require.NotNil(t, next)

	page, next, err = svc.ListActivities(ctx, next, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, names(page))
	require.Nil(t, next)
}

func TestTagOperations(t *testing.T) {
	svc, _ := newService(t, 2)
	ctx := context.Background()

	miku, err := svc.CreateArtistTag(ctx, "Miku")
	require.NoError(t, err)
	_, err = svc.CreateArtistTag(ctx, "Miku")
	require.ErrorIs(t, err, domain.ErrArtistExists)
	_, err = svc.CreateArtistTag(ctx, "  ")
	require.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = svc.CreateCategoryTag(ctx, owner, "Live")
	require.ErrorIs(t, err, domain.ErrForbidden)
	live, err := svc.CreateCategoryTag(ctx, admin, "Live")
	require.NoError(t, err)
	_, err = svc.CreateCategoryTag(ctx, admin, "Live")
	require.NoError(t, err, "category names are not unique")

	rin, err := svc.CreateArtistTag(ctx, "Rin")
	require.NoError(t, err)

	first := mustCreate(t, svc, owner, activityInput("first"))
	second := mustCreate(t, svc, owner, activityInput("second"))
	require.NoError(t, svc.AddTags(ctx, owner, first, []int64{miku.ID, live.ID}))
	require.NoError(t, svc.AddTags(ctx, owner, second, []int64{miku.ID, rin.ID}))
	require.ErrorIs(t, svc.AddTags(ctx, owner, first, []int64{miku.ID}), domain.ErrDuplicateTag)
	require.ErrorIs(t, svc.AddTags(ctx, domain.Principal{UserID: 2}, first, []int64{rin.ID}), domain.ErrForbidden)
	require.ErrorIs(t, svc.AddTags(ctx, owner, first, []int64{404}), domain.ErrTagNotFound)

	popular, err := svc.PopularArtistTags(ctx, 0)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	require.Equal(t, "Miku", popular[0].Name)
	require.Equal(t, 2, popular[0].Activities)
	require.Equal(t, "Rin", popular[1].Name)

	categories, err := svc.CategoryTags(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)

	require.ErrorIs(t, svc.DeleteTag(ctx, owner, miku.ID), domain.ErrForbidden)
	require.NoError(t, svc.DeleteTag(ctx, admin, miku.ID))
	require.ErrorIs(t, svc.DeleteTag(ctx, admin, miku.ID), domain.ErrTagNotFound)

	view, err := svc.GetActivity(ctx, first)
	require.NoError(t, err)
	require.Equal(t, []domain.TagView{{ID: live.ID, Name: "Live", Type: domain.TagTypeCategory}}, view.Tags)
}

func TestAddUserTags(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()
	tag, err := svc.CreateArtistTag(ctx, "Gumi")
	require.NoError(t, err)

	require.NoError(t, svc.AddUserTags(ctx, owner, []int64{tag.ID}))
	require.ErrorIs(t, svc.AddUserTags(ctx, owner, []int64{tag.ID}), domain.ErrDuplicateTag)
	require.ErrorIs(t, svc.AddUserTags(ctx, domain.Principal{UserID: 404}, []int64{tag.ID}), domain.ErrUserNotFound)
}

func TestViewCacheIsUsedAndInvalidated(t *testing.T) {
	cache := newStubCache()
	svc, _ := newService(t, 1, domain.WithViewCache(cache))
	ctx := context.Background()
	id := mustCreate(t, svc, owner, activityInput("Cached"))

	_, err := svc.GetActivity(ctx, id)
	require.NoError(t, err)
	require.Contains(t, cache.views, id)

	cache.views[id] = domain.ActivityView{ID: id, Name: "stale"}
	view, err := svc.GetActivity(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "stale", view.Name)

	view, err = svc.UpdateActivity(ctx, owner, id, domain.ActivityPatch{Name: domain.Some("fresh")})
	require.NoError(t, err)
	require.Equal(t, "fresh", view.Name)
	require.Equal(t, []int64{id}, cache.invalidated)

	require.NoError(t, svc.DeleteTag(ctx, admin, mustArtist(t, svc, "x").ID))
	require.Equal(t, 1, cache.purges)
}

func mustArtist(t *testing.T, svc *domain.Service, name string) domain.Tag {
	t.Helper()
	tag, err := svc.CreateArtistTag(context.Background(), name)
	require.NoError(t, err)
	return tag
}

type stubCache struct {
	mu          sync.Mutex
	views       map[int64]domain.ActivityView
	invalidated []int64
	purges      int
}

func newStubCache() *stubCache {
	return &stubCache{views: make(map[int64]domain.ActivityView)}
}

func (c *stubCache) Get(_ context.Context, id int64) (*domain.ActivityView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.views[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (c *stubCache) Set(_ context.Context, view domain.ActivityView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[view.ID] = view
	return nil
}

func (c *stubCache) Invalidate(_ context.Context, ids ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.views, id)
	}
	c.invalidated = append(c.invalidated, ids...)
	return nil
}

func (c *stubCache) Purge(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views = make(map[int64]domain.ActivityView)
	c.purges++
	return nil
}
