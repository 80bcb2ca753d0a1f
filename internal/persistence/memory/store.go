// Package memory provides an in-process Engine used by tests and local runs.
//
// Transactions hold the store's write lock and operate on a copy of the
// state that replaces the live state only on commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/SnowDream39/vocamap-backend/internal/domain"
	"github.com/SnowDream39/vocamap-backend/internal/events"
	"github.com/SnowDream39/vocamap-backend/internal/search"
)

type set map[int64]struct{}

func (s set) clone() set {
	out := make(set, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

func (s set) sorted() []int64 {
	out := make([]int64, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type state struct {
	nextActivityID int64
	nextTagID      int64
	activities     map[int64]domain.Activity
	users          map[int64]domain.User
	tags           map[int64]domain.Tag
	participants   map[int64]set
	activityTags   map[int64]set
	userTags       map[int64]set
	events         []events.Envelope
}

func newState() *state {
	return &state{
		activities:   make(map[int64]domain.Activity),
		users:        make(map[int64]domain.User),
		tags:         make(map[int64]domain.Tag),
		participants: make(map[int64]set),
		activityTags: make(map[int64]set),
		userTags:     make(map[int64]set),
	}
}

func cloneIndex(in map[int64]set) map[int64]set {
	out := make(map[int64]set, len(in))
	for k, v := range in {
		out[k] = v.clone()
	}
	return out
}

func (s *state) clone() *state {
	out := &state{
		nextActivityID: s.nextActivityID,
		nextTagID:      s.nextTagID,
		activities:     make(map[int64]domain.Activity, len(s.activities)),
		users:          make(map[int64]domain.User, len(s.users)),
		tags:           make(map[int64]domain.Tag, len(s.tags)),
		participants:   cloneIndex(s.participants),
		activityTags:   cloneIndex(s.activityTags),
		userTags:       cloneIndex(s.userTags),
		events:         append([]events.Envelope(nil), s.events...),
	}
	for k, v := range s.activities {
		out.activities[k] = v
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.tags {
		out.tags[k] = v
	}
	return out
}

// Store is a mutex-guarded Engine.
type Store struct {
	mu sync.RWMutex
	st *state
}

// New constructs an empty Store.
func New() *Store {
	return &Store{st: newState()}
}

// AddUser registers or replaces a user.
func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[u.ID] = u
}

// RemoveUser deletes a user, clearing ownership and participation the way
// the relational schema does.
func (s *Store) RemoveUser(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.users, userID)
	delete(s.st.userTags, userID)
	for id, a := range s.st.activities {
		if a.OwnerID != nil && *a.OwnerID == userID {
			a.OwnerID = nil
			s.st.activities[id] = a
		}
	}
	for _, members := range s.st.participants {
		delete(members, userID)
	}
}

// Events returns the committed outbox envelopes in order.
func (s *Store) Events() []events.Envelope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]events.Envelope(nil), s.st.events...)
}

// Acquire implements domain.Engine.
func (s *Store) Acquire(ctx context.Context) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &session{store: s}, nil
}

type session struct {
	store *Store
}

func (s *session) Release() {}

func (s *session) InTx(ctx context.Context, fn func(domain.Tx) error) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.store.st.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	s.store.st = work
	return nil
}

func (s *session) QueryActivities(ctx context.Context, q search.Query) ([]domain.ActivityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	st := s.store.st

	ids := make([]int64, 0, len(st.activities))
	for id := range st.activities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	records := make([]domain.ActivityRecord, 0)
	for _, id := range ids {
		a := st.activities[id]
		if !q.Match(candidate(st, a)) {
			continue
		}
		records = append(records, record(st, a))
		if q.Limit > 0 && len(records) == q.Limit {
			break
		}
	}
	return records, nil
}

func candidate(st *state, a domain.Activity) search.Candidate {
	return search.Candidate{
		ID:           a.ID,
		Name:         a.Name,
		MaxMember:    a.MaxMember,
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		Position:     a.Position,
		OwnerID:      a.OwnerID,
		TagIDs:       st.activityTags[a.ID],
		Participants: st.participants[a.ID],
	}
}

func record(st *state, a domain.Activity) domain.ActivityRecord {
	r := domain.ActivityRecord{Activity: a}
	for _, tagID := range st.activityTags[a.ID].sorted() {
		if t, ok := st.tags[tagID]; ok {
			r.Tags = append(r.Tags, t)
		}
	}
	if a.OwnerID != nil {
		if u, ok := st.users[*a.OwnerID]; ok {
			owner := u
			r.Owner = &owner
		}
	}
	return r
}

func (s *session) ActivityExists(_ context.Context, activityID int64) (bool, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	_, ok := s.store.st.activities[activityID]
	return ok, nil
}

func (s *session) Participants(_ context.Context, activityID int64) ([]domain.User, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	st := s.store.st

	users := make([]domain.User, 0, len(st.participants[activityID]))
	for _, id := range st.participants[activityID].sorted() {
		if u, ok := st.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *session) ListTags(_ context.Context, tagType domain.TagType) ([]domain.Tag, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	tags := make([]domain.Tag, 0)
	for _, t := range s.store.st.tags {
		if t.Type == tagType {
			tags = append(tags, t)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return tags, nil
}

func (s *session) PopularArtistTags(_ context.Context, limit int) ([]domain.TagUsage, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	st := s.store.st

	counts := make(map[int64]int)
	for _, tagIDs := range st.activityTags {
		for tagID := range tagIDs {
			counts[tagID]++
		}
	}
	usage := make([]domain.TagUsage, 0, len(counts))
	for tagID, n := range counts {
		t, ok := st.tags[tagID]
		if !ok || t.Type != domain.TagTypeArtist {
			continue
		}
		usage = append(usage, domain.TagUsage{Tag: t, Activities: n})
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Activities != usage[j].Activities {
			return usage[i].Activities > usage[j].Activities
		}
		return usage[i].ID < usage[j].ID
	})
	if limit > 0 && len(usage) > limit {
		usage = usage[:limit]
	}
	return usage, nil
}

type tx struct {
	st *state
}

func (t *tx) LockActivity(_ context.Context, activityID int64) (domain.Activity, error) {
	a, ok := t.st.activities[activityID]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	return a, nil
}

func (t *tx) UserExists(_ context.Context, userID int64) (bool, error) {
	_, ok := t.st.users[userID]
	return ok, nil
}

func (t *tx) InsertActivity(_ context.Context, a domain.Activity) (int64, error) {
	if a.OwnerID != nil {
		if _, ok := t.st.users[*a.OwnerID]; !ok {
			return 0, domain.ErrUserNotFound
		}
	}
	t.st.nextActivityID++
	a.ID = t.st.nextActivityID
	t.st.activities[a.ID] = a
	return a.ID, nil
}

func (t *tx) UpdateActivity(_ context.Context, a domain.Activity) error {
	if _, ok := t.st.activities[a.ID]; !ok {
		return domain.ErrActivityNotFound
	}
	t.st.activities[a.ID] = a
	return nil
}

func (t *tx) DeleteActivity(_ context.Context, activityID int64) (bool, error) {
	if _, ok := t.st.activities[activityID]; !ok {
		return false, nil
	}
	delete(t.st.activities, activityID)
	delete(t.st.participants, activityID)
	delete(t.st.activityTags, activityID)
	return true, nil
}

func (t *tx) IsParticipant(_ context.Context, activityID, userID int64) (bool, error) {
	_, ok := t.st.participants[activityID][userID]
	return ok, nil
}

func (t *tx) CountParticipants(_ context.Context, activityID int64) (int, error) {
	return len(t.st.participants[activityID]), nil
}

func (t *tx) InsertParticipant(_ context.Context, activityID, userID int64) error {
	if _, ok := t.st.activities[activityID]; !ok {
		return domain.ErrActivityNotFound
	}
	if _, ok := t.st.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	return insertPair(t.st.participants, activityID, userID, domain.ErrAlreadyJoined)
}

func (t *tx) DeleteParticipant(_ context.Context, activityID, userID int64) (bool, error) {
	members := t.st.participants[activityID]
	if _, ok := members[userID]; !ok {
		return false, nil
	}
	delete(members, userID)
	return true, nil
}

func (t *tx) InsertActivityTag(_ context.Context, activityID, tagID int64) error {
	if _, ok := t.st.activities[activityID]; !ok {
		return domain.ErrActivityNotFound
	}
	if _, ok := t.st.tags[tagID]; !ok {
		return fmt.Errorf("tag %d: %w", tagID, domain.ErrTagNotFound)
	}
	return insertPair(t.st.activityTags, activityID, tagID, domain.ErrDuplicateTag)
}

func (t *tx) FindArtistTag(_ context.Context, name string) (*domain.Tag, error) {
	for _, tag := range t.st.tags {
		if tag.Type == domain.TagTypeArtist && tag.Name == name {
			found := tag
			return &found, nil
		}
	}
	return nil, nil
}

func (t *tx) InsertTag(ctx context.Context, tag domain.Tag) (int64, error) {
	if tag.Type == domain.TagTypeArtist {
		if existing, _ := t.FindArtistTag(ctx, tag.Name); existing != nil {
			return 0, domain.ErrArtistExists
		}
	}
	t.st.nextTagID++
	tag.ID = t.st.nextTagID
	t.st.tags[tag.ID] = tag
	return tag.ID, nil
}

func (t *tx) DeleteTag(_ context.Context, tagID int64) (bool, error) {
	if _, ok := t.st.tags[tagID]; !ok {
		return false, nil
	}
	delete(t.st.tags, tagID)
	for _, tags := range t.st.activityTags {
		delete(tags, tagID)
	}
	for _, tags := range t.st.userTags {
		delete(tags, tagID)
	}
	return true, nil
}

func (t *tx) InsertUserTag(_ context.Context, userID, tagID int64) error {
	if _, ok := t.st.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	if _, ok := t.st.tags[tagID]; !ok {
		return fmt.Errorf("tag %d: %w", tagID, domain.ErrTagNotFound)
	}
	return insertPair(t.st.userTags, userID, tagID, domain.ErrDuplicateTag)
}

func (t *tx) RecordEvent(_ context.Context, e events.Envelope) error {
	t.st.events = append(t.st.events, e)
	return nil
}

func insertPair(index map[int64]set, left, right int64, dup error) error {
	members, ok := index[left]
	if !ok {
		members = make(set)
		index[left] = members
	}
	if _, exists := members[right]; exists {
		return dup
	}
	members[right] = struct{}{}
	return nil
}
