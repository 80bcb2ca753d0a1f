package domain

import (
	"time"

	"github.com/SnowDream39/vocamap-backend/internal/geo"
)

// TagView is the tag summary embedded in an ActivityView.
type TagView struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Type TagType `json:"type"`
}

// OwnerView is the owner summary embedded in an ActivityView.
type OwnerView struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
}

// ActivityView is the denormalized read model returned by every read.
type ActivityView struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Location    *string    `json:"location"`
	Description *string    `json:"description"`
	MaxMember   *int       `json:"max_member"`
	OwnerID     *int64     `json:"owner_id"`
	Position    geo.Point  `json:"position"`
	Tags        []TagView  `json:"tags"`
	Owner       *OwnerView `json:"owner"`
}

// UserView is the participant summary.
type UserView struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
}

// Assemble builds the read model from a loaded record. Tags is never nil and
// Owner is nil when the owner is unset or no longer exists.
func Assemble(r ActivityRecord) ActivityView {
	view := ActivityView{
		ID:          r.ID,
		Name:        r.Name,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Location:    r.Location,
		Description: r.Description,
		MaxMember:   r.MaxMember,
		OwnerID:     r.OwnerID,
		Position:    r.Position,
		Tags:        make([]TagView, 0, len(r.Tags)),
	}
	for _, t := range r.Tags {
		view.Tags = append(view.Tags, TagView{ID: t.ID, Name: t.Name, Type: t.Type})
	}
	if r.Owner != nil {
		view.Owner = &OwnerView{ID: r.Owner.ID, Nickname: r.Owner.Nickname}
	}
	return view
}

// AssembleAll maps records to views, returning an empty slice for no records.
func AssembleAll(records []ActivityRecord) []ActivityView {
	views := make([]ActivityView, 0, len(records))
	for _, r := range records {
		views = append(views, Assemble(r))
	}
	return views
}

func toUserViews(users []User) []UserView {
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, UserView{ID: u.ID, Nickname: u.Nickname})
	}
	return out
}
