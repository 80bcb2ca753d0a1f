package domain

import (
	"encoding/json"
	"time"

	"github.com/SnowDream39/vocamap-backend/internal/geo"
)

// Activity is the canonical activity row.
type Activity struct {
	ID          int64
	Name        string
	StartTime   time.Time
	EndTime     time.Time
	Location    *string
	Description *string
	MaxMember   *int
	OwnerID     *int64
	Position    geo.Point
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TagType distinguishes category tags from artist tags.
type TagType string

const (
	TagTypeCategory TagType = "category"
	TagTypeArtist   TagType = "artist"
)

// Tag labels activities and users.
type Tag struct {
	ID   int64
	Type TagType
	Name string
}

// TagUsage pairs a tag with the number of activities bound to it.
type TagUsage struct {
	Tag
	Activities int
}

// User is the minimal identity known to the activity domain.
type User struct {
	ID       int64
	Nickname string
}

// Role is the privilege level carried by a principal.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleNormal Role = "normal"
)

// Principal identifies the caller of a mutating operation.
type Principal struct {
	UserID int64
	Role   Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// canUpdate is the ownership predicate for update and tag binding.
func canUpdate(p Principal, a Activity) bool {
	return a.OwnerID != nil && *a.OwnerID == p.UserID
}

// canDelete is the privilege predicate for deletion.
func canDelete(p Principal) bool {
	return p.IsAdmin()
}

// ActivityRecord is an activity joined with its tags and owner, as loaded by
// an Engine.
type ActivityRecord struct {
	Activity
	Tags  []Tag
	Owner *User
}

// Cursor models the keyset pagination token.
type Cursor struct {
	AfterID int64
}

// Field is an optional patch value. Set distinguishes an absent key from an
// explicit null, which leaves Value nil.
type Field[T any] struct {
	Set   bool
	Value *T
}

// Some returns a Field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: &v}
}

// Null returns a Field that clears the stored value.
func Null[T any]() Field[T] {
	return Field[T]{Set: true}
}

// UnmarshalJSON marks the field as present and decodes non-null values.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if string(data) == "null" {
		f.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.Value = &v
	return nil
}

// ActivityPatch is a partial update. Only fields with Set are written.
type ActivityPatch struct {
	Name        Field[string]    `json:"name"`
	StartTime   Field[time.Time] `json:"start_time"`
	EndTime     Field[time.Time] `json:"end_time"`
	Location    Field[string]    `json:"location"`
	Description Field[string]    `json:"description"`
	MaxMember   Field[int]       `json:"max_member"`
	Position    Field[geo.Point] `json:"position"`
}

// Apply writes the present fields onto a.
func (p ActivityPatch) Apply(a *Activity) {
	if p.Name.Set && p.Name.Value != nil {
		a.Name = *p.Name.Value
	}
	if p.StartTime.Set && p.StartTime.Value != nil {
		a.StartTime = p.StartTime.Value.UTC()
	}
	if p.EndTime.Set && p.EndTime.Value != nil {
		a.EndTime = p.EndTime.Value.UTC()
	}
	if p.Location.Set {
		a.Location = p.Location.Value
	}
	if p.Description.Set {
		a.Description = p.Description.Value
	}
	if p.MaxMember.Set {
		a.MaxMember = p.MaxMember.Value
	}
	if p.Position.Set && p.Position.Value != nil {
		a.Position = *p.Position.Value
	}
}

// IsEmpty reports whether the patch carries no fields.
func (p ActivityPatch) IsEmpty() bool {
	return !p.Name.Set && !p.StartTime.Set && !p.EndTime.Set && !p.Location.Set &&
		!p.Description.Set && !p.MaxMember.Set && !p.Position.Set
}
