package domain

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/SnowDream39/vocamap-backend/internal/geo"
)

// CreateActivityInput captures the payload for a new activity.
type CreateActivityInput struct {
	Name        string     `json:"name"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Location    *string    `json:"location"`
	Description *string    `json:"description"`
	MaxMember   *int       `json:"max_member"`
	Position    *geo.Point `json:"position"`
	TagIDs      []int64    `json:"tag_ids"`
}

var errNotPositive = errors.New("must be a positive integer")

var positiveMaxMember = validation.By(func(value interface{}) error {
	switch v := value.(type) {
	case *int:
		if v != nil && *v < 1 {
			return errNotPositive
		}
	case int:
		if v < 1 {
			return errNotPositive
		}
	}
	return nil
})

// Validate checks required fields and ranges.
func (in CreateActivityInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.StartTime, validation.Required),
		validation.Field(&in.EndTime, validation.Required),
		validation.Field(&in.MaxMember, positiveMaxMember),
		validation.Field(&in.Position, validation.NotNil),
	)
}

// Validate rejects nulls on required fields and out-of-range values.
func (p ActivityPatch) Validate() error {
	errs := validation.Errors{}
	if p.Name.Set {
		if p.Name.Value == nil {
			errs["name"] = errors.New("cannot be null")
		} else {
			errs["name"] = validation.Validate(*p.Name.Value, validation.Required, validation.Length(1, 255))
		}
	}
	if p.StartTime.Set && p.StartTime.Value == nil {
		errs["start_time"] = errors.New("cannot be null")
	}
	if p.EndTime.Set && p.EndTime.Value == nil {
		errs["end_time"] = errors.New("cannot be null")
	}
	if p.MaxMember.Set {
		errs["max_member"] = validation.Validate(p.MaxMember.Value, positiveMaxMember)
	}
	if p.Position.Set {
		if p.Position.Value == nil {
			errs["position"] = errors.New("cannot be null")
		} else {
			errs["position"] = p.Position.Value.Validate()
		}
	}
	return errs.Filter()
}

func validateTagName(name string) error {
	return validation.Validate(name, validation.Required, validation.Length(1, 100))
}
