package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/SnowDream39/vocamap-backend/internal/domain"
	"github.com/SnowDream39/vocamap-backend/internal/events"
	"github.com/SnowDream39/vocamap-backend/internal/geo"
	"github.com/SnowDream39/vocamap-backend/internal/outbox"
)

// txn implements domain.Tx over a pgx transaction.
type txn struct {
	tx pgx.Tx
}

// constraintErrors maps constraint names to the domain sentinel they surface as.
var constraintErrors = map[string]error{
	"activity_participants_pkey":             domain.ErrAlreadyJoined,
	"activity_participants_activity_id_fkey": domain.ErrActivityNotFound,
	"activity_participants_user_id_fkey":     domain.ErrUserNotFound,
	"activity_tags_pkey":                     domain.ErrDuplicateTag,
	"activity_tags_activity_id_fkey":         domain.ErrActivityNotFound,
	"activity_tags_tag_id_fkey":              domain.ErrTagNotFound,
	"user_tags_pkey":                         domain.ErrDuplicateTag,
	"user_tags_user_id_fkey":                 domain.ErrUserNotFound,
	"user_tags_tag_id_fkey":                  domain.ErrTagNotFound,
	"tags_artist_name_key":                   domain.ErrArtistExists,
	"activities_owner_id_fkey":               domain.ErrUserNotFound,
}

// translate converts unique and foreign key violations into domain sentinels.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation, pgerrcode.ForeignKeyViolation:
		if mapped, ok := constraintErrors[pgErr.ConstraintName]; ok {
			return mapped
		}
	case pgerrcode.CheckViolation:
		return domain.NewValidationError(fmt.Errorf("constraint %s violated", pgErr.ConstraintName))
	}
	return err
}

func (t *txn) LockActivity(ctx context.Context, activityID int64) (domain.Activity, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities a WHERE a.id = $1 FOR UPDATE`, activityID)
	a, err := scanActivity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	if err != nil {
		return domain.Activity{}, fmt.Errorf("lock activity: %w", err)
	}
	return a, nil
}

func (t *txn) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

func (t *txn) InsertActivity(ctx context.Context, a domain.Activity) (int64, error) {
	const stmt = `INSERT INTO activities (name, start_time, end_time, location, description, max_member, owner_id, position, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, ST_SetSRID(ST_MakePoint($8, $9), $10)::geography, $11, $11)
        RETURNING id`

	var id int64
	err := t.tx.QueryRow(ctx, stmt,
		a.Name, a.StartTime, a.EndTime, a.Location, a.Description, a.MaxMember, a.OwnerID,
		a.Position.Lon, a.Position.Lat, geo.SRID, a.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, translate(err)
	}
	return id, nil
}

func (t *txn) UpdateActivity(ctx context.Context, a domain.Activity) error {
	const stmt = `UPDATE activities
           SET name = $2, start_time = $3, end_time = $4, location = $5, description = $6, max_member = $7,
               position = ST_SetSRID(ST_MakePoint($8, $9), $10)::geography, updated_at = $11
         WHERE id = $1`

	tag, err := t.tx.Exec(ctx, stmt,
		a.ID, a.Name, a.StartTime, a.EndTime, a.Location, a.Description, a.MaxMember,
		a.Position.Lon, a.Position.Lat, geo.SRID, a.UpdatedAt,
	)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrActivityNotFound
	}
	return nil
}

func (t *txn) DeleteActivity(ctx context.Context, activityID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM activities WHERE id = $1`, activityID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txn) IsParticipant(ctx context.Context, activityID, userID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM activity_participants WHERE activity_id = $1 AND user_id = $2)`,
		activityID, userID,
	).Scan(&exists)
	return exists, err
}

func (t *txn) CountParticipants(ctx context.Context, activityID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM activity_participants WHERE activity_id = $1`, activityID).Scan(&n)
	return n, err
}

func (t *txn) InsertParticipant(ctx context.Context, activityID, userID int64) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO activity_participants (activity_id, user_id) VALUES ($1, $2)`, activityID, userID)
	if err != nil {
		return translate(err)
	}
	return nil
}

func (t *txn) DeleteParticipant(ctx context.Context, activityID, userID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM activity_participants WHERE activity_id = $1 AND user_id = $2`, activityID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txn) InsertActivityTag(ctx context.Context, activityID, tagID int64) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO activity_tags (activity_id, tag_id) VALUES ($1, $2)`, activityID, tagID)
	if err != nil {
		return tagError(tagID, translate(err))
	}
	return nil
}

func (t *txn) FindArtistTag(ctx context.Context, name string) (*domain.Tag, error) {
	var tag domain.Tag
	err := t.tx.QueryRow(ctx,
		`SELECT id, type::text, name FROM tags WHERE type = 'artist' AND name = $1`, name,
	).Scan(&tag.ID, &tag.Type, &tag.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (t *txn) InsertTag(ctx context.Context, tag domain.Tag) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO tags (type, name) VALUES ($1::text::tag_type, $2) RETURNING id`,
		string(tag.Type), tag.Name,
	).Scan(&id)
	if err != nil {
		return 0, translate(err)
	}
	return id, nil
}

func (t *txn) DeleteTag(ctx context.Context, tagID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM tags WHERE id = $1`, tagID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txn) InsertUserTag(ctx context.Context, userID, tagID int64) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO user_tags (user_id, tag_id) VALUES ($1, $2)`, userID, tagID)
	if err != nil {
		return tagError(tagID, translate(err))
	}
	return nil
}

func tagError(tagID int64, err error) error {
	if errors.Is(err, domain.ErrTagNotFound) {
		return fmt.Errorf("tag %d: %w", tagID, err)
	}
	return err
}

func (t *txn) RecordEvent(ctx context.Context, e events.Envelope) error {
	return outbox.Record(ctx, t.tx, e)
}
