// Package postgres implements the activity Engine on PostgreSQL with PostGIS.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SnowDream39/vocamap-backend/internal/domain"
	"github.com/SnowDream39/vocamap-backend/internal/search"
)

// Repository hands out pooled sessions. It implements domain.Engine.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Acquire checks a connection out of the pool for one operation.
func (r *Repository) Acquire(ctx context.Context) (domain.Session, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &session{conn: conn}, nil
}

type session struct {
	conn *pgxpool.Conn
}

func (s *session) Release() {
	s.conn.Release()
}

func (s *session) InTx(ctx context.Context, fn func(domain.Tx) error) (err error) {
	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(&txn{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const activityColumns = `a.id, a.name, a.start_time, a.end_time, a.location, a.description, a.max_member, a.owner_id,
        ST_X(a.position::geometry), ST_Y(a.position::geometry), a.created_at, a.updated_at`

const readModelQuery = `SELECT ` + activityColumns + `,
        COALESCE(t.tags, '[]'::jsonb), u.id, u.nickname
        FROM activities a
        LEFT JOIN users u ON u.id = a.owner_id
        LEFT JOIN LATERAL (
            SELECT jsonb_agg(jsonb_build_object('id', tg.id, 'name', tg.name, 'type', tg.type) ORDER BY tg.id) AS tags
            FROM activity_tags atg
            JOIN tags tg ON tg.id = atg.tag_id
            WHERE atg.activity_id = a.id
        ) t ON TRUE`

func (s *session) QueryActivities(ctx context.Context, q search.Query) ([]domain.ActivityRecord, error) {
	where, args, err := renderQuery(q)
	if err != nil {
		return nil, err
	}
	sql := readModelQuery + where

	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	records := make([]domain.ActivityRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *session) ActivityExists(ctx context.Context, activityID int64) (bool, error) {
	var exists bool
	err := s.conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM activities WHERE id = $1)`, activityID).Scan(&exists)
	return exists, err
}

func (s *session) Participants(ctx context.Context, activityID int64) ([]domain.User, error) {
	const query = `SELECT u.id, u.nickname
        FROM activity_participants p
        JOIN users u ON u.id = p.user_id
        WHERE p.activity_id = $1
        ORDER BY u.id`

	rows, err := s.conn.Query(ctx, query, activityID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Nickname); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *session) ListTags(ctx context.Context, tagType domain.TagType) ([]domain.Tag, error) {
	rows, err := s.conn.Query(ctx, `SELECT id, type::text, name FROM tags WHERE type = $1::text::tag_type ORDER BY id`, string(tagType))
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	tags := make([]domain.Tag, 0)
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Type, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *session) PopularArtistTags(ctx context.Context, limit int) ([]domain.TagUsage, error) {
	const query = `SELECT t.id, t.type::text, t.name, COUNT(*) AS uses
        FROM tags t
        JOIN activity_tags atg ON atg.tag_id = t.id
        WHERE t.type = 'artist'
        GROUP BY t.id
        ORDER BY uses DESC, t.id
        LIMIT $1`

	rows, err := s.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query popular tags: %w", err)
	}
	defer rows.Close()

	usage := make([]domain.TagUsage, 0, limit)
	for rows.Next() {
		var u domain.TagUsage
		if err := rows.Scan(&u.ID, &u.Type, &u.Name, &u.Activities); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

func scanActivity(row pgx.Row, extra ...any) (domain.Activity, error) {
	var a domain.Activity
	dest := []any{&a.ID, &a.Name, &a.StartTime, &a.EndTime, &a.Location, &a.Description, &a.MaxMember, &a.OwnerID,
		&a.Position.Lon, &a.Position.Lat, &a.CreatedAt, &a.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Activity{}, err
	}
	a.StartTime = a.StartTime.UTC()
	a.EndTime = a.EndTime.UTC()
	return a, nil
}

func scanRecord(row pgx.Row) (domain.ActivityRecord, error) {
	var (
		tags          []tagJSON
		ownerID       *int64
		ownerNickname *string
	)
	a, err := scanActivity(row, &tags, &ownerID, &ownerNickname)
	if err != nil {
		return domain.ActivityRecord{}, err
	}

	rec := domain.ActivityRecord{Activity: a, Tags: make([]domain.Tag, 0, len(tags))}
	for _, t := range tags {
		rec.Tags = append(rec.Tags, domain.Tag{ID: t.ID, Name: t.Name, Type: domain.TagType(t.Type)})
	}
	if ownerID != nil {
		rec.Owner = &domain.User{ID: *ownerID}
		if ownerNickname != nil {
			rec.Owner.Nickname = *ownerNickname
		}
	}
	return rec, nil
}

type tagJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

