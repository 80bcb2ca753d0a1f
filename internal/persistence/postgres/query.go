package postgres

import (
	"fmt"
	"strings"

	"github.com/SnowDream39/vocamap-backend/internal/geo"
	"github.com/SnowDream39/vocamap-backend/internal/search"
)

// whereBuilder accumulates conditions and positional arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *whereBuilder) add(c search.Clause) error {
	var cond string
	switch c := c.(type) {
	case search.Keyword:
		cond = fmt.Sprintf("strpos(a.name, %s) > 0", b.arg(c.Text))
	case search.HasTag:
		cond = fmt.Sprintf("EXISTS (SELECT 1 FROM activity_tags f WHERE f.activity_id = a.id AND f.tag_id = %s)", b.arg(c.TagID))
	case search.CapacityAtLeast:
		cond = fmt.Sprintf("a.max_member >= %s", b.arg(c.Min))
	case search.CapacityAtMost:
		cond = fmt.Sprintf("a.max_member <= %s", b.arg(c.Max))
	case search.EndsAtOrAfter:
		cond = fmt.Sprintf("a.end_time >= %s", b.arg(c.At))
	case search.StartsAtOrBefore:
		cond = fmt.Sprintf("a.start_time <= %s", b.arg(c.At))
	case search.WithinDistance:
		cond = fmt.Sprintf("ST_DWithin(a.position, ST_SetSRID(ST_MakePoint(%s, %s), %d)::geography, %s, true)",
			b.arg(c.Center.Lon), b.arg(c.Center.Lat), geo.SRID, b.arg(c.Meters))
	case search.OwnedBy:
		cond = fmt.Sprintf("a.owner_id = %s", b.arg(c.UserID))
	case search.JoinedBy:
		cond = fmt.Sprintf("EXISTS (SELECT 1 FROM activity_participants p WHERE p.activity_id = a.id AND p.user_id = %s)", b.arg(c.UserID))
	case search.HasID:
		cond = fmt.Sprintf("a.id = %s", b.arg(c.ID))
	default:
		return fmt.Errorf("unsupported clause %T", c)
	}
	b.conds = append(b.conds, cond)
	return nil
}

// renderQuery turns a search.Query into a WHERE/ORDER/LIMIT suffix.
func renderQuery(q search.Query) (string, []any, error) {
	b := &whereBuilder{}
	for _, c := range q.Clauses {
		if err := b.add(c); err != nil {
			return "", nil, err
		}
	}
	if q.AfterID > 0 {
		b.conds = append(b.conds, fmt.Sprintf("a.id > %s", b.arg(q.AfterID)))
	}

	var sb strings.Builder
	if len(b.conds) > 0 {
		sb.WriteString("\n        WHERE ")
		sb.WriteString(strings.Join(b.conds, "\n          AND "))
	}
	sb.WriteString("\n        ORDER BY a.id")
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(b.arg(q.Limit))
	}
	return sb.String(), b.args, nil
}
