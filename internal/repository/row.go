package repository

import (
	"fmt"
	"time"

	"todo-api/internal/models"
)

type todoRow struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Completed bool      `db:"completed"`
	Category  string    `db:"category"`
	CreatedAt timestamp `db:"created_at"`
}

func (r todoRow) model() models.Todo {
	return models.Todo{
		ID:        r.ID,
		Title:     r.Title,
		Completed: r.Completed,
		Category:  models.Category(r.Category),
		CreatedAt: r.CreatedAt.Time,
	}
}

// timestamp scans created_at from either driver. SQLite may hand back text
// when the declared column type is not visible, as with RETURNING.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("created_at: unsupported type %T", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("created_at: unrecognized timestamp %q", s)
}
