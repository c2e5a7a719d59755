package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"todo-api/internal/config"
	"todo-api/internal/database"
	"todo-api/internal/models"
	"todo-api/pkg/logger"
)

// Store is the persistence contract. Both backends satisfy it through
// SQLStore; callers never learn which one is active.
type Store interface {
	Initialize(ctx context.Context) error
	// List returns todos newest first. An empty category means all of them.
	List(ctx context.Context, category models.Category) ([]models.Todo, error)
	// Add inserts a todo. An empty category means models.DefaultCategory.
	Add(ctx context.Context, title string, category models.Category) (models.Todo, error)
	// Toggle flips completed and returns the row, or ErrNotFound.
	Toggle(ctx context.Context, id int64) (models.Todo, error)
	// UpdateTitle replaces the title and returns the row, or ErrNotFound.
	UpdateTitle(ctx context.Context, id int64, title string) (models.Todo, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id int64) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

var columns = []string{"id", "title", "completed", "category", "created_at"}

var returning = "RETURNING " + strings.Join(columns, ", ")

// SQLStore implements Store over database/sql. The only dialect difference
// it carries is the bind placeholder style; every write is a single
// statement that commits on its own.
type SQLStore struct {
	db      *sqlx.DB
	backend config.Backend
	sb      squirrel.StatementBuilderType
	timeout time.Duration
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an open pool. timeout bounds every operation.
func NewSQLStore(db *sqlx.DB, backend config.Backend, timeout time.Duration) *SQLStore {
	var format squirrel.PlaceholderFormat = squirrel.Question
	if backend == config.BackendPostgres {
		format = squirrel.Dollar
	}
	return &SQLStore{
		db:      db,
		backend: backend,
		sb:      squirrel.StatementBuilder.PlaceholderFormat(format),
		timeout: timeout,
	}
}

// Open connects to the configured backend and returns a ready Store.
func Open(ctx context.Context, cfg *config.Config) (*SQLStore, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, classify("open", err)
	}
	return NewSQLStore(db, cfg.Backend(), cfg.QueryTimeout), nil
}

func (s *SQLStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Initialize ensures the schema exists.
func (s *SQLStore) Initialize(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return classify("initialize", database.Initialize(ctx, s.db, s.backend))
}

// List returns todos ordered by created_at then id, both descending.
func (s *SQLStore) List(ctx context.Context, category models.Category) ([]models.Todo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	q := s.sb.Select(columns...).From(database.TableName).OrderBy("created_at DESC", "id DESC")
	if category != "" {
		q = q.Where(squirrel.Eq{"category": string(category)})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, classify("list", err)
	}
	var rows []todoRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		logFailure(ctx, "Repository List failed", err)
		return nil, classify("list", err)
	}
	todos := make([]models.Todo, 0, len(rows))
	for _, r := range rows {
		todos = append(todos, r.model())
	}
	return todos, nil
}

// Add stores a trimmed title with completed=false.
func (s *SQLStore) Add(ctx context.Context, title string, category models.Category) (models.Todo, error) {
	title, err := normalizeTitle("add", title)
	if err != nil {
		return models.Todo{}, err
	}
	if category == "" {
		category = models.DefaultCategory
	}
	if !category.Valid() {
		return models.Todo{}, validationError("add", "unknown category "+string(category))
	}

	q := s.sb.Insert(database.TableName).
		Columns("title", "category").
		Values(title, string(category)).
		Suffix(returning)
	return s.returningOne(ctx, "add", q)
}

// Toggle flips completed in one statement, so concurrent toggles of the same
// row serialize on the row lock and none is lost.
func (s *SQLStore) Toggle(ctx context.Context, id int64) (models.Todo, error) {
	q := s.sb.Update(database.TableName).
		Set("completed", squirrel.Expr("NOT completed")).
		Where(squirrel.Eq{"id": id}).
		Suffix(returning)
	return s.returningOne(ctx, "toggle", q)
}

// UpdateTitle replaces only the title.
func (s *SQLStore) UpdateTitle(ctx context.Context, id int64, title string) (models.Todo, error) {
	title, err := normalizeTitle("update title", title)
	if err != nil {
		return models.Todo{}, err
	}
	q := s.sb.Update(database.TableName).
		Set("title", title).
		Where(squirrel.Eq{"id": id}).
		Suffix(returning)
	return s.returningOne(ctx, "update title", q)
}

// Delete removes the row with id.
func (s *SQLStore) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query, args, err := s.sb.Delete(database.TableName).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return false, classify("delete", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		logFailure(ctx, "Repository Delete failed", err, "id", id)
		return false, classify("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("delete", err)
	}
	return n > 0, nil
}

// Ping checks that the backend is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return classify("ping", s.db.PingContext(ctx))
}

// Close releases the pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) returningOne(ctx context.Context, op string, q squirrel.Sqlizer) (models.Todo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query, args, err := q.ToSql()
	if err != nil {
		return models.Todo{}, classify(op, err)
	}
	var row todoRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		err = classify(op, err)
		if !errors.Is(err, ErrNotFound) {
			logFailure(ctx, "Repository write failed", err, "op", op)
		}
		return models.Todo{}, err
	}
	return row.model(), nil
}

// logFailure logs a backend error. A caller that went away is not a backend
// problem, so context.Canceled is logged at debug only.
func logFailure(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "error", err)
	if errors.Is(err, context.Canceled) {
		logger.Debug(ctx, msg, args...)
		return
	}
	logger.Error(ctx, msg, args...)
}

func normalizeTitle(op, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", validationError(op, "title must not be empty")
	}
	return title, nil
}
