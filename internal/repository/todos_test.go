package repository

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"todo-api/internal/config"
	"todo-api/internal/models"
	"todo-api/pkg/logger"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	cfg := config.Defaults()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "todos.db")

	ctx := context.Background()
	s, err := Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Initialize(ctx))
	return s
}

func TestAddThenList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Add(ctx, "Buy milk", models.CategoryRuiqi)
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.Equal(t, "Buy milk", created.Title)
	assert.False(t, created.Completed)
	assert.Equal(t, models.CategoryRuiqi, created.Category)
	assert.False(t, created.CreatedAt.IsZero())

	todos, err := s.List(ctx, models.CategoryRuiqi)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, created.ID, todos[0].ID)
	assert.Equal(t, "Buy milk", todos[0].Title)
	assert.False(t, todos[0].Completed)
}

func TestAddDefaultsCategory(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Add(context.Background(), "Walk dog", "")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCategory, created.Category)
}

func TestAddValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"", "   ", "\t\n"} {
		_, err := s.Add(ctx, title, models.CategoryFamily)
		assert.ErrorIs(t, err, ErrValidation, "title %q", title)
	}

	_, err := s.Add(ctx, "ok", "family")
	assert.ErrorIs(t, err, ErrValidation, "categories are case-sensitive")

	todos, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, todos)
}

func TestAddTrimsTitle(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Add(context.Background(), "  Buy milk  ", "")
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", created.Title)
}

func TestToggleInvolution(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created, err := s.Add(ctx, "Flip me", "")
	require.NoError(t, err)

	once, err := s.Toggle(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, once.Completed)
	assert.Equal(t, created.Title, once.Title)
	assert.Equal(t, created.CreatedAt, once.CreatedAt)

	twice, err := s.Toggle(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, twice.Completed)
}

func TestUpdateTitleKeepsOtherFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created, err := s.Add(ctx, "Old", models.CategoryRuofei)
	require.NoError(t, err)
	_, err = s.Toggle(ctx, created.ID)
	require.NoError(t, err)

	updated, err := s.UpdateTitle(ctx, created.ID, " New ")
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.True(t, updated.Completed)
	assert.Equal(t, models.CategoryRuofei, updated.Category)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	_, err = s.UpdateTitle(ctx, created.ID, "  ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteFinality(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created, err := s.Add(ctx, "Gone soon", "")
	require.NoError(t, err)

	deleted, err := s.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.Toggle(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UpdateTitle(ctx, created.ID, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	deleted, err = s.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	todos, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, todos)
}

func TestIDsAreNotReused(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first, err := s.Add(ctx, "one", "")
	require.NoError(t, err)
	_, err = s.Delete(ctx, first.ID)
	require.NoError(t, err)

	second, err := s.Add(ctx, "two", "")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
}

func TestCategoryIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, c := range models.Categories {
		_, err := s.Add(ctx, "todo for "+string(c), c)
		require.NoError(t, err)
	}

	for _, c := range models.Categories {
		todos, err := s.List(ctx, c)
		require.NoError(t, err)
		require.Len(t, todos, 1)
		assert.Equal(t, c, todos[0].Category)
	}

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, len(models.Categories))

	none, err := s.List(ctx, "Nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	var ids []int64
	for _, title := range []string{"T1", "T2", "T3"} {
		created, err := s.Add(ctx, title, models.CategoryFamily)
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	todos, err := s.List(ctx, models.CategoryFamily)
	require.NoError(t, err)
	require.Len(t, todos, 3)
	assert.Equal(t, []string{"T3", "T2", "T1"}, []string{todos[0].Title, todos[1].Title, todos[2].Title})
	assert.Equal(t, ids[2], todos[0].ID)
}

func TestNotFoundOnFreshStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Toggle(ctx, 999999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UpdateTitle(ctx, 999999, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	deleted, err := s.Delete(ctx, 999999)
	require.NoError(t, err)
	assert.False(t, deleted)

	todos, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, todos)
}

func TestConcurrentTogglesCancelOut(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created, err := s.Add(ctx, "contended", "")
	require.NoError(t, err)

	for trial := 0; trial < 25; trial++ {
		var g errgroup.Group
		for i := 0; i < 2; i++ {
			g.Go(func() error {
				_, err := s.Toggle(ctx, created.ID)
				return err
			})
		}
		require.NoError(t, g.Wait())

		todos, err := s.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, todos, 1)
		require.False(t, todos[0].Completed, "trial %d", trial)
	}
}

func TestToggleStormParity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created, err := s.Add(ctx, "storm", "")
	require.NoError(t, err)

	const n = 15
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := s.Toggle(ctx, created.ID)
			return err
		})
	}
	require.NoError(t, g.Wait())

	todos, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, n%2 == 1, todos[0].Completed)
}

func TestInitializeIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created, err := s.Add(ctx, "survivor", "")
	require.NoError(t, err)

	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Initialize(ctx))

	todos, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, created.ID, todos[0].ID)
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.List(context.Background(), "")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, s.Ping(context.Background()), ErrStorageUnavailable)
}

func TestCanceledCallerIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), logger.New(&buf)))
	cancel()

	_, err := s.List(ctx, "")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Toggle(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, buf.String(), `"level":"ERROR"`)
}
