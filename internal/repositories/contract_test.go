package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"time-nest/backend/internal/models"
	"time-nest/backend/internal/repositories"
)

// testTaskRepository は全実装に共通のタスクリポジトリの振る舞いを検証します。
func testTaskRepository(t *testing.T, repo repositories.TaskRepository) {
	ctx := context.Background()
	base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	newTask := func(title, owner string, created time.Time) *models.Task {
		return &models.Task{Title: title, UserID: owner, CreatedAt: created, UpdatedAt: created}
	}

	older := newTask("older", "alice", base)
	newer := newTask("newer", "alice", base.Add(time.Hour))
	other := newTask("bob's", "bob", base)
	for _, task := range []*models.Task{older, newer, other} {
		require.NoError(t, repo.Create(ctx, task))
		require.NotEmpty(t, task.ID)
	}

	t.Run("list is scoped and ordered by created_at desc", func(t *testing.T) {
		tasks, err := repo.ListByUser(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, "newer", tasks[0].Title)
		assert.Equal(t, "older", tasks[1].Title)

		empty, err := repo.ListByUser(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("update applies changes", func(t *testing.T) {
		desc := "details"
		done := true
		due := base.Add(48 * time.Hour)
		clock := "14:30"
		updated, err := repo.Update(ctx, older.ID, "alice", models.TaskChanges{
			Description: &desc,
			Completed:   &done,
			DueDate:     &due,
			DueTime:     &clock,
			UpdatedAt:   base.Add(2 * time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, older.ID, updated.ID)
		assert.Equal(t, "older", updated.Title)
		require.NotNil(t, updated.Description)
		assert.Equal(t, "details", *updated.Description)
		assert.True(t, updated.Completed)
		require.NotNil(t, updated.DueDate)
		assert.True(t, due.Equal(*updated.DueDate))
		assert.Equal(t, &clock, updated.DueTime)
		assert.True(t, base.Add(2*time.Hour).Equal(updated.UpdatedAt))

		cleared, err := repo.Update(ctx, older.ID, "alice", models.TaskChanges{
			ClearDescription: true,
			ClearDueDate:     true,
			ClearDueTime:     true,
			UpdatedAt:        base.Add(3 * time.Hour),
		})
		require.NoError(t, err)
		assert.Nil(t, cleared.Description)
		assert.Nil(t, cleared.DueDate)
		assert.Nil(t, cleared.DueTime)
		assert.True(t, cleared.Completed)
	})

	t.Run("non-owner cannot update or delete", func(t *testing.T) {
		title := "hijacked"
		_, err := repo.Update(ctx, other.ID, "alice", models.TaskChanges{Title: &title, UpdatedAt: base})
		assert.ErrorIs(t, err, repositories.ErrTaskNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, other.ID, "alice"), repositories.ErrTaskNotFound)

		tasks, err := repo.ListByUser(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "bob's", tasks[0].Title)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		_, err := repo.Update(ctx, "not-an-id", "alice", models.TaskChanges{UpdatedAt: base})
		assert.ErrorIs(t, err, repositories.ErrTaskNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, "not-an-id", "alice"), repositories.ErrTaskNotFound)
	})

	t.Run("delete removes task once", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, newer.ID, "alice"))
		assert.ErrorIs(t, repo.Delete(ctx, newer.ID, "alice"), repositories.ErrTaskNotFound)
	})
}

// testUserRepository は全実装に共通のユーザーリポジトリの振る舞いを検証します。
func testUserRepository(t *testing.T, repo repositories.UserRepository) {
	ctx := context.Background()
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	u := &models.User{Email: "alice@example.com", Name: "Alice", AuthProvider: "google", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, u))
	require.NotEmpty(t, u.ID)

	dup := &models.User{Email: "alice@example.com", Name: "Other", CreatedAt: now, UpdatedAt: now}
	assert.ErrorIs(t, repo.Create(ctx, dup), repositories.ErrDuplicateEmail)

	found, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, "Alice", found.Name)

	byID, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	updated, err := repo.UpdateLogin(ctx, u.ID, "Alice Liddell", "google", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", updated.Name)
	assert.True(t, now.Add(time.Hour).Equal(updated.UpdatedAt))
	assert.True(t, now.Equal(updated.CreatedAt))

	_, err = repo.FindByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)
	_, err = repo.FindByID(ctx, "bogus")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)
	_, err = repo.UpdateLogin(ctx, "bogus", "x", "google", now)
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)
}
