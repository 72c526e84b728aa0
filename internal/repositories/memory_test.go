package repositories_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"time-nest/backend/internal/models"
	"time-nest/backend/internal/repositories"
)

func TestMemoryTaskRepository(t *testing.T) {
	testTaskRepository(t, repositories.NewMemoryTaskRepository())
}

func TestMemoryUserRepository(t *testing.T) {
	testUserRepository(t, repositories.NewMemoryUserRepository())
}

func TestMemoryTaskRepository_SameCreatedAtKeepsInsertOrder(t *testing.T) {
	repo := repositories.NewMemoryTaskRepository()
	ctx := context.Background()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, title := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Create(ctx, &models.Task{Title: title, UserID: "u", CreatedAt: at, UpdatedAt: at}))
	}
	tasks, err := repo.ListByUser(ctx, "u")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{tasks[0].Title, tasks[1].Title, tasks[2].Title})
}

func TestMemoryUserRepository_ConcurrentCreateSameEmail(t *testing.T) {
	repo := repositories.NewMemoryUserRepository()
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, &models.User{Email: "same@example.com"})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, repositories.ErrDuplicateEmail)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestMemoryStore(t *testing.T) {
	store := repositories.NewMemoryStore()
	ctx := context.Background()
	assert.Equal(t, "memory", store.Driver)
	assert.NoError(t, store.Ping(ctx))
	assert.NoError(t, store.Migrate(ctx))
	assert.NoError(t, store.Close(ctx))
}
