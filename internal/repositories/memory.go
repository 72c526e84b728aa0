package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"time-nest/backend/internal/models"
)

// MemoryTaskRepository はプロセス内のマップにタスクを保持します。
// 開発用・テスト用で、再起動すると内容は失われます。
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]models.Task
	order map[string]uint64
	seq   uint64
}

// NewMemoryTaskRepository は空のMemoryTaskRepositoryを作成します。
func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{
		tasks: make(map[string]models.Task),
		order: make(map[string]uint64),
	}
}

func (r *MemoryTaskRepository) ListByUser(_ context.Context, userID string) ([]models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := []models.Task{}
	for _, t := range r.tasks {
		if t.UserID == userID {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return r.order[tasks[i].ID] > r.order[tasks[j].ID]
	})
	return tasks, nil
}

func (r *MemoryTaskRepository) Create(_ context.Context, t *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t.ID = primitive.NewObjectID().Hex()
	r.seq++
	r.order[t.ID] = r.seq
	r.tasks[t.ID] = *t
	return nil
}

func (r *MemoryTaskRepository) Update(_ context.Context, id, userID string, ch models.TaskChanges) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return nil, ErrTaskNotFound
	}
	ch.Apply(&t)
	r.tasks[id] = t
	return &t, nil
}

func (r *MemoryTaskRepository) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return ErrTaskNotFound
	}
	delete(r.tasks, id)
	delete(r.order, id)
	return nil
}

// MemoryUserRepository はプロセス内のマップにユーザーを保持します。
type MemoryUserRepository struct {
	mu      sync.RWMutex
	users   map[string]models.User
	byEmail map[string]string
}

// NewMemoryUserRepository は空のMemoryUserRepositoryを作成します。
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := r.users[id]
	return &u, nil
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepository) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[u.Email]; exists {
		return ErrDuplicateEmail
	}
	u.ID = primitive.NewObjectID().Hex()
	r.users[u.ID] = *u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *MemoryUserRepository) UpdateLogin(_ context.Context, id, name, provider string, at time.Time) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.Name = name
	u.AuthProvider = provider
	u.UpdatedAt = at
	r.users[id] = u
	return &u, nil
}
