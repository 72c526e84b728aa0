package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"time-nest/backend/internal/models"
	"time-nest/backend/testutil"
)

type itemResponse struct {
	Item models.Task `json:"item"`
}

type itemsResponse struct {
	Items []models.Task `json:"items"`
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func login(t *testing.T, env *testutil.TestEnv, email string) string {
	t.Helper()
	token, err := env.LoginAndGetToken(t, email, "Test User")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	return token
}

func TestPing_NoAuthRequired(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	resp := env.Do(t, http.MethodGet, "/api/tasks/ping", "", nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"message":"tasks ok"}`, resp.Body.String())
}

func TestTasks_RequireAuthentication(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		header string
	}{
		{"一覧 ヘッダー無し", http.MethodGet, "/api/tasks", ""},
		{"作成 ヘッダー無し", http.MethodPost, "/api/tasks", ""},
		{"更新 ヘッダー無し", http.MethodPut, "/api/tasks/abc", ""},
		{"削除 ヘッダー無し", http.MethodDelete, "/api/tasks/abc", ""},
		{"Bearer以外", http.MethodGet, "/api/tasks", "Basic abc"},
		{"不正なトークン", http.MethodGet, "/api/tasks", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(tt.method, tt.path, `{}`)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp := serve(env, req)
			assert.Equal(t, http.StatusUnauthorized, resp.Code)
			assert.NotEmpty(t, decode[errorResponse](t, resp.Body.Bytes()).Error)
		})
	}
}

func TestCreateTask_Success(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	token := login(t, env, "alice@example.com")

	resp := env.Do(t, http.MethodPost, "/api/tasks", token, map[string]any{
		"title":       "  Write report  ",
		"description": "quarterly",
		"priority":    "high",
		"due_date":    "2025-03-01",
		"due_time":    "14:30",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	task := decode[itemResponse](t, resp.Body.Bytes()).Item
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Write report", task.Title)
	require.NotNil(t, task.Description)
	assert.Equal(t, "quarterly", *task.Description)
	require.NotNil(t, task.Priority)
	assert.Equal(t, models.PriorityHigh, *task.Priority)
	require.NotNil(t, task.DueDate)
	assert.True(t, task.DueDate.Equal(time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)))
	require.NotNil(t, task.DueTime)
	assert.Equal(t, "14:30", *task.DueTime)
	assert.False(t, task.Completed)
	assert.NotZero(t, task.CreatedAt)
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)
}

func TestCreateTask_TrailingSlashAndIgnoresCompleted(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	token := login(t, env, "alice@example.com")

	task := env.CreateTestTask(t, token, map[string]any{"title": "Minimal", "completed": true})

	assert.Equal(t, "Minimal", task.Title)
	assert.False(t, task.Completed)
	assert.Nil(t, task.Description)
	assert.Nil(t, task.Priority)
	assert.Nil(t, task.DueDate)
	assert.Nil(t, task.DueTime)
}

func TestCreateTask_ValidationErrors(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	token := login(t, env, "alice@example.com")

	tests := []struct {
		name      string
		body      any
		wantError string
		wantField string
	}{
		{"タイトル無し", map[string]any{"description": "x"}, "Title is required", "title"},
		{"空白のみのタイトル", map[string]any{"title": "   "}, "Title is required", "title"},
		{"不正な優先度", map[string]any{"title": "t", "priority": "urgent"}, "", "priority"},
		{"不正な期限日", map[string]any{"title": "t", "due_date": "tomorrow"}, "Invalid due_date format", "due_date"},
		{"不正な期限時刻", map[string]any{"title": "t", "due_date": "2025-03-01", "due_time": "25:99"}, "Invalid due_date or due_time format", "due_time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.Do(t, http.MethodPost, "/api/tasks", token, tt.body)
			require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

			body := decode[errorResponse](t, resp.Body.Bytes())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body.Error)
			}
			assert.Contains(t, body.Fields, tt.wantField)
		})
	}
}

func TestCreateTask_InvalidPayload(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	token := login(t, env, "alice@example.com")

	for _, body := range []string{`not json`, `[1,2]`, `{"title": 5}`} {
		resp := env.Do(t, http.MethodPost, "/api/tasks", token, body)
		assert.Equal(t, http.StatusBadRequest, resp.Code, body)
		assert.JSONEq(t, `{"error":"Invalid request payload"}`, resp.Body.String())
	}
}

func TestListTasks_NewestFirstAndScopedToUser(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	alice := login(t, env, "alice@example.com")
	bob := login(t, env, "bob@example.com")

	env.CreateTestTask(t, alice, map[string]any{"title": "first"})
	time.Sleep(2 * time.Millisecond)
	env.CreateTestTask(t, alice, map[string]any{"title": "second"})
	env.CreateTestTask(t, bob, map[string]any{"title": "bob's"})

	resp := env.Do(t, http.MethodGet, "/api/tasks/", alice, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	items := decode[itemsResponse](t, resp.Body.Bytes()).Items
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].Title)
	assert.Equal(t, "first", items[1].Title)
}

func TestListTasks_EmptyIsArray(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	token := login(t, env, "alice@example.com")

	resp := env.Do(t, http.MethodGet, "/api/tasks", token, nil)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"items":[]}`, resp.Body.String())
}

func TestUpdateTask_PartialUpdate(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	token := login(t, env, "alice@example.com")
	created := env.CreateTestTask(t, token, map[string]any{
		"title":       "Original",
		"description": "keep me",
		"priority":    "low",
	})

	resp := env.Do(t, http.MethodPut, "/api/tasks/"+created.ID, token, map[string]any{
		"completed": true,
		"priority":  nil,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	updated := decode[itemResponse](t, resp.Body.Bytes()).Item
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Original", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "keep me", *updated.Description)
	assert.Nil(t, updated.Priority)
	assert.True(t, updated.Completed)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
}

func TestUpdateTask_DueTimeMergesWithStoredDate(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	token := login(t, env, "alice@example.com")
	created := env.CreateTestTask(t, token, map[string]any{"title": "t", "due_date": "2025-03-01"})

	resp := env.Do(t, http.MethodPut, "/api/tasks/"+created.ID, token, map[string]any{
		"due_date": "2025-04-02",
		"due_time": "09:15",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	updated := decode[itemResponse](t, resp.Body.Bytes()).Item
	require.NotNil(t, updated.DueDate)
	assert.True(t, updated.DueDate.Equal(time.Date(2025, 4, 2, 9, 15, 0, 0, time.UTC)))
	require.NotNil(t, updated.DueTime)
	assert.Equal(t, "09:15", *updated.DueTime)

	resp = env.Do(t, http.MethodPut, "/api/tasks/"+created.ID, token, map[string]any{"due_date": nil})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	cleared := decode[itemResponse](t, resp.Body.Bytes()).Item
	assert.Nil(t, cleared.DueDate)
}

func TestUpdateTask_Errors(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	alice := login(t, env, "alice@example.com")
	bob := login(t, env, "bob@example.com")
	task := env.CreateTestTask(t, alice, map[string]any{"title": "mine"})

	tests := []struct {
		name     string
		token    string
		id       string
		body     any
		wantCode int
		wantBody string
	}{
		{"空の更新", alice, task.ID, map[string]any{}, http.StatusBadRequest, "No valid fields to update"},
		{"未知のフィールドのみ", alice, task.ID, map[string]any{"user_id": "x"}, http.StatusBadRequest, "No valid fields to update"},
		{"空のタイトル", alice, task.ID, map[string]any{"title": " "}, http.StatusBadRequest, "Title cannot be empty"},
		{"completedがnull", alice, task.ID, map[string]any{"completed": nil}, http.StatusBadRequest, "completed must be a boolean"},
		{"存在しないID", alice, "000000000000000000000000", map[string]any{"title": "x"}, http.StatusNotFound, "Task not found"},
		{"不正なID", alice, "not-an-id", map[string]any{"title": "x"}, http.StatusNotFound, "Task not found"},
		{"他人のタスク", bob, task.ID, map[string]any{"title": "stolen"}, http.StatusNotFound, "Task not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.Do(t, http.MethodPut, "/api/tasks/"+tt.id, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, resp.Code, resp.Body.String())
			assert.Equal(t, tt.wantBody, decode[errorResponse](t, resp.Body.Bytes()).Error)
		})
	}

	// 他人による更新は元のタスクに影響しない
	resp := env.Do(t, http.MethodGet, "/api/tasks", alice, nil)
	items := decode[itemsResponse](t, resp.Body.Bytes()).Items
	require.Len(t, items, 1)
	assert.Equal(t, "mine", items[0].Title)
}

func TestDeleteTask(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	alice := login(t, env, "alice@example.com")
	bob := login(t, env, "bob@example.com")
	task := env.CreateTestTask(t, alice, map[string]any{"title": "to delete"})

	resp := env.Do(t, http.MethodDelete, "/api/tasks/"+task.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = env.Do(t, http.MethodDelete, "/api/tasks/"+task.ID, alice, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"deleted","id":"`+task.ID+`"}`, resp.Body.String())

	resp = env.Do(t, http.MethodDelete, "/api/tasks/"+task.ID, alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.JSONEq(t, `{"error":"Task not found"}`, resp.Body.String())
}
