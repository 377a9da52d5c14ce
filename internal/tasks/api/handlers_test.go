package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkarpov/taskboard/internal/event"
	"github.com/dkarpov/taskboard/internal/tasks/api"
	"github.com/dkarpov/taskboard/internal/tasks/config"
	"github.com/dkarpov/taskboard/internal/tasks/models"
	"github.com/dkarpov/taskboard/internal/tasks/service"
	"github.com/dkarpov/taskboard/internal/tasks/storage"
	"github.com/dkarpov/taskboard/internal/token"
)

const testSecret = "test-secret"

type memStore struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]*models.Task
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, tasks: make(map[int64]*models.Task)}
}

func (s *memStore) CreateTask(ctx context.Context, ownerID int64, fields models.TaskFields) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := &models.Task{
		ID:        s.nextID,
		Text:      fields.Text,
		Date:      fields.Date,
		Tags:      append([]string(nil), fields.Tags...),
		OwnerID:   ownerID,
		CreatedAt: time.Now(),
	}
	s.tasks[task.ID] = task
	s.nextID++

	cp := *task
	return &cp, nil
}

func (s *memStore) ListTasks(ctx context.Context, ownerID int64) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Task, 0)
	for _, task := range s.tasks {
		if task.OwnerID == ownerID {
			cp := *task
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) UpdateTask(ctx context.Context, ownerID, taskID int64, patch models.TaskPatch) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok || task.OwnerID != ownerID {
		return nil, storage.ErrTaskNotFound
	}

	if patch.Text != nil {
		task.Text = *patch.Text
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	if patch.Date != nil {
		task.Date = *patch.Date
	}
	if patch.Tags != nil {
		task.Tags = append([]string(nil), patch.Tags...)
	}

	cp := *task
	return &cp, nil
}

func (s *memStore) DeleteTask(ctx context.Context, ownerID, taskID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok || task.OwnerID != ownerID {
		return storage.ErrTaskNotFound
	}
	delete(s.tasks, taskID)
	return nil
}

type dropPublisher struct{}

func (dropPublisher) Publish(ctx context.Context, msg *event.Message) error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Params:      config.Params{Text: config.MinMaxLen{Min: 1, Max: 500}},
		TokenSecret: testSecret,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := service.NewTasksService(cfg, log, newMemStore(), dropPublisher{}, nil)
	verifier := token.NewVerifier(token.NewCodec(testSecret, time.Hour))
	router := api.NewRouter(svc, verifier, log, false)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func issueToken(t *testing.T, secret string, userID int64, email string) string {
	t.Helper()
	raw, err := token.NewCodec(secret, time.Hour).Issue(userID, email)
	require.NoError(t, err)
	return raw
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, bearer string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeTask(t *testing.T, resp *http.Response) models.Task {
	t.Helper()
	var task models.Task
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&task))
	return task
}

func TestMissingCredential(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInvalidCredential(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/tasks", "garbage", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCredentialSignedWithDifferentSecret(t *testing.T) {
	srv := newTestServer(t)

	foreign := issueToken(t, "some-other-secret", 1, "u1@example.com")
	resp := doRequest(t, srv, http.MethodGet, "/tasks", foreign, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateAndListScopedByOwner(t *testing.T) {
	srv := newTestServer(t)
	u1 := issueToken(t, testSecret, 1, "u1@example.com")
	u2 := issueToken(t, testSecret, 2, "u2@example.com")

	resp := doRequest(t, srv, http.MethodPost, "/tasks", u1, map[string]any{
		"text": "Buy groceries",
		"date": "2025-11-05",
		"tags": []string{"work"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeTask(t, resp)
	assert.NotZero(t, created.ID)
	assert.Equal(t, int64(1), created.OwnerID)
	assert.False(t, created.Completed)

	resp = doRequest(t, srv, http.MethodGet, "/tasks", u1, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mine []models.Task
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "Buy groceries", mine[0].Text)

	resp = doRequest(t, srv, http.MethodGet, "/tasks", u2, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var theirs []models.Task
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&theirs))
	assert.Empty(t, theirs)
}

func TestClientSuppliedOwnerIgnored(t *testing.T) {
	srv := newTestServer(t)
	u1 := issueToken(t, testSecret, 1, "u1@example.com")

	resp := doRequest(t, srv, http.MethodPost, "/tasks", u1, map[string]any{
		"text":    "sneaky",
		"ownerId": 999,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeTask(t, resp)
	assert.Equal(t, int64(1), created.OwnerID)
}

func TestCreateEmptyText(t *testing.T) {
	srv := newTestServer(t)
	u1 := issueToken(t, testSecret, 1, "u1@example.com")

	resp := doRequest(t, srv, http.MethodPost, "/tasks", u1, map[string]any{"text": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPost, "/tasks", u1, map[string]any{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateForeignOrMissingTask(t *testing.T) {
	srv := newTestServer(t)
	u1 := issueToken(t, testSecret, 1, "u1@example.com")
	u2 := issueToken(t, testSecret, 2, "u2@example.com")

	resp := doRequest(t, srv, http.MethodPost, "/tasks", u1, map[string]any{"text": "mine"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeTask(t, resp)

	// someone else's record answers exactly like a missing one
	resp = doRequest(t, srv, http.MethodPut, fmt.Sprintf("/tasks/%d", created.ID), u2, map[string]any{"completed": true})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPut, "/tasks/424242", u1, map[string]any{"completed": true})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateTask(t *testing.T) {
	srv := newTestServer(t)
	u1 := issueToken(t, testSecret, 1, "u1@example.com")

	resp := doRequest(t, srv, http.MethodPost, "/tasks", u1, map[string]any{"text": "toggle me"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeTask(t, resp)

	resp = doRequest(t, srv, http.MethodPut, fmt.Sprintf("/tasks/%d", created.ID), u1, map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := decodeTask(t, resp)
	assert.True(t, updated.Completed)
	assert.Equal(t, "toggle me", updated.Text)
}

func TestDeleteTask(t *testing.T) {
	srv := newTestServer(t)
	u1 := issueToken(t, testSecret, 1, "u1@example.com")
	u2 := issueToken(t, testSecret, 2, "u2@example.com")

	resp := doRequest(t, srv, http.MethodPost, "/tasks", u1, map[string]any{"text": "delete me"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeTask(t, resp)

	resp = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/tasks/%d", created.ID), u2, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/tasks/%d", created.ID), u1, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/tasks/%d", created.ID), u1, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInvalidTaskID(t *testing.T) {
	srv := newTestServer(t)
	u1 := issueToken(t, testSecret, 1, "u1@example.com")

	resp := doRequest(t, srv, http.MethodDelete, "/tasks/not-a-number", u1, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInvalidBody(t *testing.T) {
	srv := newTestServer(t)
	u1 := issueToken(t, testSecret, 1, "u1@example.com")

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/tasks", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+u1)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
