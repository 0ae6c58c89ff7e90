package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/task-history/internal/httpapi"
	tasklog "github.com/JamesPrial/task-history/internal/logger"
	"github.com/JamesPrial/task-history/internal/metrics"
	"github.com/JamesPrial/task-history/internal/service"
	"github.com/JamesPrial/task-history/internal/storage"
	"github.com/JamesPrial/task-history/internal/task"
)

var fixedNow = time.Date(2030, time.June, 15, 10, 0, 0, 0, time.UTC)

const tasksPath = "/api/v1/tasks"

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Code    int             `json:"code"`
}

type errorEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Data    []any  `json:"data"`
}

func newTestRouter(t *testing.T, opts ...httpapi.Option) http.Handler {
	t.Helper()
	svc := service.New(storage.NewMemoryStore(), service.WithClock(func() time.Time { return fixedNow }))
	return httpapi.NewRouter(svc, opts...)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeSuccess(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func createTask(t *testing.T, h http.Handler, body string) task.Task {
	t.Helper()
	rec := do(t, h, http.MethodPost, tasksPath, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created task.Task
	decodeSuccess(t, rec, &created)
	return created
}

const validBody = `{"title":"Write report","status":"Pending","dueDate":"2031-01-01","tags":["work"]}`

// ---------------------------------------------------------------------------
// Service routes
// ---------------------------------------------------------------------------

func TestRouter_Banner(t *testing.T) {
	t.Parallel()
	rec := do(t, newTestRouter(t), http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, httpapi.Banner, rec.Body.String())
}

func TestRouter_Healthz(t *testing.T) {
	t.Parallel()
	rec := do(t, newTestRouter(t), http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	h := newTestRouter(t, httpapi.WithMetrics(metrics.New(reg), reg))

	createTask(t, h, validBody)
	rec := do(t, h, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tasks_http_request_duration_seconds")
	assert.Contains(t, rec.Body.String(), `route="/api/v1/tasks`)
}

func TestRouter_MetricsNotMountedWithoutGatherer(t *testing.T) {
	t.Parallel()
	rec := do(t, newTestRouter(t), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCreate_Success(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, tasksPath, validBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var created task.Task
	env := decodeSuccess(t, rec, &created)
	assert.Equal(t, "Data created successfully", env.Message)
	assert.Equal(t, http.StatusCreated, env.Code)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Write report", created.Title)
	assert.Equal(t, task.DefaultPriority, created.Priority)
	require.Len(t, created.History, 1)
	assert.Equal(t, task.ChangeTaskCreated, created.History[0].ChangeType)
}

func TestCreate_Rejected(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{name: "missing title", body: `{"status":"Pending","dueDate":"2031-01-01"}`, wantError: "title is required and cannot be empty."},
		{name: "short title", body: `{"title":"ab","status":"Pending","dueDate":"2031-01-01"}`, wantError: "title is required and must be at least 3 characters long."},
		{name: "past due date", body: `{"title":"Write report","status":"Pending","dueDate":"2020-01-01"}`, wantError: "dueDate cannot be in the past."},
		{name: "malformed json", body: `{"title":`, wantError: "body is not valid JSON."},
		{name: "array body", body: `[1,2]`, wantError: "body must be a JSON object."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := do(t, newTestRouter(t), http.MethodPost, tasksPath, tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			env := decodeError(t, rec)
			assert.Equal(t, "Invalid data", env.Message)
			assert.Equal(t, tt.wantError, env.Error)
			assert.NotNil(t, env.Data)
			assert.Empty(t, env.Data)
		})
	}
}

func TestCreate_WrongContentType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		method      string
		path        string
		contentType string
	}{
		{name: "text body on create", method: http.MethodPost, path: tasksPath, contentType: "text/plain"},
		{name: "missing content type", method: http.MethodPost, path: tasksPath},
		{name: "form body on update", method: http.MethodPut, path: tasksPath + "/00000000-0000-0000-0000-000000000000", contentType: "application/x-www-form-urlencoded"},
		{name: "malformed content type", method: http.MethodPost, path: tasksPath, contentType: "application/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(validBody))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			newTestRouter(t).ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			env := decodeError(t, rec)
			assert.Equal(t, "Unsupported media type", env.Message)
			assert.Equal(t, "Content-Type must be application/json", env.Error)
			assert.NotNil(t, env.Data)
			assert.Empty(t, env.Data)
		})
	}
}

func TestCreate_ContentTypeWithCharset(t *testing.T) {
	t.Parallel()
	req := httptest.NewRequest(http.MethodPost, tasksPath, strings.NewReader(validBody))
	req.Header.Set("Content-Type", "Application/JSON; charset=utf-8")
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestCreate_BodyTooLarge(t *testing.T) {
	t.Parallel()
	body := `{"title":"` + strings.Repeat("x", 2<<20) + `"}`
	rec := do(t, newTestRouter(t), http.MethodPost, tasksPath, body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "body is too large.", decodeError(t, rec).Error)
}

// ---------------------------------------------------------------------------
// Read
// ---------------------------------------------------------------------------

func TestGet(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)
	created := createTask(t, h, validBody)

	t.Run("found", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, tasksPath+"/"+created.ID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var got task.Task
		env := decodeSuccess(t, rec, &got)
		assert.Equal(t, "Data get successfully", env.Message)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, tasksPath+"/00000000-0000-0000-0000-000000000000", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		env := decodeError(t, rec)
		assert.Equal(t, "Data not found", env.Message)
		assert.Contains(t, env.Error, "not found")
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, tasksPath+"/not-a-uuid", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestList_StatusFilter(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)
	createTask(t, h, validBody)
	createTask(t, h, `{"title":"Ship release","status":"In Progress","dueDate":"2031-02-01"}`)

	t.Run("all", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, tasksPath, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var got []task.Task
		decodeSuccess(t, rec, &got)
		assert.Len(t, got, 2)
	})

	t.Run("filtered", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, tasksPath+"?status=In+Progress", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var got []task.Task
		decodeSuccess(t, rec, &got)
		require.Len(t, got, 1)
		assert.Equal(t, "Ship release", got[0].Title)
	})

	t.Run("unknown status", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, tasksPath+"?status=Archived", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "status must be one of: Pending, In Progress, Completed.", decodeError(t, rec).Error)
	})
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestUpdate(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)
	created := createTask(t, h, validBody)
	path := tasksPath + "/" + created.ID

	t.Run("change recorded", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, path, `{"title":"Write final report"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var got task.Task
		env := decodeSuccess(t, rec, &got)
		assert.Equal(t, "Data updated successfully", env.Message)
		assert.Equal(t, "Write final report", got.Title)
		require.Len(t, got.History, 2)
		assert.Equal(t, task.FieldTitle, got.History[1].FieldChanged)
	})

	t.Run("no-op keeps history", func(t *testing.T) {
		rec := do(t, h, http.MethodPatch, path, `{"title":"Write final report"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var got task.Task
		decodeSuccess(t, rec, &got)
		assert.Len(t, got.History, 2)
	})

	t.Run("invalid value", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, path, `{"priority":"Urgent"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid data", decodeError(t, rec).Message)
	})

	t.Run("completed is final", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, path, `{"status":"Completed"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = do(t, h, http.MethodPut, path, `{"status":"Pending"}`)
		require.Equal(t, http.StatusConflict, rec.Code)
		env := decodeError(t, rec)
		assert.Equal(t, "Invalid state transition", env.Message)
		assert.Contains(t, env.Error, "Completed")
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, tasksPath+"/00000000-0000-0000-0000-000000000000", `{"title":"Anything"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestDelete(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)
	created := createTask(t, h, validBody)
	path := tasksPath + "/" + created.ID

	rec := do(t, h, http.MethodDelete, path, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())

	rec = do(t, h, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---------------------------------------------------------------------------
// Store failures
// ---------------------------------------------------------------------------

type failingService struct {
	err error
}

func (f failingService) CreateTask(context.Context, task.Input) (task.Task, error) {
	return task.Task{}, f.err
}

func (f failingService) UpdateTask(context.Context, string, task.Input) (task.Task, error) {
	return task.Task{}, f.err
}

func (f failingService) GetTask(context.Context, string) (task.Task, error) {
	return task.Task{}, f.err
}

func (f failingService) ListTasks(context.Context, service.ListFilter) ([]task.Task, error) {
	return nil, f.err
}

func (f failingService) DeleteTask(context.Context, string) error {
	return f.err
}

func TestStoreFailure_HidesDetail(t *testing.T) {
	t.Parallel()
	var logs bytes.Buffer
	logger := tasklog.New("debug", "json", &logs)
	h := httpapi.NewRouter(failingService{err: errors.New("dial tcp 10.0.0.5:5432: connection refused")}, httpapi.WithLogger(logger))

	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		wantMessage string
	}{
		{name: "list", method: http.MethodGet, path: tasksPath, wantMessage: "Error getting data"},
		{name: "get", method: http.MethodGet, path: tasksPath + "/abc", wantMessage: "Error getting data"},
		{name: "create", method: http.MethodPost, path: tasksPath, body: validBody, wantMessage: "Error creating data"},
		{name: "update", method: http.MethodPut, path: tasksPath + "/abc", body: `{"title":"Anything"}`, wantMessage: "Error updating data"},
		{name: "delete", method: http.MethodDelete, path: tasksPath + "/abc", wantMessage: "Error deleting data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusInternalServerError, rec.Code)
			env := decodeError(t, rec)
			assert.Equal(t, tt.wantMessage, env.Message)
			assert.Equal(t, "Internal Server Error", env.Error)
			assert.NotContains(t, rec.Body.String(), "10.0.0.5")
		})
	}
	assert.Contains(t, logs.String(), "connection refused")
}
