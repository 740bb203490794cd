package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskly/taskly-be/internal/auth"
	"github.com/taskly/taskly-be/internal/database"
	"github.com/taskly/taskly-be/internal/services"
)

type noopMailer struct{}

func (noopMailer) SendWelcome(email, name string)  {}
func (noopMailer) SendFarewell(email, name string) {}

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	tokens := auth.NewTokenManager("test-secret")
	userService := services.NewUserService(db, noopMailer{})
	taskService := services.NewTaskService(db)
	return NewRouter([]string{"http://localhost:3000"}, tokens, userService, taskService)
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

type session struct {
	userID string
	token  string
}

func signup(t *testing.T, router http.Handler, name, email string) session {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/users", "", map[string]any{
		"name": name, "email": email, "password": "longenough1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	user := body["user"].(map[string]any)
	return session{userID: user["id"].(string), token: body["token"].(string)}
}

func TestSignup(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/users", "", map[string]any{
		"name": "Ann", "email": "ann@x.com", "password": "longenough1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["token"])

	user := body["user"].(map[string]any)
	assert.Equal(t, "Ann", user["name"])
	assert.Equal(t, "ann@x.com", user["email"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "tokens")
	assert.NotContains(t, user, "avatar")
}

func TestSignupValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/users", "", map[string]any{
		"name": "Ann", "email": "ann@x.com", "password": "Password1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMeRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/users/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Please authenticate.", decodeBody(t, rec)["error"])

	sess := signup(t, router, "Ann", "ann@x.com")
	rec = doJSON(t, router, http.MethodGet, "/users/me", sess.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sess.userID, decodeBody(t, rec)["id"])
}

func TestPatchMeRejectsUnknownField(t *testing.T) {
	router := newTestRouter(t)
	sess := signup(t, router, "Ann", "ann@x.com")

	rec := doJSON(t, router, http.MethodPatch, "/users/me", sess.token, map[string]any{
		"name": "Bea", "location": "nowhere",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid Updates", decodeBody(t, rec)["error"])

	// User is untouched
	rec = doJSON(t, router, http.MethodGet, "/users/me", sess.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ann", decodeBody(t, rec)["name"])
}

func TestLogin(t *testing.T) {
	router := newTestRouter(t)
	signup(t, router, "Ann", "ann@x.com")

	rec := doJSON(t, router, http.MethodPost, "/users/login", "", map[string]any{
		"email": "ann@x.com", "password": "longenough1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["token"])

	// Wrong password and unknown email fail identically
	rec = doJSON(t, router, http.MethodPost, "/users/login", "", map[string]any{
		"email": "ann@x.com", "password": "wrongwrong1",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Unable to login", decodeBody(t, rec)["error"])

	rec = doJSON(t, router, http.MethodPost, "/users/login", "", map[string]any{
		"email": "nobody@x.com", "password": "longenough1",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Unable to login", decodeBody(t, rec)["error"])
}

func TestLogoutInvalidatesOnlyThatToken(t *testing.T) {
	router := newTestRouter(t)
	sess := signup(t, router, "Ann", "ann@x.com")

	rec := doJSON(t, router, http.MethodPost, "/users/login", "", map[string]any{
		"email": "ann@x.com", "password": "longenough1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeBody(t, rec)["token"].(string)

	rec = doJSON(t, router, http.MethodPost, "/users/logout", sess.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/users/me", sess.token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/users/me", second, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutAllInvalidatesEverySession(t *testing.T) {
	router := newTestRouter(t)
	sess := signup(t, router, "Ann", "ann@x.com")

	rec := doJSON(t, router, http.MethodPost, "/users/login", "", map[string]any{
		"email": "ann@x.com", "password": "longenough1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeBody(t, rec)["token"].(string)

	rec = doJSON(t, router, http.MethodPost, "/users/logoutAll", sess.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, token := range []string{sess.token, second} {
		rec = doJSON(t, router, http.MethodGet, "/users/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestDeleteMe(t *testing.T) {
	router := newTestRouter(t)
	sess := signup(t, router, "Ann", "ann@x.com")

	rec := doJSON(t, router, http.MethodDelete, "/users/me", sess.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sess.userID, decodeBody(t, rec)["id"])

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/users/%s", sess.userID), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskLifecycle(t *testing.T) {
	router := newTestRouter(t)
	sess := signup(t, router, "Ann", "ann@x.com")

	rec := doJSON(t, router, http.MethodPost, "/tasks", sess.token, map[string]any{"description": "buy milk"})
	require.Equal(t, http.StatusCreated, rec.Code)
	task := decodeBody(t, rec)
	assert.Equal(t, "buy milk", task["description"])
	assert.Equal(t, false, task["completed"])
	assert.Equal(t, sess.userID, task["owner"])
	taskID := task["id"].(string)

	// Creating a task requires a session
	rec = doJSON(t, router, http.MethodPost, "/tasks", "", map[string]any{"description": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// PATCH by id is open, per the documented contract
	rec = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/tasks/%s", taskID), "", map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["completed"])

	rec = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/tasks/%s", taskID), "", map[string]any{"owner": "hijack"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid Updates", decodeBody(t, rec)["error"])

	// DELETE by id is open too and returns the removed task
	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/tasks/%s", taskID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, taskID, decodeBody(t, rec)["id"])

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/tasks/%s", taskID), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTaskScopedToOwner(t *testing.T) {
	router := newTestRouter(t)
	ann := signup(t, router, "Ann", "ann@x.com")
	bob := signup(t, router, "Bob", "bob@x.com")

	rec := doJSON(t, router, http.MethodPost, "/tasks", ann.token, map[string]any{"description": "private"})
	require.Equal(t, http.StatusCreated, rec.Code)
	taskID := decodeBody(t, rec)["id"].(string)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/tasks/%s", taskID), ann.token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/tasks/%s", taskID), bob.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMyTasksFilterSortPage(t *testing.T) {
	router := newTestRouter(t)
	sess := signup(t, router, "Ann", "ann@x.com")

	for i, completed := range []bool{false, true, false, true} {
		rec := doJSON(t, router, http.MethodPost, "/tasks", sess.token, map[string]any{
			"description": fmt.Sprintf("task %d", i), "completed": completed,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	listTasks := func(path string) []map[string]any {
		rec := doJSON(t, router, http.MethodGet, path, sess.token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var tasks []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
		return tasks
	}

	tasks := listTasks("/tasks/me?completed=true")
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, true, task["completed"])
	}

	// Any non-"true" value selects incomplete tasks
	tasks = listTasks("/tasks/me?completed=whatever")
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, false, task["completed"])
	}

	tasks = listTasks("/tasks/me?limit=2&skip=1")
	require.Len(t, tasks, 2)
	assert.Equal(t, "task 1", tasks[0]["description"])
	assert.Equal(t, "task 2", tasks[1]["description"])

	tasks = listTasks("/tasks/me?sortBy=description:desc")
	require.Len(t, tasks, 4)
	assert.Equal(t, "task 3", tasks[0]["description"])

	// Non-numeric limit and skip are ignored
	tasks = listTasks("/tasks/me?limit=abc&skip=xyz")
	assert.Len(t, tasks, 4)
}

func avatarUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("avatar", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAvatarLifecycle(t *testing.T) {
	router := newTestRouter(t)
	sess := signup(t, router, "Ann", "ann@x.com")

	body, contentType := avatarUpload(t, "photo.png", testPNG(t, 600, 400))
	req := httptest.NewRequest(http.MethodPost, "/users/me/avatar", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+sess.token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Fetch comes back as a 250x250 PNG no matter the input dimensions
	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/users/%s/avatar", sess.userID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 250, img.Bounds().Dx())
	assert.Equal(t, 250, img.Bounds().Dy())

	rec = doJSON(t, router, http.MethodDelete, "/users/me/avatar", sess.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/users/%s/avatar", sess.userID), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAvatarRejectsBadExtension(t *testing.T) {
	router := newTestRouter(t)
	sess := signup(t, router, "Ann", "ann@x.com")

	body, contentType := avatarUpload(t, "notes.txt", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/users/me/avatar", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+sess.token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserMutationByIDIsOpen(t *testing.T) {
	router := newTestRouter(t)
	sess := signup(t, router, "Ann", "ann@x.com")

	// PATCH and DELETE by id carry no auth, matching the documented contract
	rec := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/users/%s", sess.userID), "", map[string]any{"name": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Renamed", decodeBody(t, rec)["name"])

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/users/%s", sess.userID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sess.userID, decodeBody(t, rec)["id"])

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/users/%s", sess.userID), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
