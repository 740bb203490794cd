package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taskly/taskly-be/internal/apperror"
	"github.com/taskly/taskly-be/internal/auth"
	"github.com/taskly/taskly-be/internal/services"
)

// TaskHandler handles HTTP requests for task management.
type TaskHandler struct {
	service services.TaskServiceProvider
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service services.TaskServiceProvider) *TaskHandler {
	return &TaskHandler{service: service}
}

// Create handles new task creation. The owner is always the requester.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.NewAuth("Please authenticate.", nil))
		return
	}

	var input services.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, r, apperror.NewValidation("Invalid request body"))
		return
	}

	task, err := h.service.CreateTask(user.ID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// GetAll handles listing every task.
func (h *TaskHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.GetAllTasks()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(tasks))
}

// GetMine lists the authenticated user's tasks.
//
// GET /tasks/me?completed=true
// GET /tasks/me?limit=5&skip=2
// GET /tasks/me?sortBy=createdAt:desc
func (h *TaskHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.NewAuth("Please authenticate.", nil))
		return
	}

	tasks, err := h.service.ListTasksByOwner(user.ID, parseTaskQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(tasks))
}

// Get retrieves one of the authenticated user's tasks by id. Tasks owned by
// someone else read as not found.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.NewAuth("Please authenticate.", nil))
		return
	}

	task, err := h.service.GetTaskForOwner(chi.URLParam(r, "id"), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Update handles a partial update of a task by id.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, r, apperror.NewValidation("Invalid request body"))
		return
	}

	task, err := h.service.UpdateTask(chi.URLParam(r, "id"), updates)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete handles task deletion by id, returning the removed task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.DeleteTask(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// parseTaskQuery reads the listing options from the query string. A present
// completed parameter equal to "true" filters to completed tasks and any
// other value filters to incomplete ones; only absence means no filter.
// Non-numeric limit and skip are treated as absent.
func parseTaskQuery(r *http.Request) services.TaskQuery {
	values := r.URL.Query()
	query := services.TaskQuery{Limit: -1}

	if values.Has("completed") {
		completed := values.Get("completed") == "true"
		query.Completed = &completed
	}

	if sortBy := values.Get("sortBy"); sortBy != "" {
		parts := strings.SplitN(sortBy, ":", 2)
		query.SortBy = parts[0]
		query.SortDesc = len(parts) == 2 && parts[1] == "desc"
	}

	if limit, err := strconv.Atoi(values.Get("limit")); err == nil && limit > 0 {
		query.Limit = limit
	}
	if skip, err := strconv.Atoi(values.Get("skip")); err == nil && skip > 0 {
		query.Skip = skip
	}
	return query
}

// emptyIfNil keeps empty listings serializing as [] instead of null.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
