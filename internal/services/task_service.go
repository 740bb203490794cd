package services

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskly/taskly-be/internal/apperror"
	"github.com/taskly/taskly-be/internal/models"
)

// TaskInput holds the accepted fields for task creation.
type TaskInput struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// TaskQuery describes the filter/sort/pagination options for listing a
// user's tasks. Limit < 0 means no limit, Skip <= 0 means no offset.
type TaskQuery struct {
	Completed *bool
	SortBy    string
	SortDesc  bool
	Limit     int
	Skip      int
}

// taskUpdatableFields is the whitelist for PATCH operations on tasks.
var taskUpdatableFields = map[string]bool{
	"description": true,
	"completed":   true,
}

// taskSortColumns maps the JSON field names accepted in sortBy to real
// columns. Anything else sorts by nothing.
var taskSortColumns = map[string]string{
	"description": "description",
	"completed":   "completed",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
}

// TaskServiceProvider defines the interface for task services.
type TaskServiceProvider interface {
	CreateTask(ownerID string, input TaskInput) (models.Task, error)
	GetAllTasks() ([]models.Task, error)
	GetTaskForOwner(id, ownerID string) (models.Task, error)
	ListTasksByOwner(ownerID string, query TaskQuery) ([]models.Task, error)
	UpdateTask(id string, updates map[string]any) (models.Task, error)
	DeleteTask(id string) (models.Task, error)
}

// TaskService provides business logic for task management.
type TaskService struct {
	db *sql.DB
}

// NewTaskService creates a new TaskService.
func NewTaskService(db *sql.DB) *TaskService {
	return &TaskService{db: db}
}

const taskColumns = "id, description, completed, owner, created_at, updated_at"

func scanTask(row rowScanner) (models.Task, error) {
	var task models.Task
	err := row.Scan(&task.ID, &task.Description, &task.Completed, &task.Owner, &task.CreatedAt, &task.UpdatedAt)
	return task, err
}

// CreateTask persists a new task owned by the requesting user.
func (s *TaskService) CreateTask(ownerID string, input TaskInput) (models.Task, error) {
	description := strings.TrimSpace(input.Description)
	if fields := validateTaskFields(description); len(fields) > 0 {
		return models.Task{}, apperror.NewValidation("Validation failed", fields...)
	}

	now := time.Now().UTC()
	task := models.Task{
		ID:          uuid.New().String(),
		Description: description,
		Completed:   input.Completed,
		Owner:       ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.Exec(
		"INSERT INTO tasks (id, description, completed, owner, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		task.ID, task.Description, task.Completed, task.Owner, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return models.Task{}, apperror.NewStore("Failed to create task", err)
	}
	return task, nil
}

// GetAllTasks retrieves every task regardless of owner.
func (s *TaskService) GetAllTasks() ([]models.Task, error) {
	rows, err := s.db.Query("SELECT " + taskColumns + " FROM tasks ORDER BY rowid")
	if err != nil {
		return nil, apperror.NewStore("Failed to retrieve tasks", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// GetTaskForOwner retrieves a task by id, scoped to its owner. Another
// user's task reads as not found.
func (s *TaskService) GetTaskForOwner(id, ownerID string) (models.Task, error) {
	row := s.db.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ? AND owner = ?", id, ownerID)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, apperror.NewNotFound("Task not found")
		}
		return models.Task{}, apperror.NewStore("Failed to retrieve task", err)
	}
	return task, nil
}

// ListTasksByOwner retrieves the owner's tasks with the optional completed
// filter, single-field sort and limit/skip pagination.
func (s *TaskService) ListTasksByOwner(ownerID string, query TaskQuery) ([]models.Task, error) {
	sqlQuery := "SELECT " + taskColumns + " FROM tasks WHERE owner = ?"
	args := []any{ownerID}

	if query.Completed != nil {
		sqlQuery += " AND completed = ?"
		args = append(args, *query.Completed)
	}

	order := "rowid"
	if col, ok := taskSortColumns[query.SortBy]; ok {
		order = col
		if query.SortDesc {
			order += " DESC"
		}
	}
	sqlQuery += " ORDER BY " + order

	limit := query.Limit
	if limit < 0 {
		limit = -1 // SQLite: negative limit means unlimited
	}
	skip := query.Skip
	if skip < 0 {
		skip = 0
	}
	sqlQuery += " LIMIT ? OFFSET ?"
	args = append(args, limit, skip)

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, apperror.NewStore("Failed to retrieve tasks", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// UpdateTask applies a partial update restricted to description and
// completed. Any other field rejects the whole update.
func (s *TaskService) UpdateTask(id string, updates map[string]any) (models.Task, error) {
	for key := range updates {
		if !taskUpdatableFields[key] {
			return models.Task{}, apperror.NewValidation("Invalid Updates")
		}
	}

	task, err := s.getTaskByID(id)
	if err != nil {
		return models.Task{}, err
	}

	var fields []apperror.FieldError
	for key, value := range updates {
		switch key {
		case "description":
			str, ok := value.(string)
			if !ok {
				fields = append(fields, apperror.FieldError{Field: "description", Message: "Description must be a string"})
				continue
			}
			task.Description = strings.TrimSpace(str)
		case "completed":
			b, ok := value.(bool)
			if !ok {
				fields = append(fields, apperror.FieldError{Field: "completed", Message: "Completed must be a boolean"})
				continue
			}
			task.Completed = b
		}
	}

	fields = append(fields, validateTaskFields(task.Description)...)
	if len(fields) > 0 {
		return models.Task{}, apperror.NewValidation("Validation failed", fields...)
	}

	task.UpdatedAt = time.Now().UTC()
	_, err = s.db.Exec(
		"UPDATE tasks SET description = ?, completed = ?, updated_at = ? WHERE id = ?",
		task.Description, task.Completed, task.UpdatedAt, task.ID,
	)
	if err != nil {
		return models.Task{}, apperror.NewStore("Failed to update task", err)
	}
	return task, nil
}

// DeleteTask removes a task by id and returns the removed row.
func (s *TaskService) DeleteTask(id string) (models.Task, error) {
	task, err := s.getTaskByID(id)
	if err != nil {
		return models.Task{}, err
	}

	if _, err := s.db.Exec("DELETE FROM tasks WHERE id = ?", id); err != nil {
		return models.Task{}, apperror.NewStore("Failed to delete task", err)
	}
	return task, nil
}

func (s *TaskService) getTaskByID(id string) (models.Task, error) {
	row := s.db.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, apperror.NewNotFound("Task not found")
		}
		return models.Task{}, apperror.NewStore("Failed to retrieve task", err)
	}
	return task, nil
}

func collectTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, apperror.NewStore("Failed to retrieve tasks", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewStore("Failed to retrieve tasks", err)
	}
	return tasks, nil
}
