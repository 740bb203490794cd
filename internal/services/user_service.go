package services

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskly/taskly-be/internal/apperror"
	"github.com/taskly/taskly-be/internal/models"
)

// UserInput holds the accepted fields for user creation.
type UserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Age      int    `json:"age"`
	Password string `json:"password"`
}

// userUpdatableFields is the whitelist for PATCH operations on users.
var userUpdatableFields = map[string]bool{
	"name":     true,
	"age":      true,
	"password": true,
	"email":    true,
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	CreateUser(input UserInput) (models.User, error)
	GetAllUsers() ([]models.User, error)
	GetUserByID(id string) (models.User, error)
	GetUserByCredentials(email, password string) (models.User, error)
	GetUserByToken(userID, token string) (models.User, error)
	UpdateUser(id string, updates map[string]any) (models.User, error)
	DeleteUser(id string, notify bool) (models.User, error)
	AddToken(userID, token string) error
	RemoveToken(userID, token string) error
	ClearTokens(userID string) error
	SetAvatar(userID string, avatar []byte) error
	ClearAvatar(userID string) error
	GetAvatar(userID string) ([]byte, error)
	PruneTokens(olderThan time.Time) (int64, error)
}

// UserService provides business logic for user management.
type UserService struct {
	db     *sql.DB
	emails EmailServiceProvider
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, emails EmailServiceProvider) *UserService {
	return &UserService{db: db, emails: emails}
}

const userColumns = "id, name, email, age, password_hash, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Age, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// CreateUser validates the input, hashes the password and persists a new
// user. A duplicate email fails validation, not conflict, per the API
// contract. The welcome mail is dispatched off the request path.
func (s *UserService) CreateUser(input UserInput) (models.User, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)

	fields := validateUserFields(name, email, input.Age)
	fields = append(fields, validatePassword(input.Password)...)
	if len(fields) > 0 {
		return models.User{}, apperror.NewValidation("Validation failed", fields...)
	}

	taken, err := s.emailTaken(email, "")
	if err != nil {
		return models.User{}, apperror.NewStore("Failed to create user", err)
	}
	if taken {
		return models.User{}, apperror.NewValidation("Validation failed",
			apperror.FieldError{Field: "email", Message: "Email is already in use"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(input.Password)), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, apperror.NewStore("Failed to hash password", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		Age:          input.Age,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.Exec(
		"INSERT INTO users (id, name, email, age, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Email, user.Age, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return models.User{}, apperror.NewStore("Failed to create user", err)
	}

	go s.emails.SendWelcome(user.Email, user.Name)

	return user, nil
}

// GetAllUsers retrieves every user.
func (s *UserService) GetAllUsers() ([]models.User, error) {
	rows, err := s.db.Query("SELECT " + userColumns + " FROM users ORDER BY rowid")
	if err != nil {
		return nil, apperror.NewStore("Failed to retrieve users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, apperror.NewStore("Failed to retrieve users", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewStore("Failed to retrieve users", err)
	}
	return users, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(id string) (models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperror.NewNotFound("User not found")
		}
		return models.User{}, apperror.NewStore("Failed to retrieve user", err)
	}
	return user, nil
}

// GetUserByCredentials verifies a login attempt. An unknown email and a
// wrong password produce the same generic failure so callers cannot probe
// which accounts exist.
func (s *UserService) GetUserByCredentials(email, password string) (models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?", normalizeEmail(email))
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperror.NewForbidden("Unable to login")
		}
		return models.User{}, apperror.NewStore("Failed to retrieve user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, apperror.NewForbidden("Unable to login")
	}
	return user, nil
}

// GetUserByToken retrieves the user whose active token set contains the
// exact token string. Used by the auth middleware.
func (s *UserService) GetUserByToken(userID, token string) (models.User, error) {
	row := s.db.QueryRow(
		"SELECT u.id, u.name, u.email, u.age, u.password_hash, u.created_at, u.updated_at "+
			"FROM users u JOIN user_tokens t ON t.user_id = u.id WHERE u.id = ? AND t.token = ?",
		userID, token,
	)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperror.NewAuth("Please authenticate.", nil)
		}
		return models.User{}, apperror.NewStore("Failed to retrieve user", err)
	}
	return user, nil
}

// UpdateUser applies a partial update. Any field outside the whitelist
// rejects the whole update before anything is written. A new password is
// re-validated and re-hashed.
func (s *UserService) UpdateUser(id string, updates map[string]any) (models.User, error) {
	for key := range updates {
		if !userUpdatableFields[key] {
			return models.User{}, apperror.NewValidation("Invalid Updates")
		}
	}

	user, err := s.GetUserByID(id)
	if err != nil {
		return models.User{}, err
	}

	var fields []apperror.FieldError
	for key, value := range updates {
		switch key {
		case "name":
			str, ok := value.(string)
			if !ok {
				fields = append(fields, apperror.FieldError{Field: "name", Message: "Name must be a string"})
				continue
			}
			user.Name = strings.TrimSpace(str)
		case "email":
			str, ok := value.(string)
			if !ok {
				fields = append(fields, apperror.FieldError{Field: "email", Message: "It is not a valid email."})
				continue
			}
			user.Email = normalizeEmail(str)
		case "age":
			num, ok := value.(float64)
			if !ok {
				fields = append(fields, apperror.FieldError{Field: "age", Message: "Age must be a number"})
				continue
			}
			user.Age = int(num)
		case "password":
			str, ok := value.(string)
			if !ok {
				fields = append(fields, apperror.FieldError{Field: "password", Message: "Password must be a string"})
				continue
			}
			if errs := validatePassword(str); len(errs) > 0 {
				fields = append(fields, errs...)
				continue
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(str)), bcrypt.DefaultCost)
			if err != nil {
				return models.User{}, apperror.NewStore("Failed to hash password", err)
			}
			user.PasswordHash = string(hash)
		}
	}

	fields = append(fields, validateUserFields(user.Name, user.Email, user.Age)...)
	if len(fields) > 0 {
		return models.User{}, apperror.NewValidation("Validation failed", fields...)
	}

	if _, ok := updates["email"]; ok {
		taken, err := s.emailTaken(user.Email, user.ID)
		if err != nil {
			return models.User{}, apperror.NewStore("Failed to update user", err)
		}
		if taken {
			return models.User{}, apperror.NewValidation("Validation failed",
				apperror.FieldError{Field: "email", Message: "Email is already in use"})
		}
	}

	user.UpdatedAt = time.Now().UTC()
	_, err = s.db.Exec(
		"UPDATE users SET name = ?, email = ?, age = ?, password_hash = ?, updated_at = ? WHERE id = ?",
		user.Name, user.Email, user.Age, user.PasswordHash, user.UpdatedAt, user.ID,
	)
	if err != nil {
		return models.User{}, apperror.NewStore("Failed to update user", err)
	}
	return user, nil
}

// DeleteUser removes a user and everything they own in one transaction:
// owned tasks first, then tokens, then the user row. The farewell mail only
// fires when the account holder deletes themselves.
func (s *UserService) DeleteUser(id string, notify bool) (models.User, error) {
	user, err := s.GetUserByID(id)
	if err != nil {
		return models.User{}, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return models.User{}, apperror.NewStore("Failed to delete user", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM tasks WHERE owner = ?", id); err != nil {
		return models.User{}, apperror.NewStore("Failed to delete user tasks", err)
	}
	if _, err := tx.Exec("DELETE FROM user_tokens WHERE user_id = ?", id); err != nil {
		return models.User{}, apperror.NewStore("Failed to delete user tokens", err)
	}
	if _, err := tx.Exec("DELETE FROM users WHERE id = ?", id); err != nil {
		return models.User{}, apperror.NewStore("Failed to delete user", err)
	}
	if err := tx.Commit(); err != nil {
		return models.User{}, apperror.NewStore("Failed to delete user", err)
	}

	if notify {
		go s.emails.SendFarewell(user.Email, user.Name)
	}
	return user, nil
}

// AddToken appends a token to the user's active set.
func (s *UserService) AddToken(userID, token string) error {
	_, err := s.db.Exec(
		"INSERT INTO user_tokens (token, user_id, created_at) VALUES (?, ?, ?)",
		token, userID, time.Now().UTC(),
	)
	if err != nil {
		return apperror.NewStore("Failed to store token", err)
	}
	return nil
}

// RemoveToken removes exactly one token from the user's active set.
func (s *UserService) RemoveToken(userID, token string) error {
	_, err := s.db.Exec("DELETE FROM user_tokens WHERE user_id = ? AND token = ?", userID, token)
	if err != nil {
		return apperror.NewStore("Failed to remove token", err)
	}
	return nil
}

// ClearTokens removes every token for the user, logging out all sessions.
func (s *UserService) ClearTokens(userID string) error {
	_, err := s.db.Exec("DELETE FROM user_tokens WHERE user_id = ?", userID)
	if err != nil {
		return apperror.NewStore("Failed to clear tokens", err)
	}
	return nil
}

// SetAvatar stores the processed avatar bytes on the user.
func (s *UserService) SetAvatar(userID string, avatar []byte) error {
	return s.updateAvatar(userID, avatar)
}

// ClearAvatar removes the user's avatar.
func (s *UserService) ClearAvatar(userID string) error {
	return s.updateAvatar(userID, nil)
}

func (s *UserService) updateAvatar(userID string, avatar []byte) error {
	res, err := s.db.Exec(
		"UPDATE users SET avatar = ?, updated_at = ? WHERE id = ?",
		avatar, time.Now().UTC(), userID,
	)
	if err != nil {
		return apperror.NewStore("Failed to update avatar", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperror.NewStore("Failed to update avatar", err)
	}
	if affected == 0 {
		return apperror.NewNotFound("User not found")
	}
	return nil
}

// GetAvatar returns the stored avatar bytes, or NotFound when the user does
// not exist or has no avatar.
func (s *UserService) GetAvatar(userID string) ([]byte, error) {
	var avatar []byte
	err := s.db.QueryRow("SELECT avatar FROM users WHERE id = ?", userID).Scan(&avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound("User not found")
		}
		return nil, apperror.NewStore("Failed to retrieve avatar", err)
	}
	if len(avatar) == 0 {
		return nil, apperror.NewNotFound("Avatar not found")
	}
	return avatar, nil
}

// PruneTokens deletes token rows issued before the cutoff. Tokens past
// their signed expiry already fail verification; this keeps the stored set
// from growing without bound.
func (s *UserService) PruneTokens(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM user_tokens WHERE created_at < ?", olderThan.UTC())
	if err != nil {
		return 0, apperror.NewStore("Failed to prune tokens", err)
	}
	return res.RowsAffected()
}

func (s *UserService) emailTaken(email, excludeID string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(1) FROM users WHERE email = ? AND id != ?", email, excludeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
