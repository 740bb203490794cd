package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/taskly/taskly-be/internal/apperror"
	"github.com/taskly/taskly-be/internal/auth"
	"github.com/taskly/taskly-be/internal/avatar"
	"github.com/taskly/taskly-be/internal/models"
	"github.com/taskly/taskly-be/internal/services"
)

// UserHandler handles HTTP requests for user accounts and sessions.
type UserHandler struct {
	service services.UserServiceProvider
	tokens  *auth.TokenManager
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, tokens *auth.TokenManager) *UserHandler {
	return &UserHandler{service: service, tokens: tokens}
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned by signup and login: the public user plus a
// fresh bearer token.
type SessionResponse struct {
	User  models.PublicUser `json:"user"`
	Token string            `json:"token"`
}

// Create handles new user signup. Responds 201 with the user and a token.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.UserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, r, apperror.NewValidation("Invalid request body"))
		return
	}

	user, err := h.service.CreateUser(input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := h.issueSession(user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, SessionResponse{User: user.Public(), Token: token})
}

// GetAll handles listing every user.
func (h *UserHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.GetAllUsers()
	if err != nil {
		writeError(w, r, err)
		return
	}

	public := make([]models.PublicUser, 0, len(users))
	for _, user := range users {
		public = append(public, user.Public())
	}
	writeJSON(w, http.StatusOK, public)
}

// GetMe returns the authenticated user's own profile.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.NewAuth("Please authenticate.", nil))
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// Get handles retrieving a user by their ID.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUserByID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// UpdateMe handles a partial update of the authenticated user's profile.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.NewAuth("Please authenticate.", nil))
		return
	}
	h.update(w, r, user.ID)
}

// Update handles a partial update of a user by id.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, chi.URLParam(r, "id"))
}

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, r, apperror.NewValidation("Invalid request body"))
		return
	}

	user, err := h.service.UpdateUser(id, updates)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// DeleteMe deletes the authenticated user's own account and sends the
// farewell mail.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.NewAuth("Please authenticate.", nil))
		return
	}

	deleted, err := h.service.DeleteUser(user.ID, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted.Public())
}

// Delete handles the deletion of a user account by id.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.DeleteUser(chi.URLParam(r, "id"), false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted.Public())
}

// Login handles credential verification and token issuance.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, apperror.NewValidation("Invalid request body"))
		return
	}

	user, err := h.service.GetUserByCredentials(payload.Email, payload.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := h.issueSession(user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{User: user.Public(), Token: token})
}

// Logout invalidates exactly the token the request authenticated with.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	token, tokenOK := auth.TokenFromContext(r.Context())
	if !ok || !tokenOK {
		writeError(w, r, apperror.NewAuth("Please authenticate.", nil))
		return
	}

	if err := h.service.RemoveToken(user.ID, token); err != nil {
		writeError(w, r, err)
		return
	}
	writeEmpty(w)
}

// LogoutAll invalidates every session of the authenticated user.
func (h *UserHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.NewAuth("Please authenticate.", nil))
		return
	}

	if err := h.service.ClearTokens(user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeEmpty(w)
}

// UploadAvatar accepts a multipart "avatar" file, converts it to a 250x250
// PNG and stores it on the authenticated user.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.NewAuth("Please authenticate.", nil))
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, r, apperror.NewValidation("Avatar file is required"))
		return
	}
	defer file.Close()

	png, err := avatar.Process(header.Filename, header.Size, file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.SetAvatar(user.ID, png); err != nil {
		writeError(w, r, err)
		return
	}
	writeEmpty(w)
}

// DeleteAvatar clears the authenticated user's avatar.
func (h *UserHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.NewAuth("Please authenticate.", nil))
		return
	}

	if err := h.service.ClearAvatar(user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeEmpty(w)
}

// GetAvatar serves a user's avatar as raw PNG bytes.
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	png, err := h.service.GetAvatar(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		log.Error().Err(err).Msg("Failed to write avatar response")
	}
}

// issueSession signs a fresh token and appends it to the user's active set.
func (h *UserHandler) issueSession(userID string) (string, error) {
	token, err := h.tokens.Issue(userID)
	if err != nil {
		return "", apperror.NewStore("Failed to generate token", err)
	}
	if err := h.service.AddToken(userID, token); err != nil {
		return "", err
	}
	return token, nil
}
