// CLAUDE:SUMMARY Core API struct and shared HTTP plumbing — routes, auth endpoints, JSON helpers, db error mapping, audit hook
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prajwalreddypr/Expat-Ease/internal/audit"
	"github.com/prajwalreddypr/Expat-Ease/internal/auth"
	"github.com/prajwalreddypr/Expat-Ease/internal/config"
	"github.com/prajwalreddypr/Expat-Ease/internal/db"
	"github.com/prajwalreddypr/Expat-Ease/internal/storage"
)

// emailRe is a light format check; real validation is the confirmation loop.
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// maxBodySize caps JSON request bodies (uploads have their own limit).
const maxBodySize = 64 * 1024

// AuthRateLimiter guards credential endpoints (10 req/60s per IP).
var AuthRateLimiter = NewRateLimiter(10, 60*time.Second)

type API struct {
	db       *db.DB
	auth     *auth.Auth
	store    *storage.Store
	auditLog audit.Logger
	cfg      *config.Config
}

func New(database *db.DB, a *auth.Auth, store *storage.Store, cfg *config.Config) *API {
	return &API{db: database, auth: a, store: store, cfg: cfg}
}

// SetAuditLogger enables the audit trail for mutating endpoints.
func (a *API) SetAuditLogger(l audit.Logger) {
	a.auditLog = l
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	// Auth & users
	mux.HandleFunc("POST /api/users", RateLimitMiddleware(AuthRateLimiter, a.handleRegister))
	mux.HandleFunc("POST /api/auth/login", RateLimitMiddleware(AuthRateLimiter, a.handleLogin))
	mux.HandleFunc("POST /api/auth/forgot-password", RateLimitMiddleware(AuthRateLimiter, a.handleForgotPassword))
	mux.HandleFunc("POST /api/auth/reset-password", a.handleResetPassword)
	mux.HandleFunc("GET /api/users/me", a.handleGetMe)
	mux.HandleFunc("PATCH /api/users/me", a.handleUpdateMe)
	mux.HandleFunc("GET /api/users/{id}", a.handleGetUser)

	// Onboarding tasks (country-keyed tracker instance)
	mux.HandleFunc("GET /api/tasks", a.handleGetTasks)
	mux.HandleFunc("POST /api/tasks", a.handleCreateTask)
	mux.HandleFunc("POST /api/tasks/initialize", a.handleInitializeTasks)
	mux.HandleFunc("POST /api/tasks/reset", a.handleResetTasks)
	mux.HandleFunc("PATCH /api/tasks/{id}", a.handleUpdateItem)
	mux.HandleFunc("PATCH /api/tasks/{id}/status", a.handleSetItemStatus)
	mux.HandleFunc("DELETE /api/tasks/{id}", a.handleDeleteTask)

	// Settlement steps (one tracker instance per user)
	mux.HandleFunc("GET /api/settlement-steps", a.handleGetSteps)
	mux.HandleFunc("POST /api/settlement-steps/initialize", a.handleInitializeSteps)
	mux.HandleFunc("POST /api/settlement-steps/reset", a.handleResetSteps)
	mux.HandleFunc("PATCH /api/settlement-steps/{id}", a.handleUpdateItem)
	mux.HandleFunc("PATCH /api/settlement-steps/{id}/status", a.handleSetItemStatus)

	// Documents (item-scoped; items come from either tracker)
	mux.HandleFunc("POST /api/items/{id}/documents", a.handleUploadDocument)
	mux.HandleFunc("GET /api/items/{id}/documents", a.handleGetItemDocuments)
	mux.HandleFunc("DELETE /api/documents/{id}", a.handleDeleteDocument)

	// Forum
	mux.HandleFunc("GET /api/forum/questions", a.handleListQuestions)
	mux.HandleFunc("POST /api/forum/questions", a.handleCreateQuestion)
	mux.HandleFunc("GET /api/forum/questions/{id}", a.handleGetQuestion)
	mux.HandleFunc("POST /api/forum/questions/{id}/answers", a.handleCreateAnswer)
	mux.HandleFunc("POST /api/forum/questions/{id}/vote", a.handleVoteQuestion)
	mux.HandleFunc("POST /api/forum/answers/{id}/vote", a.handleVoteAnswer)
	mux.HandleFunc("POST /api/forum/answers/{id}/accept", a.handleAcceptAnswer)
}

// --- Auth ---

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
		Country  string `json:"country"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		jsonError(w, "email and password are required", http.StatusBadRequest)
		return
	}
	if !emailRe.MatchString(req.Email) {
		jsonError(w, "invalid email address", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		jsonError(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	hash, err := a.auth.HashPassword(req.Password)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	user, err := a.db.CreateUser(db.CreateUserInput{
		Email:        req.Email,
		FullName:     req.FullName,
		Country:      req.Country,
		PasswordHash: hash,
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			jsonError(w, "email already registered", http.StatusConflict)
			return
		}
		slog.Error("creating user", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	a.auditEvent("register", user.ID, map[string]string{"email": user.Email}, nil)

	token, err := a.auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	jsonResp(w, http.StatusCreated, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, passwordHash, err := a.db.GetUserByEmail(req.Email)
	if err != nil {
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if !a.auth.CheckPassword(passwordHash, req.Password) {
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if !user.IsActive {
		jsonError(w, "inactive user", http.StatusForbidden)
		return
	}

	token, err := a.auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	a.auditEvent("login", user.ID, nil, nil)

	jsonResp(w, http.StatusOK, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

func (a *API) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		jsonError(w, "email is required", http.StatusBadRequest)
		return
	}

	// Always answer 200: the response must not reveal whether an account
	// exists.
	resp := map[string]interface{}{"message": "If the account exists, a reset link has been sent"}

	user, _, err := a.db.GetUserByEmail(req.Email)
	if err == nil {
		token, err := a.db.CreatePasswordResetToken(user.ID, time.Hour)
		if err != nil {
			slog.Error("issuing reset token", "error", err)
		} else {
			a.auditEvent("forgot_password", user.ID, nil, nil)
			if a.cfg.Auth.DevReturnResetToken {
				resp["reset_token"] = token
			}
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" || len(req.NewPassword) < 8 {
		jsonError(w, "token and a password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	userID, err := a.db.ConsumePasswordResetToken(req.Token)
	if err != nil {
		jsonError(w, "invalid or expired token", http.StatusBadRequest)
		return
	}

	hash, err := a.auth.HashPassword(req.NewPassword)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if _, err := a.db.UpdateUser(userID, db.UpdateUserInput{PasswordHash: &hash}); err != nil {
		slog.Error("resetting password", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	a.auditEvent("reset_password", userID, nil, nil)

	jsonResp(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// --- Helpers ---

// requireAuth extracts verified claims or writes a 401. Callers must return
// on nil.
func (a *API) requireAuth(w http.ResponseWriter, r *http.Request) *auth.Claims {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
	}
	return claims
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// dbError maps the store's sentinel errors onto HTTP statuses. NotFound is
// reported identically for missing and not-owned rows.
func dbError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
	case errors.Is(err, db.ErrAlreadyInitialized):
		jsonError(w, "already initialized", http.StatusConflict)
	case errors.Is(err, db.ErrForbidden):
		jsonError(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, db.ErrResetFailed):
		slog.Error(logMsg, "error", err)
		jsonError(w, "reset failed", http.StatusInternalServerError)
	default:
		slog.Error(logMsg, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

// auditEvent records a mutating operation if the audit trail is enabled.
func (a *API) auditEvent(action string, userID int64, params any, err error) {
	if a.auditLog == nil {
		return
	}
	entry := &audit.Entry{
		Action: action,
		UserID: strconv.FormatInt(userID, 10),
	}
	if params != nil {
		if b, e := json.Marshal(params); e == nil {
			entry.Parameters = string(b)
		}
	}
	if err != nil {
		entry.Error = err.Error()
	}
	a.auditLog.LogAsync(entry)
}

func jsonResp(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
