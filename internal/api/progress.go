// CLAUDE:SUMMARY HTTP handlers for the onboarding-task and settlement-step trackers — list, initialize, status, custom items, reset
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prajwalreddypr/Expat-Ease/internal/db"
)

var validStatuses = map[string]bool{
	"pending":     true,
	"in_progress": true,
	"completed":   true,
}

// taskCountry resolves the tracker instance key: an explicit country wins,
// otherwise the user's settlement country applies.
func (a *API) taskCountry(userID int64, country string) string {
	country = strings.TrimSpace(country)
	if country != "" {
		return country
	}
	user, err := a.db.GetUserByID(userID)
	if err != nil || user.SettlementCountry == nil {
		return ""
	}
	return *user.SettlementCountry
}

// --- Onboarding tasks ---

func (a *API) handleGetTasks(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	country := a.taskCountry(claims.UserID, r.URL.Query().Get("country"))
	if country == "" {
		jsonError(w, "country is required", http.StatusBadRequest)
		return
	}
	items, err := a.db.ListProgress(claims.UserID, db.TrackerTask, country)
	if err != nil {
		dbError(w, err, "listing tasks")
		return
	}
	jsonResp(w, http.StatusOK, items)
}

func (a *API) handleInitializeTasks(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	var req struct {
		Country string `json:"country"`
	}
	// Body is optional when a settlement country is on file.
	_ = json.NewDecoder(r.Body).Decode(&req)
	country := a.taskCountry(claims.UserID, req.Country)
	if country == "" {
		jsonError(w, "country is required", http.StatusBadRequest)
		return
	}

	items, err := a.db.InitializeProgress(claims.UserID, db.TrackerTask, country, db.DefaultTaskTemplate)
	if err != nil {
		dbError(w, err, "initializing tasks")
		return
	}
	a.auditEvent("initialize_tasks", claims.UserID, map[string]string{"country": country}, nil)
	jsonResp(w, http.StatusCreated, items)
}

func (a *API) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req struct {
		Country       string `json:"country"`
		Title         string `json:"title"`
		Description   string `json:"description"`
		Priority      string `json:"priority"`
		IsRequired    bool   `json:"is_required"`
		EstimatedDays *int   `json:"estimated_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		jsonError(w, "title is required", http.StatusBadRequest)
		return
	}
	country := a.taskCountry(claims.UserID, req.Country)
	if country == "" {
		jsonError(w, "country is required", http.StatusBadRequest)
		return
	}

	item, err := a.db.CreateProgressItem(claims.UserID, db.CreateProgressItemInput{
		Tracker:       db.TrackerTask,
		Category:      country,
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		IsRequired:    req.IsRequired,
		EstimatedDays: req.EstimatedDays,
	})
	if err != nil {
		dbError(w, err, "creating task")
		return
	}
	a.auditEvent("create_task", claims.UserID, map[string]string{"title": req.Title}, nil)
	jsonResp(w, http.StatusCreated, item)
}

func (a *API) handleResetTasks(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	var req struct {
		Country string `json:"country"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	country := a.taskCountry(claims.UserID, req.Country)
	if country == "" {
		jsonError(w, "country is required", http.StatusBadRequest)
		return
	}

	items, err := a.db.ResetProgress(claims.UserID, db.TrackerTask, country, db.DefaultTaskTemplate, a.store)
	if err != nil {
		a.auditEvent("reset_tasks", claims.UserID, map[string]string{"country": country}, err)
		dbError(w, err, "resetting tasks")
		return
	}
	a.auditEvent("reset_tasks", claims.UserID, map[string]string{"country": country}, nil)
	jsonResp(w, http.StatusOK, items)
}

func (a *API) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		jsonError(w, "invalid task id", http.StatusBadRequest)
		return
	}
	deleted, err := a.db.DeleteProgressItem(claims.UserID, id)
	if err != nil {
		dbError(w, err, "deleting task")
		return
	}
	if !deleted {
		jsonError(w, "not found", http.StatusNotFound)
		return
	}
	a.auditEvent("delete_task", claims.UserID, map[string]int64{"item_id": id}, nil)
	jsonResp(w, http.StatusOK, map[string]string{"message": "deleted"})
}

var validPriorities = map[string]bool{
	"low": true, "medium": true, "high": true, "urgent": true,
}

// handleUpdateItem edits an item's descriptive fields. Serves both trackers;
// status changes go through the /status endpoint.
func (a *API) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		jsonError(w, "invalid item id", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req struct {
		Title         *string `json:"title"`
		Description   *string `json:"description"`
		Priority      *string `json:"priority"`
		EstimatedDays *int    `json:"estimated_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		jsonError(w, "title must not be empty", http.StatusBadRequest)
		return
	}
	if req.Priority != nil && !validPriorities[*req.Priority] {
		jsonError(w, "priority must be low, medium, high or urgent", http.StatusBadRequest)
		return
	}

	item, err := a.db.UpdateProgressItem(claims.UserID, id, db.UpdateProgressItemInput{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		EstimatedDays: req.EstimatedDays,
	})
	if err != nil {
		dbError(w, err, "editing item")
		return
	}
	a.auditEvent("update_item", claims.UserID, map[string]int64{"item_id": id}, nil)
	jsonResp(w, http.StatusOK, item)
}

// handleSetItemStatus serves both trackers: ownership scoping makes the item
// id sufficient.
func (a *API) handleSetItemStatus(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		jsonError(w, "invalid item id", http.StatusBadRequest)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !validStatuses[req.Status] {
		jsonError(w, "status must be pending, in_progress or completed", http.StatusBadRequest)
		return
	}

	item, err := a.db.SetProgressStatus(claims.UserID, id, req.Status)
	if err != nil {
		dbError(w, err, "updating item status")
		return
	}
	a.auditEvent("set_item_status", claims.UserID, map[string]any{"item_id": id, "status": req.Status}, nil)
	jsonResp(w, http.StatusOK, item)
}

// --- Settlement steps ---

func (a *API) handleGetSteps(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	items, err := a.db.ListProgress(claims.UserID, db.TrackerStep, "")
	if err != nil {
		dbError(w, err, "listing settlement steps")
		return
	}
	jsonResp(w, http.StatusOK, items)
}

func (a *API) handleInitializeSteps(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	items, err := a.db.InitializeProgress(claims.UserID, db.TrackerStep, "", db.DefaultStepTemplate)
	if err != nil {
		dbError(w, err, "initializing settlement steps")
		return
	}
	a.auditEvent("initialize_steps", claims.UserID, nil, nil)
	jsonResp(w, http.StatusCreated, items)
}

func (a *API) handleResetSteps(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	items, err := a.db.ResetProgress(claims.UserID, db.TrackerStep, "", db.DefaultStepTemplate, a.store)
	if err != nil {
		a.auditEvent("reset_steps", claims.UserID, nil, err)
		dbError(w, err, "resetting settlement steps")
		return
	}
	a.auditEvent("reset_steps", claims.UserID, nil, nil)
	jsonResp(w, http.StatusOK, items)
}
