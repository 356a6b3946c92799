package api

import (
	"encoding/json"
	"net/http"

	"github.com/prajwalreddypr/Expat-Ease/internal/db"
)

func (a *API) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	user, err := a.db.GetUserByID(claims.UserID)
	if err != nil {
		dbError(w, err, "loading current user")
		return
	}
	jsonResp(w, http.StatusOK, user)
}

func (a *API) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req struct {
		FullName          *string `json:"full_name"`
		Password          *string `json:"password"`
		Country           *string `json:"country"`
		SettlementCountry *string `json:"settlement_country"`
		CountrySelected   *bool   `json:"country_selected"`
		ProfilePhoto      *string `json:"profile_photo"`
		StreetAddress     *string `json:"street_address"`
		City              *string `json:"city"`
		PostalCode        *string `json:"postal_code"`
		PhoneNumber       *string `json:"phone_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var passwordHash *string
	if req.Password != nil {
		if len(*req.Password) < 8 {
			jsonError(w, "password must be at least 8 characters", http.StatusBadRequest)
			return
		}
		hash, err := a.auth.HashPassword(*req.Password)
		if err != nil {
			jsonError(w, "internal error", http.StatusInternalServerError)
			return
		}
		passwordHash = &hash
	}

	user, err := a.db.UpdateUser(claims.UserID, db.UpdateUserInput{
		FullName:          req.FullName,
		PasswordHash:      passwordHash,
		Country:           req.Country,
		SettlementCountry: req.SettlementCountry,
		CountrySelected:   req.CountrySelected,
		ProfilePhoto:      req.ProfilePhoto,
		StreetAddress:     req.StreetAddress,
		City:              req.City,
		PostalCode:        req.PostalCode,
		PhoneNumber:       req.PhoneNumber,
	})
	if err != nil {
		dbError(w, err, "updating profile")
		return
	}
	a.auditEvent("update_profile", claims.UserID, nil, nil)
	jsonResp(w, http.StatusOK, user)
}

// handleGetUser exposes the public summary only, not the full profile.
func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		jsonError(w, "invalid user id", http.StatusBadRequest)
		return
	}
	jsonResp(w, http.StatusOK, a.db.GetUserSummary(id))
}
