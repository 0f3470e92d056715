package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jobtrail-io/jobtrail/internal/auth"
)

type proRequestBody struct {
	Note string `json:"note"`
}

type decisionBody struct {
	DecisionNote string `json:"decision_note"`
}

func (api *Api) RequestProHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeAuthError(w, auth.ErrUnauthorized)
		return
	}

	var req proRequestBody
	if r.Body != nil {
		// The note is optional; an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := api.pro.RequestAccess(r.Context(), user.ID, req.Note)
	if err != nil {
		writeProError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (api *Api) ApproveProHandler(w http.ResponseWriter, r *http.Request) {
	var req decisionBody
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := api.pro.Approve(r.Context(), chi.URLParam(r, "id"), req.DecisionNote); err != nil {
		writeProError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (api *Api) DenyProHandler(w http.ResponseWriter, r *http.Request) {
	var req decisionBody
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	cooldownUntil, err := api.pro.Deny(r.Context(), chi.URLParam(r, "id"), req.DecisionNote)
	if err != nil {
		writeProError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]time.Time{"cooldown_until": cooldownUntil})
}

func (api *Api) GrantCreditsHandler(w http.ResponseWriter, r *http.Request) {
	if err := api.pro.GrantCredits(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeProError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "credits_granted"})
}
