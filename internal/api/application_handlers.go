package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jobtrail-io/jobtrail/internal/auth"
	"github.com/jobtrail-io/jobtrail/internal/models"
	"github.com/jobtrail-io/jobtrail/internal/store"
)

type applicationBody struct {
	Company   string `json:"company"`
	RoleTitle string `json:"role_title"`
	Status    string `json:"status"`
	URL       string `json:"url"`
	Notes     string `json:"notes"`
}

func (b *applicationBody) validate() string {
	b.Company = strings.TrimSpace(b.Company)
	b.RoleTitle = strings.TrimSpace(b.RoleTitle)
	b.Status = strings.ToUpper(strings.TrimSpace(b.Status))
	if b.Status == "" {
		b.Status = "SAVED"
	}
	if b.Company == "" {
		return "company is required"
	}
	if b.RoleTitle == "" {
		return "role_title is required"
	}
	if !models.ValidApplicationStatus(b.Status) {
		return "status must be one of " + strings.Join(models.ApplicationStatuses, ", ")
	}
	return ""
}

func (api *Api) CreateApplicationHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeAuthError(w, auth.ErrUnauthorized)
		return
	}

	var req applicationBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, "validation_failed", msg)
		return
	}

	now := time.Now().UTC()
	app := &models.Application{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Company:   req.Company,
		RoleTitle: req.RoleTitle,
		Status:    req.Status,
		URL:       strings.TrimSpace(req.URL),
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := api.store.CreateApplication(r.Context(), app); err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (api *Api) ListApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeAuthError(w, auth.ErrUnauthorized)
		return
	}

	apps, err := api.store.ListApplications(r.Context(), user.ID)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if apps == nil {
		apps = []*models.Application{}
	}
	writeJSON(w, http.StatusOK, apps)
}

func (api *Api) GetApplicationHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeAuthError(w, auth.ErrUnauthorized)
		return
	}

	app, err := api.store.GetApplication(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "application not found")
			return
		}
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (api *Api) UpdateApplicationHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeAuthError(w, auth.ErrUnauthorized)
		return
	}

	var req applicationBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, "validation_failed", msg)
		return
	}

	app := &models.Application{
		ID:        chi.URLParam(r, "id"),
		UserID:    user.ID,
		Company:   req.Company,
		RoleTitle: req.RoleTitle,
		Status:    req.Status,
		URL:       strings.TrimSpace(req.URL),
		Notes:     req.Notes,
	}
	if err := api.store.UpdateApplication(r.Context(), app); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "application not found")
			return
		}
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (api *Api) DeleteApplicationHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeAuthError(w, auth.ErrUnauthorized)
		return
	}

	if err := api.store.DeleteApplication(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "application not found")
			return
		}
		writeAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
