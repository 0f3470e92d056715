package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jobtrail-io/jobtrail/internal/auth"
	"github.com/jobtrail-io/jobtrail/internal/models"
)

// refreshCookieName carries the refresh secret. HTTP-only so scripts can
// never read it; the secret appears in no JSON body.
const refreshCookieName = "jobtrail_refresh"

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	CSRFToken   string       `json:"csrf_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

func (api *Api) setRefreshCookie(w http.ResponseWriter, secret string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    secret,
		Path:     "/auth",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   api.Config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (api *Api) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   api.Config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func refreshSecretFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (api *Api) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	creds, err := api.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	api.setRefreshCookie(w, creds.RefreshSecret, creds.ExpiresAt)
	writeJSON(w, http.StatusCreated, authResponse{
		User:        creds.User,
		AccessToken: creds.AccessToken,
		CSRFToken:   creds.CSRFSecret,
		ExpiresAt:   creds.ExpiresAt,
	})
}

func (api *Api) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	creds, err := api.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	api.setRefreshCookie(w, creds.RefreshSecret, creds.ExpiresAt)
	writeJSON(w, http.StatusOK, authResponse{
		User:        creds.User,
		AccessToken: creds.AccessToken,
		CSRFToken:   creds.CSRFSecret,
		ExpiresAt:   creds.ExpiresAt,
	})
}

// CSRFHandler mints a fresh CSRF token for the cookie-identified session.
// With no usable cookie the response is {"csrf_token": null}, never an
// error, so a client can silently discover it is unauthenticated.
func (api *Api) CSRFHandler(w http.ResponseWriter, r *http.Request) {
	csrf, err := api.auth.BootstrapCSRF(r.Context(), refreshSecretFromCookie(r))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	var token *string
	if csrf != "" {
		token = &csrf
	}
	writeJSON(w, http.StatusOK, map[string]*string{"csrf_token": token})
}

func (api *Api) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	creds, err := api.auth.Refresh(r.Context(), refreshSecretFromCookie(r), r.Header.Get("X-CSRF-Token"))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	api.setRefreshCookie(w, creds.RefreshSecret, creds.ExpiresAt)
	writeJSON(w, http.StatusOK, authResponse{
		User:        creds.User,
		AccessToken: creds.AccessToken,
		CSRFToken:   creds.CSRFSecret,
		ExpiresAt:   creds.ExpiresAt,
	})
}

// LogoutHandler revokes the cookie-identified session. Idempotent: it never
// reveals whether a session existed.
func (api *Api) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	err := api.auth.Logout(r.Context(), refreshSecretFromCookie(r), r.Header.Get("X-CSRF-Token"))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	api.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (api *Api) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "token query parameter required")
		return
	}
	if err := api.auth.VerifyEmail(r.Context(), token); err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func (api *Api) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeAuthError(w, auth.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (api *Api) DeactivateHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeAuthError(w, auth.ErrUnauthorized)
		return
	}
	if err := api.auth.Deactivate(r.Context(), user.ID); err != nil {
		writeAuthError(w, err)
		return
	}
	api.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (api *Api) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeAuthError(w, auth.ErrUnauthorized)
		return
	}
	if err := api.auth.DeleteAccount(r.Context(), user.ID); err != nil {
		writeAuthError(w, err)
		return
	}
	api.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
