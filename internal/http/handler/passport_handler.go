package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rizus/passport/internal/http/response"
	"github.com/rizus/passport/internal/observability"
	"github.com/rizus/passport/internal/security"
	"github.com/rizus/passport/internal/service"
	"github.com/rizus/passport/internal/validation"

	"github.com/go-chi/chi/v5"
	ozzo "github.com/go-ozzo/ozzo-validation/v4"
)

const defaultInitiator = "/passport"

// PassportHandler exposes the session endpoints. Credentials travel in
// cookies; browser form posts are answered with a redirect back to the
// initiator page, JSON clients get the envelope.
type PassportHandler struct {
	passport      *service.PassportService
	secureCookies bool
}

func NewPassportHandler(passport *service.PassportService, secureCookies bool) *PassportHandler {
	return &PassportHandler{passport: passport, secureCookies: secureCookies}
}

// Auth reports the current session, refreshing the envelope pair when only
// the refresh token is still alive.
func (h *PassportHandler) Auth(w http.ResponseWriter, r *http.Request) {
	result, issued, err := h.passport.Auth(r.Context(), h.credentials(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.setCookies(w, issued)
	response.JSON(w, r, http.StatusOK, result)
}

func (h *PassportHandler) Registration(w http.ResponseWriter, r *http.Request) {
	var form validation.RegistrationForm
	if !h.decodeForm(w, r, map[string]*string{
		"login":            &form.Login,
		"password":         &form.Password,
		"password_confirm": &form.PasswordConfirm,
	}, &form) {
		return
	}
	form.Login = strings.TrimSpace(form.Login)
	if err := form.Validate(); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	result, issued, err := h.passport.RegisterByPassword(r.Context(), h.credentials(r), form.Login, form.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "registration", "user_id", result.UserData.ID, "login", result.UserData.Login)
	h.setCookies(w, issued)
	h.succeed(w, r, result)
}

func (h *PassportHandler) RegistrationAnonymous(w http.ResponseWriter, r *http.Request) {
	var form validation.AnonymousForm
	if r.ContentLength > 0 {
		if !h.decodeForm(w, r, map[string]*string{"login": &form.Login}, &form) {
			return
		}
	}
	form.Login = strings.TrimSpace(form.Login)
	if err := form.Validate(); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	result, issued, err := h.passport.RegisterAnonymous(r.Context(), h.credentials(r), form.Login)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "registration_anonymous", "user_id", result.UserData.ID)
	h.setCookies(w, issued)
	h.succeed(w, r, result)
}

func (h *PassportHandler) Login(w http.ResponseWriter, r *http.Request) {
	var form validation.LoginForm
	if !h.decodeForm(w, r, map[string]*string{
		"login":    &form.Login,
		"password": &form.Password,
	}, &form) {
		return
	}
	form.Login = strings.TrimSpace(form.Login)
	if err := form.Validate(); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	result, issued, err := h.passport.Login(r.Context(), h.credentials(r), form.Login, form.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "login", "user_id", result.UserData.ID)
	h.setCookies(w, issued)
	h.succeed(w, r, result)
}

// Checkout switches the active account to the passive member named in the
// path.
func (h *PassportHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	result, issued, err := h.passport.Checkout(r.Context(), h.credentials(r), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "checkout", "user_id", userID)
	h.setCookies(w, issued)
	h.succeed(w, r, result)
}

// Loginout removes one account from the session. Answering 208 means the
// account was not signed in to begin with, which is fine for the caller.
func (h *PassportHandler) Loginout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	result, issued, outcome, err := h.passport.Logout(r.Context(), h.credentials(r), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "loginout", "user_id", userID)
	switch outcome {
	case service.LogoutNotSignedIn:
		response.JSON(w, r, http.StatusAlreadyReported, map[string]string{
			"message": "was no login to the account anyway",
		})
	case service.LogoutAllRemoved:
		h.clearCookies(w)
		h.succeed(w, r, map[string]string{"message": "signed out"})
	default:
		h.setCookies(w, issued)
		h.succeed(w, r, result)
	}
}

// LoginoutAll drops the whole session.
func (h *PassportHandler) LoginoutAll(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.passport.LogoutAll(r.Context(), h.credentials(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "loginout_all")
	if outcome == service.LogoutNotSignedIn {
		response.JSON(w, r, http.StatusAlreadyReported, map[string]string{
			"message": "was no login to the account anyway",
		})
		return
	}
	h.clearCookies(w)
	h.succeed(w, r, map[string]string{"message": "signed out"})
}

// LoginCheck reports whether a password login is free.
func (h *PassportHandler) LoginCheck(w http.ResponseWriter, r *http.Request) {
	login := strings.TrimSpace(chi.URLParam(r, "login"))
	if err := validation.ValidateLogin(login); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	busy, err := h.passport.IsLoginBusy(r.Context(), login)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"login": login, "is_already_busy": busy})
}

// ChangeLogin renames the password login of the account named in the path.
func (h *PassportHandler) ChangeLogin(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	var form validation.ChangeLoginForm
	if !h.decodeForm(w, r, map[string]*string{"login": &form.Login}, &form) {
		return
	}
	form.Login = strings.TrimSpace(form.Login)
	if err := form.Validate(); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.passport.ChangeLogin(r.Context(), h.credentials(r), userID, form.Login); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "change_login", "user_id", userID, "login", form.Login)
	h.succeed(w, r, map[string]string{"login": form.Login})
}

func (h *PassportHandler) credentials(r *http.Request) service.Credentials {
	return service.Credentials{
		Access:  security.GetCookie(r, security.AccessTokenCookie),
		Refresh: security.GetCookie(r, security.RefreshTokenCookie),
	}
}

func (h *PassportHandler) setCookies(w http.ResponseWriter, issued *service.IssuedTokens) {
	if issued == nil {
		return
	}
	security.SetTokenCookie(w, security.AccessTokenCookie, issued.Access, h.passport.AccessTTL(), h.secureCookies)
	security.SetTokenCookie(w, security.RefreshTokenCookie, issued.Refresh, h.passport.RefreshTTL(), h.secureCookies)
}

func (h *PassportHandler) clearCookies(w http.ResponseWriter) {
	security.ClearTokenCookie(w, security.AccessTokenCookie, h.secureCookies)
	security.ClearTokenCookie(w, security.RefreshTokenCookie, h.secureCookies)
}

// succeed answers a browser form post with a redirect back to the initiator
// page and everything else with the JSON envelope.
func (h *PassportHandler) succeed(w http.ResponseWriter, r *http.Request, data any) {
	if initiator, ok := h.initiator(r); ok {
		http.Redirect(w, r, initiator, http.StatusSeeOther)
		return
	}
	response.JSON(w, r, http.StatusOK, data)
}

// initiator reads the page to send the browser back to. Only same-site
// paths are honored so the endpoint cannot be used as an open redirect.
func (h *PassportHandler) initiator(r *http.Request) (string, bool) {
	raw := r.FormValue("initiator")
	if raw == "" {
		raw = r.URL.Query().Get("initiator")
	}
	if raw == "" {
		if wantsRedirect(r) {
			return defaultInitiator, true
		}
		return "", false
	}
	// Backslashes are rejected outright: browsers normalize them to forward
	// slashes, so "/\evil.example" would leave the site.
	if strings.Contains(raw, `\`) {
		return defaultInitiator, true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return defaultInitiator, true
	}
	return u.String(), true
}

// wantsRedirect is true for classic form submissions that do not accept
// JSON.
func wantsRedirect(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "application/x-www-form-urlencoded") && !strings.HasPrefix(ct, "multipart/form-data") {
		return false
	}
	return !strings.Contains(r.Header.Get("Accept"), "application/json")
}

// decodeForm fills the target from a JSON body or classic form fields.
func (h *PassportHandler) decodeForm(w http.ResponseWriter, r *http.Request, fields map[string]*string, target any) bool {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		if err := json.NewDecoder(r.Body).Decode(target); err != nil {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed JSON body", nil)
			return false
		}
		return true
	}
	if err := r.ParseForm(); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed form body", nil)
		return false
	}
	for name, dst := range fields {
		*dst = r.PostFormValue(name)
	}
	return true
}

func (h *PassportHandler) pathUserID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "user_id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "user_id must be a positive integer", nil)
		return 0, false
	}
	return uint(id), true
}

func (h *PassportHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErrors ozzo.Errors
	switch {
	case errors.As(err, &fieldErrors):
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_FAILED", "form validation failed", fieldErrors)
	case errors.Is(err, service.ErrLoginTaken):
		response.Error(w, r, http.StatusBadRequest, "LOGIN_TAKEN", "login already taken", map[string]string{"field": "login"})
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, r, http.StatusBadRequest, "INVALID_CREDENTIALS", "invalid login or password", nil)
	case errors.Is(err, service.ErrNotAuthenticated), errors.Is(err, service.ErrNoActiveUser):
		h.clearCookies(w)
		response.Error(w, r, http.StatusForbidden, "NOT_AUTHENTICATED", "no valid session", nil)
	case errors.Is(err, service.ErrNotAuthorized):
		response.Error(w, r, http.StatusForbidden, "NOT_AUTHORIZED", "account is not part of this session", nil)
	case errors.Is(err, service.ErrNoPasswordAuth):
		response.Error(w, r, http.StatusBadRequest, "NO_PASSWORD_AUTH", "account has no password auth", nil)
	case errors.Is(err, service.ErrUnknownAuthType):
		response.Error(w, r, http.StatusInternalServerError, "UNKNOWN_AUTH_TYPE", "account has an unknown auth type", nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
