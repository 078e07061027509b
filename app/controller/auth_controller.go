package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"luch-agregator/logger"
	"luch-agregator/models"
	"luch-agregator/service"
	"luch-agregator/session"
)

// AuthController handles login and logout
type AuthController struct {
	auth     *service.AuthService
	sessions *session.Manager
	log      *logger.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(auth *service.AuthService, sessions *session.Manager, log *logger.Logger) *AuthController {
	return &AuthController{auth: auth, sessions: sessions, log: log.With("component", "AuthController")}
}

// Login handles POST /login with a form or a JSON body
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, c.log, http.StatusBadRequest, "invalid JSON body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			respondError(w, c.log, http.StatusBadRequest, "invalid form")
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	}

	user, err := c.auth.Authenticate(r.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		respondError(w, c.log, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		c.log.Error("❌ Login failed", "username", req.Username, "error", err)
		respondError(w, c.log, http.StatusInternalServerError, "login failed")
		return
	}

	s, err := c.sessions.Create(r.Context(), user.ID, user.IsStaff)
	if err != nil {
		c.log.Error("❌ Session could not be created", "username", user.Username, "error", err)
		respondError(w, c.log, http.StatusServiceUnavailable, "session store unavailable")
		return
	}
	c.sessions.SetCookie(w, s)
	respondJSON(w, c.log, http.StatusOK, map[string]interface{}{"status": "ok", "user": user})
}

// Logout handles POST /logout
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if s, err := c.sessions.FromRequest(r); err == nil {
		if err := c.sessions.Destroy(r.Context(), s.ID); err != nil {
			c.log.Warn("⚠️  Session could not be destroyed", "error", err)
		}
	}
	c.sessions.ClearCookie(w)
	respondJSON(w, c.log, http.StatusOK, map[string]string{"status": "ok"})
}
