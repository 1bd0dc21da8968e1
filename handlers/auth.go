package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"cwcinspect/auth"
	"cwcinspect/middleware"
	"cwcinspect/models"
	"cwcinspect/service"
)

type AuthHandler struct {
	svc           *service.Service
	jwtManager    *auth.JWTManager
	logger        logrus.FieldLogger
	secureCookies bool
}

func NewAuthHandler(svc *service.Service, jwtManager *auth.JWTManager, logger logrus.FieldLogger, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		svc:           svc,
		jwtManager:    jwtManager,
		logger:        logger,
		secureCookies: secureCookies,
	}
}

type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token        string         `json:"token"`
	RefreshToken string         `json:"refresh_token"`
	Officer      models.Officer `json:"officer"`
}

// Officers lists the roster for the login picker
func (h *AuthHandler) Officers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	officers := h.svc.Officers(r.URL.Query().Get("q"))
	writeJSON(w, h.svc, http.StatusOK, map[string]interface{}{
		"officers": officers,
		"count":    len(officers),
	})
}

// Login checks the officer's password and issues a session
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Password) == "" {
		writeError(w, "Name and password are required", http.StatusBadRequest)
		return
	}

	sess, err := h.svc.Login(req.Name, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrOfficerNotFound) || errors.Is(err, service.ErrInvalidPassword) {
			writeError(w, "Invalid name or password", http.StatusUnauthorized)
			return
		}
		writeServiceError(w, err)
		return
	}

	token, err := h.jwtManager.GenerateToken(sess.Officer)
	if err != nil {
		h.logger.WithError(err).WithField("officer", sess.Officer.Name).Error("failed to generate token")
		writeError(w, "Failed to generate authentication token", http.StatusInternalServerError)
		return
	}
	refreshToken, err := h.jwtManager.GenerateRefreshToken(sess.Officer)
	if err != nil {
		h.logger.WithError(err).WithField("officer", sess.Officer.Name).Error("failed to generate refresh token")
		writeError(w, "Failed to generate refresh token", http.StatusInternalServerError)
		return
	}

	h.setSessionCookie(w, token)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		Officer:      sess.Officer.Public(),
	})
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	Token string `json:"token"`
}

// RefreshToken issues a new access token for a valid refresh token
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	claims, err := h.jwtManager.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		writeError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	officer := claims.Officer()
	if sess, err := h.svc.Restore(claims.OfficerID, claims.Name); err == nil {
		officer = sess.Officer
	}

	token, err := h.jwtManager.GenerateToken(officer)
	if err != nil {
		h.logger.WithError(err).WithField("officer", officer.Name).Error("failed to generate token")
		writeError(w, "Failed to generate authentication token", http.StatusInternalServerError)
		return
	}

	h.setSessionCookie(w, token)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(RefreshTokenResponse{
		Token: token,
	})
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Session returns the officer behind the current token
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeError(w, "Session not found in context", http.StatusUnauthorized)
		return
	}
	writeJSON(w, h.svc, http.StatusOK, map[string]interface{}{
		"officer": sess.Officer.Public(),
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.jwtManager.TokenExpiration().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
