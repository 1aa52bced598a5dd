package api

import (
	"encoding/json"
	"net/http"

	"pollbooth/internal/platform/apperr"
	jwtpkg "pollbooth/internal/platform/jwt"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// @Summary     Register a new account
// @Tags        auth
// @Accept      json
// @Param       request  body  registerRequest  true  "Registration payload"
// @Success     201  {object}  map[string]any
// @Failure     400  {object}  map[string]string
// @Router      /auth/register [post]
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	u, err := h.userSvc.Register(r.Context(), req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user": u})
}

// @Summary     Log in
// @Tags        auth
// @Accept      json
// @Param       request  body  loginRequest  true  "Credentials"
// @Success     200  {object}  map[string]string  "token and role"
// @Failure     401  {object}  map[string]string
// @Router      /auth/login [post]
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	u, err := h.userSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		errorResponse(w, err)
		return
	}

	token, err := h.jwtMgr.Generate(u.ID, u.Role, jwtpkg.TokenTTL)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token": token,
		"role":  u.Role,
	})
}
