package api

import (
	"net/http"
)

// @Summary     List users
// @Tags        users
// @Security    BearerAuth
// @Produce     json
// @Success     200  {array}   user.User
// @Failure     403  {object}  map[string]string
// @Router      /users [get]
func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userSvc.List(r.Context())
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// @Summary     Current user
// @Tags        users
// @Security    BearerAuth
// @Produce     json
// @Success     200  {object}  user.User
// @Failure     404  {object}  map[string]string
// @Router      /users/me [get]
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.userSvc.GetByID(r.Context(), userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
