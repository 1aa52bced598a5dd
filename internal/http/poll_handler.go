package api

import (
	"encoding/json"
	"net/http"

	"pollbooth/internal/domain/poll"
	"pollbooth/internal/platform/apperr"
)

// pollOption accepts an option as either a plain string or a
// structured {"text": ...} object; both normalize to the structured
// form.
type pollOption struct {
	Text string `json:"text"`
}

func (o *pollOption) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &o.Text)
	}
	type plain pollOption
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*o = pollOption(p)
	return nil
}

func optionTexts(opts []pollOption) []string {
	texts := make([]string, 0, len(opts))
	for _, o := range opts {
		texts = append(texts, o.Text)
	}
	return texts
}

type createPollRequest struct {
	Title            string       `json:"title"`
	Options          []pollOption `json:"options"`
	Visibility       string       `json:"visibility"`
	AllowedUsers     []int64      `json:"allowedUsers"`
	ExpiresInMinutes int          `json:"expiresInMinutes"`
}

type updatePollRequest struct {
	Title            *string      `json:"title"`
	Options          []pollOption `json:"options"`
	Visibility       *string      `json:"visibility"`
	AllowedUsers     []int64      `json:"allowedUsers"`
	ExpiresInMinutes *int         `json:"expiresInMinutes"`
}

// @Summary     Create a poll
// @Tags        polls
// @Security    BearerAuth
// @Accept      json
// @Param       request  body  createPollRequest  true  "Poll definition"
// @Success     201  {object}  map[string]any
// @Failure     400  {object}  map[string]string
// @Failure     403  {object}  map[string]string
// @Router      /polls [post]
func (h *Handler) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	p, err := h.pollSvc.Create(r.Context(), userIDFromCtx(r), poll.CreateInput{
		Title:            req.Title,
		Options:          optionTexts(req.Options),
		Visibility:       req.Visibility,
		AllowedUsers:     req.AllowedUsers,
		ExpiresInMinutes: req.ExpiresInMinutes,
	})
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"poll": p})
}

// @Summary     Edit an open poll
// @Tags        polls
// @Security    BearerAuth
// @Accept      json
// @Param       id       path  int64              true  "Poll ID"
// @Param       request  body  updatePollRequest  true  "Fields to change"
// @Success     200  {object}  map[string]any
// @Failure     400  {object}  map[string]string  "invalid patch or expired"
// @Failure     403  {object}  map[string]string  "not the creator"
// @Failure     404  {object}  map[string]string
// @Router      /polls/{id} [put]
func (h *Handler) handleUpdatePoll(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req updatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	in := poll.UpdateInput{
		Title:            req.Title,
		Visibility:       req.Visibility,
		AllowedUsers:     req.AllowedUsers,
		ExpiresInMinutes: req.ExpiresInMinutes,
	}
	if req.Options != nil {
		in.Options = optionTexts(req.Options)
	}

	p, err := h.pollSvc.Update(r.Context(), userIDFromCtx(r), id, in)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"poll": p})
}

// @Summary     Delete a poll and its ledger
// @Tags        polls
// @Security    BearerAuth
// @Param       id  path  int64  true  "Poll ID"
// @Success     200  {object}  map[string]string
// @Failure     403  {object}  map[string]string
// @Failure     404  {object}  map[string]string
// @Router      /polls/{id} [delete]
func (h *Handler) handleDeletePoll(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	if err := h.pollSvc.Delete(r.Context(), userIDFromCtx(r), id); err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Poll deleted"})
}

func (h *Handler) handleListAvailable(w http.ResponseWriter, r *http.Request) {
	polls, err := h.pollSvc.ListAvailable(r.Context(), userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}
	if polls == nil {
		polls = []poll.Poll{}
	}
	writeJSON(w, http.StatusOK, polls)
}

func (h *Handler) handleListOwned(w http.ResponseWriter, r *http.Request) {
	polls, err := h.pollSvc.ListOwned(r.Context(), userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}
	if polls == nil {
		polls = []poll.Poll{}
	}
	writeJSON(w, http.StatusOK, polls)
}

func (h *Handler) handleListExpiredVoted(w http.ResponseWriter, r *http.Request) {
	polls, err := h.pollSvc.ListExpiredVotedBy(r.Context(), userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}
	if polls == nil {
		polls = []poll.Poll{}
	}
	writeJSON(w, http.StatusOK, polls)
}
