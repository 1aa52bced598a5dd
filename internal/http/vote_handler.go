package api

import (
	"encoding/json"
	"net/http"

	"pollbooth/internal/platform/apperr"
	"pollbooth/internal/worker"
)

type voteRequest struct {
	OptionIndex *int `json:"optionIndex"`
}

// @Summary     Cast a vote
// @Tags        votes
// @Security    BearerAuth
// @Accept      json
// @Param       id       path  int64        true  "Poll ID"
// @Param       request  body  voteRequest  true  "Chosen option index"
// @Success     200  {object}  map[string]string
// @Failure     400  {object}  map[string]string  "expired, already voted, or invalid option"
// @Failure     403  {object}  map[string]string
// @Failure     404  {object}  map[string]string
// @Router      /polls/{id}/vote [post]
func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.OptionIndex == nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "optionIndex is required", nil))
		return
	}

	userID := userIDFromCtx(r)

	if err := h.voteSvc.Vote(r.Context(), userID, roleFromCtx(r), pollID, *req.OptionIndex); err != nil {
		errorResponse(w, err)
		return
	}

	select {
	case h.voteCh <- worker.VoteEvent{PollID: pollID, OptionIndex: *req.OptionIndex, UserID: userID}:
	default:
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Vote recorded"})
}

// @Summary     Poll status and live tally
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Param       id  path  int64  true  "Poll ID"
// @Success     200  {object}  vote.PollStatus
// @Failure     404  {object}  map[string]string
// @Router      /polls/{id}/status [get]
func (h *Handler) handlePollStatus(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	status, err := h.voteSvc.Status(r.Context(), pollID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// @Summary     Poll results, available after expiry
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Param       id  path  int64  true  "Poll ID"
// @Success     200  {object}  vote.PollResults
// @Failure     403  {object}  map[string]string  "poll still open"
// @Failure     404  {object}  map[string]string
// @Router      /polls/{id}/results [get]
func (h *Handler) handlePollResults(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	res, err := h.voteSvc.Results(r.Context(), pollID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
