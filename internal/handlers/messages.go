package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/albaliriagomez/proyectoReusetech/internal/store"
)

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	SenderID      int64  `json:"sender_id"`
	RecipientID   int64  `json:"recipient_id"`
	PublicationID int64  `json:"publication_id"`
	Content       string `json:"content"`
}

// SendMessage handles POST /api/messages. The stored row is returned as the
// response body; delivery to live sockets has already been attempted by the
// time the response is written.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg, err := h.chat.Send(r.Context(), req.SenderID, req.RecipientID, req.PublicationID, req.Content)
	if err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) {
			h.Error(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.logger.Error().Err(err).Msg("message send failed")
		h.Error(w, http.StatusServiceUnavailable, "message could not be stored")
		return
	}

	h.JSON(w, http.StatusCreated, msg)
}

// GetHistory handles GET /api/messages/{publicationID}/{userA}/{userB}.
// The order of the two user ids does not matter.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	publicationID, ok := pathID(r, "publicationID")
	if !ok {
		h.Error(w, http.StatusBadRequest, "invalid publication ID")
		return
	}
	userA, ok := pathID(r, "userA")
	if !ok {
		h.Error(w, http.StatusBadRequest, "invalid user ID")
		return
	}
	userB, ok := pathID(r, "userB")
	if !ok {
		h.Error(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	messages, err := h.chat.History(r.Context(), publicationID, userA, userB)
	if err != nil {
		h.logger.Error().Err(err).Msg("history query failed")
		h.Error(w, http.StatusServiceUnavailable, "history unavailable")
		return
	}

	h.JSON(w, http.StatusOK, messages)
}

// GetConversations handles GET /api/conversations/{userID}: the inbox view,
// one entry per conversation, most recent first.
func (h *Handler) GetConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userID")
	if !ok {
		h.Error(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	summaries, err := h.chat.Inbox(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("conversations query failed")
		h.Error(w, http.StatusServiceUnavailable, "conversations unavailable")
		return
	}

	h.JSON(w, http.StatusOK, summaries)
}
