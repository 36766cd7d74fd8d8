package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/alumnet/server/internal/delivery"
	"github.com/alumnet/server/internal/gateway"
	"github.com/alumnet/server/internal/types"
	"github.com/gorilla/websocket"
)

type CreateMessageRequest struct {
	ReceiverId int    `json:"receiver_id"`
	Content    string `json:"content"`
}

func (s *App) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

// pathUserId parses the {userId} segment of the request path.
func pathUserId(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("userId"))
}

func (s *App) createMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.sender.Send(userId, req.ReceiverId, req.Content)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, delivery.ErrEmptyContent) || errors.Is(err, delivery.ErrMissingReceiver) {
			errResp = NewValidationError(err.Error())
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *App) getConversation(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	otherId, err := pathUserId(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbMessages, err := s.db.GetConversation(userId, otherId)
	if err != nil {
		s.log.Println("get conversation:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages := make([]types.Message, 0, len(dbMessages))
	for _, msg := range dbMessages {
		messages = append(messages, types.Message{
			Id:         msg.Id,
			ExternalId: msg.ExternalId,
			SenderId:   msg.SenderId,
			ReceiverId: msg.ReceiverId,
			Content:    msg.Content,
			Read:       msg.Read,
			Timestamp:  msg.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, messages)
}

func (s *App) getConversations(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbSummaries, err := s.db.GetConversationSummaries(userId)
	if err != nil {
		s.log.Println("get conversation summaries:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	summaries := make([]types.ConversationSummary, 0, len(dbSummaries))
	for _, sum := range dbSummaries {
		summaries = append(summaries, types.ConversationSummary{
			Counterparty: types.User{
				Id:           sum.Counterparty.Id,
				Username:     sum.Counterparty.Username,
				EmailAddress: sum.Counterparty.EmailAddress,
			},
			LastMessage: types.Message{
				Id:         sum.LastMessage.Id,
				ExternalId: sum.LastMessage.ExternalId,
				SenderId:   sum.LastMessage.SenderId,
				ReceiverId: sum.LastMessage.ReceiverId,
				Content:    sum.LastMessage.Content,
				Read:       sum.LastMessage.Read,
				Timestamp:  sum.LastMessage.CreatedAt,
			},
		})
	}

	s.writeJson(w, http.StatusOK, summaries)
}

func (s *App) markConversationRead(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	otherId, err := pathUserId(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// messages sent by otherId to the caller become read
	updated, err := s.db.MarkConversationRead(otherId, userId)
	if err != nil {
		s.log.Println("mark conversation read:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]int64{"updated_count": updated})
}

func (s *App) unreadCount(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	count, err := s.db.CountUnread(userId)
	if err != nil {
		s.log.Println("count unread:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]int{"count": count})
}

func (s *App) deleteConversation(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	otherId, err := pathUserId(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	deleted, err := s.db.DeleteConversation(userId, otherId)
	if err != nil {
		s.log.Println("delete conversation:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]int64{"deleted_count": deleted})
}

func (s *App) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

// serveWs upgrades the connection and hands it to the realtime gateway.
// The socket starts unauthenticated and must present a token in-band
// before any other event is accepted.
func (s *App) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := gateway.NewClient(conn, s.gw, s.log)
	s.gw.RegisterChan <- client
	go client.Write()
	go client.Read()
}
