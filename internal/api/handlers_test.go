package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alumnet/server/internal/config"
	"github.com/alumnet/server/internal/database"
	"github.com/alumnet/server/internal/delivery"
	"github.com/alumnet/server/internal/testutil"
	"github.com/alumnet/server/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(senderId, receiverId int, content string) (types.Message, error) {
	args := m.Called(senderId, receiverId, content)
	return args.Get(0).(types.Message), args.Error(1)
}

func newTestApp(t *testing.T, db database.MessagingRepository, sender MessageSender) *App {
	t.Helper()

	return NewApp(http.NewServeMux(), testutil.TestLogger(t), nil, db, sender, &config.Config{
		SigningKey: []byte("test-signing-key"),
	})
}

// withUser attaches an authenticated user id the way authMiddleware would.
func withUser(req *http.Request, userId int) *http.Request {
	return req.WithContext(WithUserId(req.Context(), userId))
}

func Test_healthCheck(t *testing.T) {
	tcases := []struct {
		name    string
		mockErr error
	}{
		{
			name:    "successful health check",
			mockErr: nil,
		},
		{
			name:    "failed health check",
			mockErr: errors.New("db error"),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockMessagingRepository{}
			defer mockRepo.AssertExpectations(t)
			mockRepo.On("Ping").Return(tc.mockErr).Once()

			app := newTestApp(t, mockRepo, nil)
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			app.healthCheck(rr, req)

			if tc.mockErr != nil {
				assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected status code to be 500")
			} else {
				assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")
			}
		})
	}
}

func Test_createMessage(t *testing.T) {
	sentMessage := types.Message{
		Id:         10,
		ExternalId: "abc123",
		SenderId:   1,
		ReceiverId: 2,
		Content:    "hello",
		Timestamp:  time.Now().UTC(),
	}

	tcases := []struct {
		name         string
		body         any
		authed       bool
		mockMsg      types.Message
		mockErr      error
		expectSend   bool
		expectedCode int
	}{
		{
			name: "successfully sends a message",
			body: CreateMessageRequest{
				ReceiverId: 2,
				Content:    "hello",
			},
			authed:       true,
			mockMsg:      sentMessage,
			expectSend:   true,
			expectedCode: http.StatusCreated,
		},
		{
			name:         "fails when unauthenticated",
			body:         CreateMessageRequest{ReceiverId: 2, Content: "hello"},
			authed:       false,
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "fails with invalid json body",
			body:         "invalid json",
			authed:       true,
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "fails with empty content",
			body: CreateMessageRequest{
				ReceiverId: 2,
			},
			authed:       true,
			mockErr:      delivery.ErrEmptyContent,
			expectSend:   true,
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "fails with missing receiver",
			body: CreateMessageRequest{
				Content: "hello",
			},
			authed:       true,
			mockErr:      delivery.ErrMissingReceiver,
			expectSend:   true,
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "fails when delivery fails",
			body: CreateMessageRequest{
				ReceiverId: 2,
				Content:    "hello",
			},
			authed:       true,
			mockErr:      errors.New("db error"),
			expectSend:   true,
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			sender := &mockSender{}
			defer sender.AssertExpectations(t)
			if tc.expectSend {
				sender.On("Send", 1, mock.AnythingOfType("int"), mock.AnythingOfType("string")).
					Return(tc.mockMsg, tc.mockErr).Once()
			}

			app := newTestApp(t, nil, sender)

			body, err := json.Marshal(tc.body)
			assert.NoError(t, err)
			req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewReader(body))
			if tc.authed {
				req = withUser(req, 1)
			}

			rr := httptest.NewRecorder()
			app.createMessage(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode == http.StatusCreated {
				var got types.Message
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
				assert.Equal(t, sentMessage.ExternalId, got.ExternalId)
				assert.Equal(t, sentMessage.Content, got.Content)
			}
		})
	}
}

func Test_getConversation(t *testing.T) {
	dbMessages := []database.Message{
		{
			Id:         1,
			ExternalId: "m1",
			SenderId:   1,
			ReceiverId: 2,
			Content:    "first",
			Read:       true,
			CreatedAt:  time.Now().UTC().Add(-time.Minute),
		},
		{
			Id:         2,
			ExternalId: "m2",
			SenderId:   2,
			ReceiverId: 1,
			Content:    "second",
			CreatedAt:  time.Now().UTC(),
		},
	}

	tcases := []struct {
		name         string
		pathValue    string
		mockMessages []database.Message
		mockErr      error
		expectQuery  bool
		expectedCode int
	}{
		{
			name:         "successfully returns conversation",
			pathValue:    "2",
			mockMessages: dbMessages,
			expectQuery:  true,
			expectedCode: http.StatusOK,
		},
		{
			name:         "returns empty conversation",
			pathValue:    "3",
			mockMessages: nil,
			expectQuery:  true,
			expectedCode: http.StatusOK,
		},
		{
			name:         "fails with non-numeric user id",
			pathValue:    "abc",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "fails when query fails",
			pathValue:    "2",
			mockErr:      errors.New("db error"),
			expectQuery:  true,
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockMessagingRepository{}
			defer mockRepo.AssertExpectations(t)
			if tc.expectQuery {
				otherId, _ := strconv.Atoi(tc.pathValue)
				mockRepo.On("GetConversation", 1, otherId).Return(tc.mockMessages, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo, nil)

			req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/messages/conversation/%s", tc.pathValue), nil)
			req.SetPathValue("userId", tc.pathValue)
			req = withUser(req, 1)

			rr := httptest.NewRecorder()
			app.getConversation(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode == http.StatusOK {
				var got []types.Message
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
				assert.Len(t, got, len(tc.mockMessages))
				for i, msg := range tc.mockMessages {
					assert.Equal(t, msg.ExternalId, got[i].ExternalId)
					assert.Equal(t, msg.Content, got[i].Content)
				}
			}
		})
	}
}

func Test_getConversations(t *testing.T) {
	summaries := []database.ConversationSummary{
		{
			Counterparty: database.User{Id: 2, Username: "counterpart", EmailAddress: "c@example.com"},
			LastMessage: database.Message{
				Id:         5,
				ExternalId: "m5",
				SenderId:   2,
				ReceiverId: 1,
				Content:    "latest",
				CreatedAt:  time.Now().UTC(),
			},
		},
	}

	tcases := []struct {
		name          string
		mockSummaries []database.ConversationSummary
		mockErr       error
		expectedCode  int
	}{
		{
			name:          "successfully returns summaries",
			mockSummaries: summaries,
			expectedCode:  http.StatusOK,
		},
		{
			name:         "fails when query fails",
			mockErr:      errors.New("db error"),
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockMessagingRepository{}
			defer mockRepo.AssertExpectations(t)
			mockRepo.On("GetConversationSummaries", 1).Return(tc.mockSummaries, tc.mockErr).Once()

			app := newTestApp(t, mockRepo, nil)

			req := withUser(httptest.NewRequest(http.MethodGet, "/api/messages/conversations", nil), 1)
			rr := httptest.NewRecorder()
			app.getConversations(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode == http.StatusOK {
				var got []types.ConversationSummary
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
				assert.Len(t, got, len(tc.mockSummaries))
				if len(got) > 0 {
					assert.Equal(t, summaries[0].Counterparty.Username, got[0].Counterparty.Username)
					assert.Equal(t, summaries[0].LastMessage.Content, got[0].LastMessage.Content)
				}
			}
		})
	}
}

func Test_markConversationRead(t *testing.T) {
	tcases := []struct {
		name         string
		pathValue    string
		mockUpdated  int64
		mockErr      error
		expectUpdate bool
		expectedCode int
	}{
		{
			name:         "successfully marks conversation read",
			pathValue:    "2",
			mockUpdated:  3,
			expectUpdate: true,
			expectedCode: http.StatusOK,
		},
		{
			name:         "fails with non-numeric user id",
			pathValue:    "abc",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "fails when update fails",
			pathValue:    "2",
			mockErr:      errors.New("db error"),
			expectUpdate: true,
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockMessagingRepository{}
			defer mockRepo.AssertExpectations(t)
			if tc.expectUpdate {
				mockRepo.On("MarkConversationRead", 2, 1).Return(tc.mockUpdated, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo, nil)

			req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/messages/read/%s", tc.pathValue), nil)
			req.SetPathValue("userId", tc.pathValue)
			req = withUser(req, 1)

			rr := httptest.NewRecorder()
			app.markConversationRead(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode == http.StatusOK {
				var got map[string]int64
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
				assert.Equal(t, tc.mockUpdated, got["updated_count"])
			}
		})
	}
}

func Test_unreadCount(t *testing.T) {
	tcases := []struct {
		name         string
		mockCount    int
		mockErr      error
		expectedCode int
	}{
		{
			name:         "successfully returns unread count",
			mockCount:    7,
			expectedCode: http.StatusOK,
		},
		{
			name:         "fails when query fails",
			mockErr:      errors.New("db error"),
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockMessagingRepository{}
			defer mockRepo.AssertExpectations(t)
			mockRepo.On("CountUnread", 1).Return(tc.mockCount, tc.mockErr).Once()

			app := newTestApp(t, mockRepo, nil)

			req := withUser(httptest.NewRequest(http.MethodGet, "/api/messages/unread-count", nil), 1)
			rr := httptest.NewRecorder()
			app.unreadCount(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode == http.StatusOK {
				var got map[string]int
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
				assert.Equal(t, tc.mockCount, got["count"])
			}
		})
	}
}

func Test_deleteConversation(t *testing.T) {
	tcases := []struct {
		name         string
		pathValue    string
		mockDeleted  int64
		mockErr      error
		expectDelete bool
		expectedCode int
	}{
		{
			name:         "successfully deletes conversation",
			pathValue:    "2",
			mockDeleted:  4,
			expectDelete: true,
			expectedCode: http.StatusOK,
		},
		{
			name:         "fails with non-numeric user id",
			pathValue:    "abc",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "fails when delete fails",
			pathValue:    "2",
			mockErr:      errors.New("db error"),
			expectDelete: true,
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockMessagingRepository{}
			defer mockRepo.AssertExpectations(t)
			if tc.expectDelete {
				mockRepo.On("DeleteConversation", 1, 2).Return(tc.mockDeleted, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo, nil)

			req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/messages/conversation/%s", tc.pathValue), nil)
			req.SetPathValue("userId", tc.pathValue)
			req = withUser(req, 1)

			rr := httptest.NewRecorder()
			app.deleteConversation(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode == http.StatusOK {
				var got map[string]int64
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
				assert.Equal(t, tc.mockDeleted, got["deleted_count"])
			}
		})
	}
}
