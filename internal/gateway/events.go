package gateway

import (
	"net/http"

	"github.com/alumnet/server/internal/types"
)

func errResponse(id, code int, msg string) *types.ServerEvent {
	event := &types.ServerEvent{
		BaseEvent: types.BaseEvent{
			Timestamp: types.Now(),
		},
		Response: &types.Response{
			ResponseCode: code,
			Error:        msg,
		},
	}

	if id > 0 {
		event.Id = id
	}
	return event
}

func ErrInvalidEvent(id int) *types.ServerEvent {
	return errResponse(id, http.StatusBadRequest, "invalid event format")
}

func ErrBadRequest(id int, msg string) *types.ServerEvent {
	return errResponse(id, http.StatusBadRequest, msg)
}

func ErrNotAuthenticated(id int) *types.ServerEvent {
	return errResponse(id, http.StatusUnauthorized, "authentication required")
}

func ErrAlreadyAuthenticated(id int) *types.ServerEvent {
	return errResponse(id, http.StatusBadRequest, "already authenticated")
}

func ErrInternalError(id int) *types.ServerEvent {
	return errResponse(id, http.StatusInternalServerError, "internal server error")
}
