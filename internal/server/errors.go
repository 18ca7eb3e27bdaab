// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"net/http"

	"github.com/pdiddy/paper-survey/internal/aggregate"
	"github.com/pdiddy/paper-survey/internal/intent"
	"github.com/pdiddy/paper-survey/internal/task"
	"github.com/pdiddy/paper-survey/pkg/types"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInvalidQuery     = "INVALID_QUERY"
	CodeTaskNotFound     = "TASK_NOT_FOUND"
	CodeAllSourcesFailed = "ALL_SOURCES_FAILED"
	CodeIntentParse      = "INTENT_PARSE_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestError marks a malformed request body or missing parameter.
type requestError struct{ msg string }

func (e requestError) Error() string { return e.msg }

// errorStatus maps err to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	var req requestError
	var all *aggregate.AllSourcesFailedError
	switch {
	case errors.As(err, &req):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, types.ErrInvalidQuery):
		return http.StatusBadRequest, CodeInvalidQuery
	case errors.Is(err, task.ErrTaskNotFound):
		return http.StatusNotFound, CodeTaskNotFound
	case errors.As(err, &all):
		return http.StatusBadGateway, CodeAllSourcesFailed
	case errors.Is(err, intent.ErrIntentParse):
		return http.StatusUnprocessableEntity, CodeIntentParse
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
