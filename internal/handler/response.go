package handler

import (
	stderrors "errors"
	"net/http"

	"github.com/jwalitptl/notify-engine/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// HTTPStatus maps service-layer error codes to HTTP status codes.
// Unknown errors are treated as internal.
func HTTPStatus(err error) int {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrBadRequest, errors.ErrValidation:
		return http.StatusBadRequest
	case errors.ErrConflict:
		return http.StatusConflict
	case errors.ErrUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// ErrorBody pairs the mapped status code with the standard error
// envelope for a service-layer error.
func ErrorBody(err error) (int, *Response) {
	return HTTPStatus(err), NewErrorResponse(err.Error())
}
