package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrInvalidRequest = &AppError{http.StatusBadRequest, "invalid_request", "Invalid request body"}
	ErrInternalError  = &AppError{http.StatusInternalServerError, "internal_error", "An unexpected error occurred"}
)
