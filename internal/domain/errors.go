package domain

import "net/http"

// APIError — ошибка, которая пересекает границу хендлера. Message безопасен
// для пользователя, детали остаются в логах.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func NewBadRequest(message string) *APIError {
	return &APIError{Code: http.StatusBadRequest, Message: message}
}

func NewForbidden(message string) *APIError {
	return &APIError{Code: http.StatusForbidden, Message: message}
}

func NewNotFound(message string) *APIError {
	return &APIError{Code: http.StatusNotFound, Message: message}
}

func NewConflict(message string) *APIError {
	return &APIError{Code: http.StatusConflict, Message: message}
}

func NewInternal(message string) *APIError {
	return &APIError{Code: http.StatusInternalServerError, Message: message}
}
