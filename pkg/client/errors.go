package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrSessionExpired is returned by Refresh when the backend rejects the
// refresh credential; the session is over and the user must log in again.
var ErrSessionExpired = errors.New("session expired")

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassAuth represents 401 authorization failures.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassClient represents other 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// classify categorizes a status code for observability.
func classify(statusCode int) ErrorClass {
	switch {
	case statusCode == http.StatusUnauthorized:
		return ErrorClassAuth
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// APIError represents a non-2xx response from the Pokédex backend.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s error (status %d): %s", e.Class, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api %s error (status %d)", e.Class, e.StatusCode)
}

// newAPIError builds an APIError from a response, consuming its body.
// The backend reports failures as {"message": "..."}.
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Class:      classify(resp.StatusCode),
		Message:    resp.Status,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	if err != nil {
		return apiErr
	}

	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		apiErr.Message = payload.Message
	}
	return apiErr
}
