package httpresponse

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

type APIError struct {
	ErrorMessage string `json:"error_message"`
}

// NewError logs message and wraps it for a JSON response body.
func NewError(message string) *APIError {
	log.Error(message)
	return &APIError{
		ErrorMessage: message,
	}
}

func NewErrorf(format string, a ...interface{}) *APIError {
	return NewError(fmt.Sprintf(format, a...))
}

// Error writes message as a JSON error with the given status code.
func Error(res http.ResponseWriter, code int, message string) {
	body, err := json.Marshal(NewError(message))
	if err != nil {
		http.Error(res, message, code)
		return
	}
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(code)
	_, _ = res.Write(body)
}

func Errorf(res http.ResponseWriter, code int, format string, a ...interface{}) {
	Error(res, code, fmt.Sprintf(format, a...))
}
