package xero

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"
)

// ValidationError is one entry of a Xero validation exception.
type ValidationError struct {
	Message string `json:"Message"`
}

// ErrorElement is the rejected entity of a validation exception.
type ErrorElement struct {
	ValidationErrors []ValidationError `json:"ValidationErrors,omitempty"`
}

// APIError is returned for every non-2xx response from Xero.
type APIError struct {
	StatusCode  int            `json:"-"`
	ErrorNumber int            `json:"ErrorNumber,omitempty"`
	Type        string         `json:"Type,omitempty"`
	Title       string         `json:"Title,omitempty"`
	Detail      string         `json:"Detail,omitempty"`
	Message     string         `json:"Message,omitempty"`
	Elements    []ErrorElement `json:"Elements,omitempty"`
	// Body holds the raw response when it is not a Xero error document.
	Body string `json:"-"`
}

// Error implements error.
func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	msg := e.Detail
	if msg == "" {
		msg = strings.Join(e.ValidationMessages(), "; ")
	}
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		msg = e.Title
	}
	if msg == "" {
		msg = e.Body
	}

	return fmt.Sprintf("xero api [%d] %s", e.StatusCode, msg)
}

// ValidationMessages flattens the validation errors of all elements.
func (e *APIError) ValidationMessages() []string {
	if e == nil {
		return nil
	}

	var msgs []string
	for _, elem := range e.Elements {
		for _, verr := range elem.ValidationErrors {
			if m := strings.TrimSpace(verr.Message); m != "" {
				msgs = append(msgs, m)
			}
		}
	}

	return msgs
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr, true
	}

	return nil, false
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	if len(body) == 0 {
		return apiErr
	}

	if err := json.Unmarshal(body, apiErr); err != nil {
		apiErr.Body = strings.TrimSpace(string(body))
	}

	return apiErr
}
