// Package errors implements the bridge's error taxonomy: a closed set of
// Kinds with a fixed HTTP status each, a JSON responder, and the
// duck-typed-value normalizer used by the runtime loop.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/browserbase/sdk-functions-go/models"
)

// Kind enumerates the closed set of error categories the bridge can produce.
type Kind string

const (
	BadRequest             Kind = "BadRequest"
	NotFound               Kind = "NotFound"
	Unavailable            Kind = "Unavailable"
	SessionProvisionFailed Kind = "SessionProvisionFailed"
	UserHandlerFailed      Kind = "UserHandlerFailed"
	ProtocolMismatch       Kind = "ProtocolMismatch"
	FatalSystem            Kind = "FatalSystem"
)

var statusByKind = map[Kind]int{
	BadRequest:             http.StatusBadRequest,
	NotFound:               http.StatusNotFound,
	Unavailable:            http.StatusServiceUnavailable,
	SessionProvisionFailed: http.StatusInternalServerError,
	UserHandlerFailed:      http.StatusInternalServerError,
	ProtocolMismatch:       http.StatusBadRequest,
	FatalSystem:            http.StatusInternalServerError,
}

// APIError is the error type carried across HTTP handler boundaries. It
// implements error so it can be returned and wrapped like any other Go error.
type APIError struct {
	Kind    Kind
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Status returns the HTTP status code this Kind maps to.
func (e *APIError) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New constructs an APIError of the given kind.
func New(kind Kind, message string, details ...string) *APIError {
	d := ""
	if len(details) > 0 {
		d = details[0]
	}
	return &APIError{Kind: kind, Message: message, Details: d}
}

// jsonErrorBody is the shape sent for every client-facing failure except a
// UserHandlerFailed, which instead carries a nested {message,type,stackTrace}.
type jsonErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

type handlerErrorBody struct {
	Error handlerErrorDetail `json:"error"`
}

type handlerErrorDetail struct {
	Message    string   `json:"message"`
	Type       string   `json:"type"`
	StackTrace []string `json:"stackTrace"`
}

// WriteJSON renders err as the appropriate JSON body with the matching
// status code. Every client-facing failure is JSON, never plain text -
// resolving spec's ambiguous source behavior (§9b) to one canonical shape.
func WriteJSON(w http.ResponseWriter, err *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	_ = json.NewEncoder(w).Encode(jsonErrorBody{
		Error:   err.Message,
		Details: err.Details,
	})
}

// WriteRuntimeError renders a RuntimeError as the handler-failure JSON body,
// used on the external caller's 500 response for a UserHandlerFailed.
func WriteRuntimeError(w http.ResponseWriter, re models.RuntimeError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(handlerErrorBody{
		Error: handlerErrorDetail{
			Message:    re.ErrorMessage,
			Type:       re.ErrorType,
			StackTrace: re.StackTrace,
		},
	})
}

// Normalize converts an arbitrary recovered/thrown value into a RuntimeError,
// following spec §4.4's normalization rules. Stack traces are split on "\n" -
// the source splits on the literal two-character sequence "/n", which the
// spec calls out as likely a bug; we document and use the real newline.
func Normalize(v interface{}) models.RuntimeError {
	re := models.RuntimeError{
		ErrorMessage: "An unknown error occurred",
		ErrorType:    "UnknownError",
		StackTrace:   []string{},
	}

	switch val := v.(type) {
	case models.RuntimeError:
		return val
	case *APIError:
		re.ErrorMessage = val.Message
		re.ErrorType = string(val.Kind)
		return re
	case error:
		re.ErrorMessage = val.Error()
		re.ErrorType = "Error"
		return re
	case string:
		if val != "" {
			re.ErrorMessage = val
		}
		return re
	case map[string]interface{}:
		if msg, ok := val["message"].(string); ok && msg != "" {
			re.ErrorMessage = msg
		} else {
			re.ErrorMessage = fmt.Sprintf("%v", val)
		}
		if name, ok := val["name"].(string); ok && name != "" {
			re.ErrorType = name
		} else if typ, ok := val["type"].(string); ok && typ != "" {
			re.ErrorType = typ
		}
		if stack, ok := val["stack"].(string); ok && stack != "" {
			re.StackTrace = strings.Split(stack, "\n")
		} else if frames, ok := val["stack"].([]string); ok {
			re.StackTrace = frames
		}
		return re
	default:
		re.ErrorMessage = fmt.Sprintf("%v", val)
		return re
	}
}
