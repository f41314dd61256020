package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies what went wrong from the user's point of view.
type Kind string

const (
	KindOffline     Kind = "offline"
	KindNetwork     Kind = "network"
	KindTimeout     Kind = "timeout"
	KindRateLimited Kind = "rate_limited"
	KindServer      Kind = "server"
	KindAuth        Kind = "auth_required"
	KindForbidden   Kind = "forbidden"
	KindNotFound    Kind = "not_found"
	KindGeneric     Kind = "generic"
)

// Class groups kinds by how a caller should react.
type Class string

const (
	ClassOffline   Class = "offline"
	ClassTransient Class = "transient"
	ClassClient    Class = "client"
)

// Remediation is display text for a failure and the step the user can take.
type Remediation struct {
	Message string
	Action  string
}

var remediations = map[Kind]Remediation{
	KindOffline: {
		Message: "You are currently offline. Please check your internet connection.",
		Action:  "Check your network connection and try again when online.",
	},
	KindNetwork: {
		Message: "Unable to connect to the server.",
		Action:  "Please check your internet connection and try again.",
	},
	KindTimeout: {
		Message: "Request timed out.",
		Action:  "The server took too long to respond. Please try again in a moment.",
	},
	KindRateLimited: {
		Message: "Too many requests.",
		Action:  "Please wait a moment before trying again.",
	},
	KindServer: {
		Message: "Server error occurred.",
		Action:  "The server encountered an error. Please try again in a moment.",
	},
	KindAuth: {
		Message: "Authentication required.",
		Action:  "Please refresh the page and log in again.",
	},
	KindForbidden: {
		Message: "Access denied.",
		Action:  "You do not have permission to perform this action.",
	},
	KindNotFound: {
		Message: "Resource not found.",
		Action:  "The requested item may have been deleted or does not exist.",
	},
}

const genericAction = "Please try again. If the problem persists, refresh the page."

// Error is returned for every failed request that reached classification.
type Error struct {
	Method   string
	Endpoint string
	Kind     Kind
	Status   int // 0 when no response was received

	// Message is the server's own message, from detail or message in the body.
	Message string
	// Detail holds a structured detail object verbatim, if the body had one.
	Detail json.RawMessage

	Remediation Remediation
	Attempts    int
	Err         error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Remediation.Message
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Endpoint, e.Status, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Endpoint, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Class() Class {
	switch e.Kind {
	case KindOffline:
		return ClassOffline
	case KindNetwork, KindTimeout, KindRateLimited, KindServer:
		return ClassTransient
	}
	return ClassClient
}

// Retryable reports whether another attempt could succeed.
func (e *Error) Retryable() bool {
	if e.Status != 0 {
		return retryableStatus[e.Status]
	}
	return e.Kind == KindNetwork || e.Kind == KindTimeout
}

// DecodeDetail unmarshals the structured detail object into v. It fails if the
// error body carried only a string detail.
func (e *Error) DecodeDetail(v any) error {
	if len(e.Detail) == 0 {
		return errors.New("error has no structured detail")
	}
	return json.Unmarshal(e.Detail, v)
}

// UserMessage is the one-line text to show for the failure.
func (e *Error) UserMessage() string {
	if e.Kind == KindGeneric && e.Message != "" {
		return e.Message
	}
	return e.Remediation.Message
}

var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// kindForStatus classifies an HTTP error status.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500 && status < 600:
		return KindServer
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	}
	return KindGeneric
}

func newError(method, endpoint string, kind Kind, status int, msg string, err error) *Error {
	rem, ok := remediations[kind]
	if !ok {
		m := msg
		if m == "" {
			m = fmt.Sprintf("HTTP error! status: %d", status)
		}
		rem = Remediation{Message: m, Action: genericAction}
	}
	return &Error{
		Method:      method,
		Endpoint:    endpoint,
		Kind:        kind,
		Status:      status,
		Message:     msg,
		Remediation: rem,
		Err:         err,
	}
}

// errorBody is the API's error envelope: detail may be a string or an object.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

// parseErrorBody extracts the message and, for object details, the raw detail.
func parseErrorBody(body []byte) (msg string, detail json.RawMessage) {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return "", nil
	}
	if len(eb.Detail) > 0 {
		var s string
		if err := json.Unmarshal(eb.Detail, &s); err == nil {
			return s, nil
		}
		if eb.Detail[0] == '{' {
			var inner struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(eb.Detail, &inner)
			msg = inner.Message
			if msg == "" {
				msg = string(eb.Detail)
			}
			return msg, eb.Detail
		}
		// Validation errors arrive as a list; keep the text.
		return string(eb.Detail), nil
	}
	return eb.Message, nil
}
