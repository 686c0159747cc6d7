package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures surfaced to the presentation layer.
type ErrorKind string

const (
	ErrorKindAuth       ErrorKind = "auth"
	ErrorKindProvider   ErrorKind = "provider"
	ErrorKindTransport  ErrorKind = "transport"
	ErrorKindNoResponse ErrorKind = "no_response"
)

// User-facing messages. These strings are shown verbatim in the chat view.
const (
	MsgNoAccessToken = "No Access Token found, please provide access token from your OpenAI platform like OpenAI or PSChat"
	MsgTokenExpired  = "Seems like your Access token is expired, please provide a new Access Token from your OpenAI platform like OpenAI or PSChat"
	MsgTokenInvalid  = "Seems like your Access token is not valid, please provide valid Access Token from your OpenAI platform like OpenAI or PSChat"
	MsgContextLength = `Oops!! looks like you crossed the content length due to long chat history

 Either clear the history by clicking on above Delete Chat History Button or use an AI Model with higher max-token size by updating the AI Code Companion extension settings`
	MsgInternalServerError = "Internal Server Error from API"
	MsgNoChoices           = "Failed to fetch API and no Choices returned."
	MsgInvalidJSON         = "Error parsing response JSON: - not valid JSON from API"
	MsgNoResponse          = "No Response from AI Provider"
	MsgAbortedByUser       = "Request aborted by User"
	MsgTimedOut            = "Request timed out, please try again."
)

// APIError is the single normalized error value for every failure the
// orchestrator reports. Message is surfaced verbatim.
type APIError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Aborted    bool
	Err        error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAuthError creates an error for a missing, expired or invalid credential.
func NewAuthError(statusCode int, message string) *APIError {
	return &APIError{Kind: ErrorKindAuth, StatusCode: statusCode, Message: message}
}

// NewProviderError creates an error for an in-band provider failure.
func NewProviderError(message string) *APIError {
	return &APIError{Kind: ErrorKindProvider, Message: message}
}

// NewTransportError creates an error for a failed round trip.
func NewTransportError(statusCode int, message string, err error) *APIError {
	return &APIError{Kind: ErrorKindTransport, StatusCode: statusCode, Message: message, Err: err}
}

// NewAbortError creates the error a cancelled request resolves into.
func NewAbortError(reason string) *APIError {
	if reason == "" {
		reason = MsgAbortedByUser
	}
	return &APIError{Kind: ErrorKindTransport, Message: reason, Aborted: true}
}

// NewNoResponseError creates the fan-out failure, optionally annotated with
// the most specific transport error seen.
func NewNoResponseError(detail string) *APIError {
	msg := MsgNoResponse
	if detail != "" {
		msg = fmt.Sprintf("%s \n %s", MsgNoResponse, detail)
	}
	return &APIError{Kind: ErrorKindNoResponse, Message: msg}
}

// StatusError builds the message for a non-2xx response.
func StatusError(statusCode int, statusText string) *APIError {
	msg := fmt.Sprintf("API call failed with status code: %d and error message: %s", statusCode, statusText)
	if statusCode == 412 {
		return NewAuthError(statusCode, msg+"\n"+MsgTokenExpired)
	}
	if statusCode == 401 {
		return NewAuthError(statusCode, msg)
	}
	return NewTransportError(statusCode, msg, nil)
}

// IsAborted reports whether err is a cancelled request.
func IsAborted(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Aborted
}

// AsAPIError normalizes any error into an *APIError.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewTransportError(0, err.Error(), err)
}

// AuthDetail returns the user-facing credential hint for an auth failure,
// or an empty string when err carries none.
func AuthDetail(err error) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return ""
	}
	switch {
	case apiErr.StatusCode == 401:
		return MsgTokenInvalid
	case apiErr.StatusCode == 412:
		return MsgTokenExpired
	case apiErr.Kind == ErrorKindAuth && strings.Contains(apiErr.Message, "status code: 401"):
		return MsgTokenInvalid
	}
	return ""
}
