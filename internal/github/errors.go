package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotConfigured is returned, without any network I/O, when no
// credential has been set.
var ErrNotConfigured = errors.New("github: credential not configured")

// ErrorKind classifies a terminal API failure.
type ErrorKind int

const (
	KindClientError ErrorKind = iota
	KindTimeout
	KindNetworkFailure
	KindRateLimited
	KindServerError
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetworkFailure:
		return "network_failure"
	case KindRateLimited:
		return "rate_limited"
	case KindServerError:
		return "server_error"
	default:
		return "client_error"
	}
}

// APIError is the terminal failure of one logical API call, after retries.
type APIError struct {
	// StatusCode is the last observed HTTP status; 408 for timeouts and 0
	// when no response was ever received.
	StatusCode int

	// Message is the API's "message" field, or "HTTP <status>" when the
	// body is not a JSON error document.
	Message string

	// RawBody is the unparsed response body, if any.
	RawBody []byte

	Kind ErrorKind
}

func (err *APIError) Error() string {
	if err.StatusCode == 0 {
		return fmt.Sprintf("github: %s: %s", err.Kind, err.Message)
	}
	return fmt.Sprintf("github: HTTP %d: %s", err.StatusCode, err.Message)
}

// kindForStatus maps an HTTP status to its error kind.
func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusRequestTimeout:
		return KindTimeout
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindServerError
	default:
		return KindClientError
	}
}

// parseAPIErrorFromBody builds an APIError from a non-2xx response.
func parseAPIErrorFromBody(status int, body []byte) *APIError {
	apiError := &APIError{StatusCode: status, RawBody: body, Kind: kindForStatus(status)}

	var wire struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &wire) == nil && wire.Message != "" {
		apiError.Message = wire.Message
	} else {
		apiError.Message = fmt.Sprintf("HTTP %d", status)
	}
	return apiError
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is a 401 response. Callers should ask
// for a new credential.
func IsUnauthorized(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == http.StatusUnauthorized
}

// IsRateLimited reports whether err is a 429 response.
func IsRateLimited(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.Kind == KindRateLimited
}

// IsTimeout reports whether err is a request timeout.
func IsTimeout(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.Kind == KindTimeout
}
