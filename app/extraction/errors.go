package extraction

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"google.golang.org/genai"
)

var (
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrMalformedResponse = errors.New("malformed response")
	ErrUnknownType       = errors.New("unknown extraction type")
	ErrNotConfigured     = errors.New("no extraction backend configured")
)

type ErrorKind string

const (
	KindQuotaExhausted    ErrorKind = "quota_exhausted"
	KindBackend           ErrorKind = "backend"
	KindMalformedResponse ErrorKind = "malformed_response"
)

// Error is the fatal outcome of an extraction call.
type Error struct {
	Kind     ErrorKind
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extraction failed (%s after %d attempt(s)): %v", e.Kind, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// quotaPattern matches rate-limit text in messages from backends that do not
// return a typed API error. A bare 429 only counts next to http, code or status.
var quotaPattern = regexp.MustCompile(`(?i)RESOURCE_EXHAUSTED|too many requests|\b(?:http|code|status)[\s:=]*429\b`)

// IsQuotaError reports whether err signals rate limiting by the backend.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) && isQuotaAPIError(apiErr) {
		return true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && isQuotaAPIError(*apiErrPtr) {
		return true
	}

	return quotaPattern.MatchString(err.Error())
}

func isQuotaAPIError(apiErr genai.APIError) bool {
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED"
}

func classify(err error) ErrorKind {
	switch {
	case IsQuotaError(err):
		return KindQuotaExhausted
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	default:
		return KindBackend
	}
}
