package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v66/github"
)

// ErrorType represents different categories of GitHub API errors
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "authentication"
	ErrorTypePermission ErrorType = "permission"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// GitHubError represents a structured error from GitHub operations.
// Message carries the message reported by GitHub when one was returned.
type GitHubError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Cause      error     `json:"-"`
	Resource   string    `json:"resource,omitempty"`
	Field      string    `json:"field,omitempty"`
	Code       string    `json:"code,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
}

// Error implements the error interface
func (e *GitHubError) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.Resource != "" {
		msg = fmt.Sprintf("%s error for %s: %s", e.Type, e.Resource, e.Message)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status code: %d)", msg, e.StatusCode)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *GitHubError) Unwrap() error {
	return e.Cause
}

// NewGitHubError creates a new GitHubError with the specified type and message
func NewGitHubError(errorType ErrorType, message string, cause error) *GitHubError {
	return &GitHubError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// IsErrorType reports whether err wraps a GitHubError of the given type
func IsErrorType(err error, errorType ErrorType) bool {
	var ghErr *GitHubError
	if errors.As(err, &ghErr) {
		return ghErr.Type == errorType
	}
	return false
}

// WrapGitHubError wraps a GitHub API error into our structured error type
func WrapGitHubError(err error, resource string) *GitHubError {
	if err == nil {
		return nil
	}

	var ghErr *GitHubError
	if errors.As(err, &ghErr) {
		if ghErr.Resource == "" {
			ghErr.Resource = resource
		}
		return ghErr
	}

	// Rate limit errors are checked first: they are also ErrorResponses in spirit
	// but go-github reports them with their own type.
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &GitHubError{
			Type:       ErrorTypeRateLimit,
			Message:    fmt.Sprintf("rate limit exceeded, resets at %v", rateErr.Rate.Reset.Time),
			Cause:      err,
			Resource:   resource,
			StatusCode: statusOf(rateErr.Response),
		}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &GitHubError{
			Type:       ErrorTypeRateLimit,
			Message:    abuseErr.Message,
			Cause:      err,
			Resource:   resource,
			StatusCode: statusOf(abuseErr.Response),
		}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		return parseGitHubAPIError(respErr, resource)
	}

	if isNetworkError(err) {
		return &GitHubError{
			Type:     ErrorTypeNetwork,
			Message:  err.Error(),
			Cause:    err,
			Resource: resource,
		}
	}

	return &GitHubError{
		Type:     ErrorTypeUnknown,
		Message:  err.Error(),
		Cause:    err,
		Resource: resource,
	}
}

// newStatusError builds an error for a response whose status code was not accepted
// by the caller even though go-github did not report a failure.
func newStatusError(resp *github.Response, resource, expected string) *GitHubError {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	return &GitHubError{
		Type:       classifyStatus(status),
		Message:    fmt.Sprintf("unexpected response status, expected %s", expected),
		Resource:   resource,
		StatusCode: status,
	}
}

// parseGitHubAPIError parses GitHub API error responses into structured errors
func parseGitHubAPIError(ghErr *github.ErrorResponse, resource string) *GitHubError {
	status := statusOf(ghErr.Response)
	baseErr := &GitHubError{
		Type:       classifyStatus(status),
		Message:    ghErr.Message,
		Resource:   resource,
		Cause:      ghErr,
		StatusCode: status,
	}

	if status == http.StatusForbidden && strings.Contains(strings.ToLower(ghErr.Message), "rate limit") {
		baseErr.Type = ErrorTypeRateLimit
	}

	if status == http.StatusUnprocessableEntity && len(ghErr.Errors) > 0 {
		var details []string
		for _, e := range ghErr.Errors {
			detail := e.Message
			if e.Field != "" {
				detail = fmt.Sprintf("%s: %s", e.Field, e.Code)
				if e.Message != "" {
					detail = fmt.Sprintf("%s: %s", e.Field, e.Message)
				}
				if baseErr.Field == "" {
					baseErr.Field = e.Field
					baseErr.Code = e.Code
				}
			}
			if detail != "" {
				details = append(details, detail)
			}
		}
		if len(details) > 0 {
			baseErr.Message = fmt.Sprintf("%s: %s", ghErr.Message, strings.Join(details, "; "))
		}
	}

	if baseErr.Message == "" {
		baseErr.Message = http.StatusText(status)
	}

	return baseErr
}

// classifyStatus maps an HTTP status code onto an ErrorType
func classifyStatus(status int) ErrorType {
	switch status {
	case http.StatusUnauthorized:
		return ErrorTypeAuth
	case http.StatusForbidden:
		return ErrorTypePermission
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusConflict:
		return ErrorTypeConflict
	case http.StatusUnprocessableEntity:
		return ErrorTypeValidation
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrorTypeNetwork
	default:
		return ErrorTypeUnknown
	}
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

// isNetworkError checks if an error is a network-related error
func isNetworkError(err error) bool {
	errStr := strings.ToLower(err.Error())
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"connection timeout",
		"network is unreachable",
		"no such host",
		"timeout",
		"dial tcp",
		"i/o timeout",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// ValidationError represents a single configuration violation
type ValidationError struct {
	Environment string `json:"environment,omitempty"`
	Field       string `json:"field"`
	Message     string `json:"message"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Environment != "" {
		return fmt.Sprintf("environment %q: %s: %s", e.Environment, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	if len(e) == 1 {
		return e[0].Error()
	}

	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(e), strings.Join(messages, "; "))
}

// Add adds a validation error to the collection
func (e *ValidationErrors) Add(environment, field, message string) {
	*e = append(*e, ValidationError{
		Environment: environment,
		Field:       field,
		Message:     message,
	})
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// ForEnvironment returns the violations recorded for one environment
func (e ValidationErrors) ForEnvironment(name string) ValidationErrors {
	var out ValidationErrors
	for _, v := range e {
		if v.Environment == name {
			out = append(out, v)
		}
	}
	return out
}

// AsError wraps the collection into a validation GitHubError, or returns nil when empty
func (e ValidationErrors) AsError() error {
	if !e.HasErrors() {
		return nil
	}
	return &GitHubError{
		Type:    ErrorTypeValidation,
		Message: e.Error(),
		Cause:   e,
	}
}
