package github

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitHubError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *GitHubError
		expected string
	}{
		{
			name:     "message only",
			err:      &GitHubError{Type: ErrorTypeAuth, Message: "Bad credentials"},
			expected: "authentication error: Bad credentials",
		},
		{
			name:     "with resource",
			err:      &GitHubError{Type: ErrorTypeNotFound, Message: "Not Found", Resource: "user ghost"},
			expected: "not_found error for user ghost: Not Found",
		},
		{
			name: "with status code",
			err: &GitHubError{
				Type:       ErrorTypePermission,
				Message:    "Resource not accessible by integration",
				Resource:   "environment prod in o/r",
				StatusCode: 403,
			},
			expected: "permission error for environment prod in o/r: Resource not accessible by integration (status code: 403)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestGitHubError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewGitHubError(ErrorTypeUnknown, "wrapped", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsErrorType(fmt.Errorf("context: %w", err), ErrorTypeUnknown))
	assert.False(t, IsErrorType(cause, ErrorTypeUnknown))
}

func githubResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Request:    &http.Request{Method: http.MethodGet},
	}
}

func TestWrapGitHubError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedType   ErrorType
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "not found",
			err:            &github.ErrorResponse{Response: githubResponse(404), Message: "Not Found"},
			expectedType:   ErrorTypeNotFound,
			expectedStatus: 404,
			expectedMsg:    "Not Found",
		},
		{
			name:           "unauthorized",
			err:            &github.ErrorResponse{Response: githubResponse(401), Message: "Bad credentials"},
			expectedType:   ErrorTypeAuth,
			expectedStatus: 401,
		},
		{
			name:           "forbidden rate limit message",
			err:            &github.ErrorResponse{Response: githubResponse(403), Message: "API rate limit exceeded for user"},
			expectedType:   ErrorTypeRateLimit,
			expectedStatus: 403,
		},
		{
			name: "validation details",
			err: &github.ErrorResponse{
				Response: githubResponse(422),
				Message:  "Validation Failed",
				Errors: []github.Error{
					{Resource: "Environment", Field: "reviewers", Code: "invalid"},
					{Message: "name already exists"},
				},
			},
			expectedType:   ErrorTypeValidation,
			expectedStatus: 422,
			expectedMsg:    "Validation Failed: reviewers: invalid; name already exists",
		},
		{
			name:           "empty message uses status text",
			err:            &github.ErrorResponse{Response: githubResponse(409)},
			expectedType:   ErrorTypeConflict,
			expectedStatus: 409,
			expectedMsg:    "Conflict",
		},
		{
			name: "rate limit error",
			err: &github.RateLimitError{
				Response: githubResponse(403),
				Rate:     github.Rate{Reset: github.Timestamp{Time: time.Unix(1893456000, 0)}},
				Message:  "API rate limit exceeded",
			},
			expectedType:   ErrorTypeRateLimit,
			expectedStatus: 403,
		},
		{
			name:         "network",
			err:          errors.New("dial tcp 127.0.0.1:443: connect: connection refused"),
			expectedType: ErrorTypeNetwork,
		},
		{
			name:         "unknown",
			err:          errors.New("something odd"),
			expectedType: ErrorTypeUnknown,
			expectedMsg:  "something odd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapGitHubError(tt.err, "resource")

			require.NotNil(t, wrapped)
			assert.Equal(t, tt.expectedType, wrapped.Type)
			assert.Equal(t, tt.expectedStatus, wrapped.StatusCode)
			assert.Equal(t, "resource", wrapped.Resource)
			assert.ErrorIs(t, wrapped, tt.err)
			if tt.expectedMsg != "" {
				assert.Equal(t, tt.expectedMsg, wrapped.Message)
			}
		})
	}
}

func TestWrapGitHubError_KeepsExisting(t *testing.T) {
	assert.Nil(t, WrapGitHubError(nil, "resource"))

	original := &GitHubError{Type: ErrorTypeConflict, Message: "exists"}
	wrapped := WrapGitHubError(fmt.Errorf("outer: %w", original), "environment dev")

	assert.Same(t, original, wrapped)
	assert.Equal(t, "environment dev", wrapped.Resource)
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	assert.False(t, errs.HasErrors())
	assert.NoError(t, errs.AsError())

	errs.Add("prod", "required_reviewers", "missing")
	assert.Equal(t, `environment "prod": required_reviewers: missing`, errs.Error())

	errs.Add("", "labels", "too many")
	assert.True(t, errs.HasErrors())
	assert.Equal(t,
		`validation failed with 2 errors: environment "prod": required_reviewers: missing; labels: too many`,
		errs.Error())
	assert.Len(t, errs.ForEnvironment("prod"), 1)
	assert.Empty(t, errs.ForEnvironment("dev"))

	err := errs.AsError()
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrorTypeValidation))

	var violations ValidationErrors
	require.True(t, errors.As(err, &violations))
	assert.Equal(t, errs, violations)
}
