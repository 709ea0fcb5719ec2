package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies the error envelope status and message
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	var env ErrorEnvelope
	AssertJSONResponse(t, resp, &env)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, expectedMessage, "error message mismatch")
}

// AssertSanitized checks that no credential material leaked into a user payload
func AssertSanitized(t *testing.T, user UserData) {
	t.Helper()
	assert.Nil(t, user.Password, "password must not be returned")
	assert.Nil(t, user.PasswordHash, "password hash must not be returned")
	assert.Nil(t, user.RefreshToken, "refresh token must not be returned")
}
