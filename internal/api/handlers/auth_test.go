package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dom/accounts-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, url string, body interface{}, token string, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req := testutil.CreateAuthenticatedRequest(t, http.MethodPost, url, body, token)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestRegisterLoginLogoutRefresh(t *testing.T) {
	ts := testutil.NewTestServer(t)

	// register
	resp := testutil.Register(t, ts, "alice", "a@x.io", "pw1", "Alice A")
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	var registered testutil.Envelope[testutil.UserData]
	testutil.AssertJSONResponse(t, resp, &registered)
	assert.True(t, registered.Success)
	assert.Equal(t, http.StatusCreated, registered.StatusCode)
	assert.Equal(t, "alice", registered.Data.Username)
	assert.Equal(t, "a@x.io", registered.Data.Email)
	assert.NotEmpty(t, registered.Data.ID)
	assert.NotEmpty(t, registered.Data.Avatar)
	assert.Empty(t, registered.Data.CoverImage)
	testutil.AssertSanitized(t, registered.Data)

	// login
	loginResp := postJSON(t, ts.APIURL("/login"), map[string]string{"username": "alice", "password": "pw1"}, "")
	defer loginResp.Body.Close()
	testutil.AssertStatusCode(t, loginResp, http.StatusOK)

	accessCookie, err := testutil.FindCookie(loginResp, "accessToken")
	require.NoError(t, err)
	refreshCookie, err := testutil.FindCookie(loginResp, "refreshToken")
	require.NoError(t, err)
	assert.True(t, accessCookie.HttpOnly)
	assert.True(t, accessCookie.Secure)
	assert.True(t, refreshCookie.HttpOnly)
	assert.True(t, refreshCookie.Secure)

	var login testutil.Envelope[testutil.AuthData]
	testutil.AssertJSONResponse(t, loginResp, &login)
	assert.Equal(t, accessCookie.Value, login.Data.AccessToken)
	assert.Equal(t, refreshCookie.Value, login.Data.RefreshToken)
	assert.Equal(t, "alice", login.Data.User.Username)
	testutil.AssertSanitized(t, login.Data.User)

	// logout
	logoutResp := postJSON(t, ts.APIURL("/logout"), nil, login.Data.AccessToken)
	defer logoutResp.Body.Close()
	testutil.AssertStatusCode(t, logoutResp, http.StatusOK)

	cleared, err := testutil.FindCookie(logoutResp, "refreshToken")
	require.NoError(t, err)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)

	// refresh with the old token
	refreshResp := postJSON(t, ts.APIURL("/refreshAccessToken"), nil, "", refreshCookie)
	defer refreshResp.Body.Close()
	testutil.AssertErrorResponse(t, refreshResp, http.StatusUnauthorized, "Refresh token is expired or used")
}

func TestAuthHandler_Register(t *testing.T) {
	png := func(t *testing.T) []byte { return testutil.PNGBytes(t, 16, 16) }

	tests := []struct {
		name           string
		fields         map[string]string
		files          func(t *testing.T) []testutil.FormFile
		setup          func(t *testing.T, ts *testutil.TestServer)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:   "with cover image",
			fields: map[string]string{"username": "bob", "email": "b@x.io", "password": "pw", "fullName": "Bob"},
			files: func(t *testing.T) []testutil.FormFile {
				return []testutil.FormFile{
					{Field: "avatar", Filename: "a.png", Content: png(t)},
					{Field: "coverImage", Filename: "c.png", Content: png(t)},
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:   "missing avatar",
			fields: map[string]string{"username": "bob", "email": "b@x.io", "password": "pw", "fullName": "Bob"},
			files: func(t *testing.T) []testutil.FormFile {
				return nil
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Avatar is required",
		},
		{
			name:   "two avatars",
			fields: map[string]string{"username": "bob", "email": "b@x.io", "password": "pw", "fullName": "Bob"},
			files: func(t *testing.T) []testutil.FormFile {
				return []testutil.FormFile{
					{Field: "avatar", Filename: "a.png", Content: png(t)},
					{Field: "avatar", Filename: "b.png", Content: png(t)},
				}
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Only one file is allowed",
		},
		{
			name:   "avatar is not an image",
			fields: map[string]string{"username": "bob", "email": "b@x.io", "password": "pw", "fullName": "Bob"},
			files: func(t *testing.T) []testutil.FormFile {
				return []testutil.FormFile{{Field: "avatar", Filename: "a.png", Content: []byte("plain text")}}
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Avatar upload failed",
		},
		{
			name:   "avatar header declares huge dimensions",
			fields: map[string]string{"username": "bob", "email": "b@x.io", "password": "pw", "fullName": "Bob"},
			files: func(t *testing.T) []testutil.FormFile {
				return []testutil.FormFile{{Field: "avatar", Filename: "a.png", Content: testutil.PNGHeaderOnly(50000, 50000)}}
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Avatar upload failed",
		},
		{
			name:   "missing fields",
			fields: map[string]string{"username": "bob", "password": "pw"},
			files: func(t *testing.T) []testutil.FormFile {
				return []testutil.FormFile{{Field: "avatar", Filename: "a.png", Content: png(t)}}
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "All fields are required",
		},
		{
			name:   "duplicate username",
			fields: map[string]string{"username": "Bob", "email": "other@x.io", "password": "pw", "fullName": "Bob"},
			files: func(t *testing.T) []testutil.FormFile {
				return []testutil.FormFile{{Field: "avatar", Filename: "a.png", Content: png(t)}}
			},
			setup: func(t *testing.T, ts *testutil.TestServer) {
				testutil.NewUserBuilder().WithUsername("bob").Build(t, ts.Repos.User)
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "User with this email or username already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := testutil.NewTestServer(t)
			if tt.setup != nil {
				tt.setup(t, ts)
			}

			body, contentType := testutil.MultipartBody(t, tt.fields, tt.files(t))
			resp, err := http.Post(ts.APIURL("/register"), contentType, body)
			require.NoError(t, err)
			defer resp.Body.Close()

			if tt.expectedMsg != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedMsg)
				return
			}

			testutil.AssertStatusCode(t, resp, tt.expectedStatus)
			var result testutil.Envelope[testutil.UserData]
			testutil.AssertJSONResponse(t, resp, &result)
			assert.NotEmpty(t, result.Data.Avatar)
			assert.NotEmpty(t, result.Data.CoverImage)
		})
	}
}

func TestAuthHandler_RegisterRejectsJSON(t *testing.T) {
	ts := testutil.NewTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "bob"})
	resp, err := http.Post(ts.APIURL("/register"), "application/json", bytes.NewBuffer(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Invalid multipart form")
}

func TestAuthHandler_RegisterBodyLimit(t *testing.T) {
	ts := testutil.NewTestServer(t)

	big := make([]byte, ts.Config.MaxUploadBytes+1024)
	body, contentType := testutil.MultipartBody(t,
		map[string]string{"username": "bob", "email": "b@x.io", "password": "pw", "fullName": "Bob"},
		[]testutil.FormFile{{Field: "avatar", Filename: "a.png", Content: big}},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	ts.Server.Config.Handler.ServeHTTP(rec, req)

	testutil.AssertErrorResponse(t, rec.Result(), http.StatusBadRequest, "Request body is too large")
}

func TestAuthHandler_Login(t *testing.T) {
	ts := testutil.NewTestServer(t)
	testutil.NewUserBuilder().
		WithUsername("alice").
		WithEmail("a@x.io").
		WithPassword("pw1").
		Build(t, ts.Repos.User)

	tests := []struct {
		name           string
		request        map[string]string
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "by username",
			request:        map[string]string{"username": "alice", "password": "pw1"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "by email",
			request:        map[string]string{"email": "a@x.io", "password": "pw1"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "wrong password",
			request:        map[string]string{"username": "alice", "password": "nope"},
			expectedStatus: http.StatusUnauthorized,
			expectedMsg:    "Invalid user credentials",
		},
		{
			name:           "unknown user",
			request:        map[string]string{"username": "ghost", "password": "pw1"},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "User does not exist",
		},
		{
			name:           "no identifier",
			request:        map[string]string{"password": "pw1"},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Username or email is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.APIURL("/login"), tt.request, "")
			defer resp.Body.Close()

			if tt.expectedMsg != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedMsg)
				return
			}

			testutil.AssertStatusCode(t, resp, tt.expectedStatus)
			var result testutil.Envelope[testutil.AuthData]
			testutil.AssertJSONResponse(t, resp, &result)
			assert.NotEmpty(t, result.Data.AccessToken)
			assert.NotEmpty(t, result.Data.RefreshToken)
		})
	}
}

func TestAuthHandler_LoginInvalidBody(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp, err := http.Post(ts.APIURL("/login"), "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	defer resp.Body.Close()

	testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "Invalid request body")
}

func TestAuthHandler_RefreshAccessToken(t *testing.T) {
	ts := testutil.NewTestServer(t)
	session := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	// rotate using the cookie
	resp := postJSON(t, ts.APIURL("/refreshAccessToken"), nil, "",
		&http.Cookie{Name: "refreshToken", Value: session.RefreshToken})
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var rotated testutil.Envelope[testutil.AuthData]
	testutil.AssertJSONResponse(t, resp, &rotated)
	assert.NotEmpty(t, rotated.Data.AccessToken)
	assert.NotEqual(t, session.RefreshToken, rotated.Data.RefreshToken)

	newCookie, err := testutil.FindCookie(resp, "refreshToken")
	require.NoError(t, err)
	assert.Equal(t, rotated.Data.RefreshToken, newCookie.Value)

	// rotate again using the body
	bodyResp := postJSON(t, ts.APIURL("/refreshAccessToken"),
		map[string]string{"refreshToken": rotated.Data.RefreshToken}, "")
	defer bodyResp.Body.Close()
	testutil.AssertStatusCode(t, bodyResp, http.StatusOK)

	// the first token is spent
	replay := postJSON(t, ts.APIURL("/refreshAccessToken"),
		map[string]string{"refreshToken": session.RefreshToken}, "")
	defer replay.Body.Close()
	testutil.AssertErrorResponse(t, replay, http.StatusUnauthorized, "Refresh token is expired or used")

	// nothing presented
	empty := postJSON(t, ts.APIURL("/refreshAccessToken"), nil, "")
	defer empty.Body.Close()
	testutil.AssertErrorResponse(t, empty, http.StatusUnauthorized, "Unauthorized request")
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	ts := testutil.NewTestServer(t)
	builder := testutil.NewUserBuilder().WithUsername("carol").WithPassword("old-pass")
	session := builder.BuildAndAuthenticate(t, ts)

	wrong := postJSON(t, ts.APIURL("/changePassword"),
		map[string]string{"oldPassword": "bad", "newPassword": "new-pass"}, session.AccessToken)
	defer wrong.Body.Close()
	testutil.AssertErrorResponse(t, wrong, http.StatusUnauthorized, "Invalid old password")

	ok := postJSON(t, ts.APIURL("/changePassword"),
		map[string]string{"oldPassword": "old-pass", "newPassword": "new-pass"}, session.AccessToken)
	defer ok.Body.Close()
	testutil.AssertStatusCode(t, ok, http.StatusOK)

	oldLogin := postJSON(t, ts.APIURL("/login"), map[string]string{"username": "carol", "password": "old-pass"}, "")
	defer oldLogin.Body.Close()
	testutil.AssertStatusCode(t, oldLogin, http.StatusUnauthorized)

	testutil.Login(t, ts, "carol", "new-pass")
}
