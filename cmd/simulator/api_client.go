package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
)

// APIClient handles HTTP communication with the backend
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL + "/api/v1/users",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Response types matching backend

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

type User struct {
	ID         string `json:"_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FullName   string `json:"fullName"`
	Avatar     string `json:"avatar"`
	CoverImage string `json:"coverImage"`
}

type Session struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RegisterUser creates a new account with a generated avatar
func (c *APIClient) RegisterUser(baseName, password string, withCover bool) (*User, error) {
	username := fmt.Sprintf("%s_%d", baseName, time.Now().UnixNano()%100000)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fields := map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": password,
		"fullName": baseName,
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := writeImage(mw, "avatar", color.NRGBA{R: 220, G: 80, B: 60, A: 255}); err != nil {
		return nil, err
	}
	if withCover {
		if err := writeImage(mw, "coverImage", color.NRGBA{R: 40, G: 120, B: 200, A: 255}); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", c.baseURL+"/register", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	defer resp.Body.Close()

	var user User
	if err := decode(resp, http.StatusCreated, "register", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login opens a session by username
func (c *APIClient) Login(username, password string) (*Session, error) {
	resp, err := c.post("/login", map[string]string{"username": username, "password": password}, "")
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	var session Session
	if err := decode(resp, http.StatusOK, "login", &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Refresh rotates a refresh token
func (c *APIClient) Refresh(refreshToken string) (*Session, error) {
	resp, err := c.post("/refreshAccessToken", map[string]string{"refreshToken": refreshToken}, "")
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	var session Session
	if err := decode(resp, http.StatusOK, "refresh", &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CurrentUser fetches the user behind an access token
func (c *APIClient) CurrentUser(token string) (*User, error) {
	resp, err := c.get("/getUser", token)
	if err != nil {
		return nil, fmt.Errorf("get user request failed: %w", err)
	}
	defer resp.Body.Close()

	var user User
	if err := decode(resp, http.StatusOK, "get user", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword replaces the account password
func (c *APIClient) ChangePassword(token, oldPassword, newPassword string) error {
	resp, err := c.post("/changePassword", map[string]string{
		"oldPassword": oldPassword,
		"newPassword": newPassword,
	}, token)
	if err != nil {
		return fmt.Errorf("change password request failed: %w", err)
	}
	defer resp.Body.Close()

	return decode(resp, http.StatusOK, "change password", nil)
}

// Logout ends the session
func (c *APIClient) Logout(token string) error {
	resp, err := c.post("/logout", nil, token)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()

	return decode(resp, http.StatusOK, "logout", nil)
}

func writeImage(mw *multipart.Writer, field string, fill color.NRGBA) error {
	fw, err := mw.CreateFormFile(field, field+".png")
	if err != nil {
		return err
	}
	return imaging.Encode(fw, imaging.New(64, 64, fill), imaging.PNG)
}

func decode(resp *http.Response, want int, action string, v interface{}) error {
	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		return fmt.Errorf("%s failed (status %d): %s", action, resp.StatusCode, string(bodyBytes))
	}
	if v == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}

func (c *APIClient) get(path string, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

func (c *APIClient) post(path string, body interface{}, token string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest("POST", c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}
