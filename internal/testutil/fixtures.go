package testutil

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"image/color"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/dom/accounts-api/internal/domain"
	"github.com/dom/accounts-api/internal/repository"
	"github.com/dom/accounts-api/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	username string
	email    string
	password string
	fullName string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		username: "testuser_" + suffix,
		email:    "testuser_" + suffix + "@example.com",
		password: "testpassword123",
		fullName: "Test User",
	}
}

// WithUsername sets the username
func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.username = username
	return b
}

// WithEmail sets the email
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// WithFullName sets the full name
func (b *UserBuilder) WithFullName(name string) *UserBuilder {
	b.fullName = name
	return b
}

// Build stores the user through repo and returns it with the raw password
func (b *UserBuilder) Build(t *testing.T, repo repository.UserRepository) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     b.username,
		Email:        b.email,
		PasswordHash: string(hashedPassword),
		FullName:     b.fullName,
		Avatar:       "https://cdn.test/avatar/seed.png",
	}

	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// Envelope matches the API success envelope
type Envelope[T any] struct {
	StatusCode int    `json:"statusCode"`
	Data       T      `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorEnvelope matches the API error envelope
type ErrorEnvelope = domain.ErrorResponse

// UserData is the sanitized user as clients see it. Password and
// RefreshToken capture fields that must never be present.
type UserData struct {
	ID           string  `json:"_id"`
	Username     string  `json:"username"`
	Email        string  `json:"email"`
	FullName     string  `json:"fullName"`
	Avatar       string  `json:"avatar"`
	CoverImage   string  `json:"coverImage"`
	Password     *string `json:"password"`
	PasswordHash *string `json:"passwordHash"`
	RefreshToken *string `json:"refreshToken"`
}

// AuthData matches the login and refresh payloads
type AuthData struct {
	User         UserData `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

// FormFile is one file part of a multipart request
type FormFile struct {
	Field    string
	Filename string
	Content  []byte
}

// PNGBytes returns a small encoded PNG
func PNGBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	var buf bytes.Buffer
	img := imaging.New(w, h, color.NRGBA{R: 30, G: 144, B: 255, A: 255})
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// PNGHeaderOnly returns a PNG signature and a valid IHDR chunk declaring
// w x h RGBA pixels, with no image data behind it.
func PNGHeaderOnly(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.Write([]byte("\x89PNG\r\n\x1a\n"))

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA

	chunk := append([]byte("IHDR"), ihdr...)
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

// StageFile writes content to a temp file and wraps it as a staged upload
func StageFile(t *testing.T, field, filename string, content []byte) *storage.LocalFile {
	t.Helper()

	path := filepath.Join(t.TempDir(), "staged-"+uuid.New().String()[:8]+filepath.Ext(filename))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to stage file: %v", err)
	}
	return &storage.LocalFile{Path: path, Field: field, Filename: filename, ContentType: "image/png"}
}

// MultipartBody builds a multipart/form-data body
func MultipartBody(t *testing.T, fields map[string]string, files []FormFile) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := fw.Write(f.Content); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return body, mw.FormDataContentType()
}

// Register calls the register endpoint with an avatar and returns the response
func Register(t *testing.T, ts *TestServer, username, email, password, fullName string) *http.Response {
	t.Helper()

	body, contentType := MultipartBody(t, map[string]string{
		"username": username,
		"email":    email,
		"password": password,
		"fullName": fullName,
	}, []FormFile{{Field: "avatar", Filename: "avatar.png", Content: PNGBytes(t, 16, 16)}})

	resp, err := http.Post(ts.APIURL("/register"), contentType, body)
	if err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	return resp
}

// Login calls the login endpoint and decodes the tokens
func Login(t *testing.T, ts *TestServer, username, password string) AuthData {
	t.Helper()

	payload, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(ts.APIURL("/login"), "application/json", bytes.NewBuffer(payload))
	if err != nil {
		t.Fatalf("failed to login: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed with status %d", resp.StatusCode)
	}

	var result Envelope[AuthData]
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return result.Data
}

// BuildAndAuthenticate registers the user via the API, logs in and returns the tokens
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) AuthData {
	t.Helper()

	resp := Register(t, ts, b.username, b.email, b.password, b.fullName)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register failed with status %d", resp.StatusCode)
	}

	return Login(t, ts, b.username, b.password)
}

// CreateAuthenticatedRequest creates an HTTP request with auth token
func CreateAuthenticatedRequest(t *testing.T, method, url string, body interface{}, token string) *http.Request {
	t.Helper()

	var bodyReader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	} else {
		bodyReader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// FindCookie returns the named cookie from a response
func FindCookie(resp *http.Response, name string) (*http.Cookie, error) {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("cookie %q not set", name)
}
