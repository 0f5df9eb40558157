package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/signupform/signup/api/internal/app/migrate"
	"github.com/signupform/signup/api/internal/domain"
	"github.com/signupform/signup/api/internal/repository"
	"github.com/signupform/signup/api/internal/repository/sqlite"
	"github.com/signupform/signup/api/internal/service/registration"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupRouter(t *testing.T) (*Router, repository.UserRepository) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.db")
	runner, err := migrate.New("sqlite", sqlite.DSN(path), discardLogger())
	if err != nil {
		t.Fatalf("migrate.New: %v", err)
	}
	if err := runner.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	db, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	repo := sqlite.New(db)
	svc := registration.New(repo, discardLogger(), bcrypt.MinCost)
	return NewRouter(discardLogger(), svc), repo
}

type brokenRepo struct{ err error }

func (b brokenRepo) CreateUser(ctx context.Context, user *domain.User) error { return b.err }
func (b brokenRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, b.err
}
func (b brokenRepo) CountUsers(ctx context.Context) (int64, error) { return 0, b.err }
func (b brokenRepo) Ping(ctx context.Context) error                 { return b.err }

func postRegister(t *testing.T, router http.Handler, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	var resp envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return rr.Code, resp
}

func countUsers(t *testing.T, repo repository.UserRepository) int64 {
	t.Helper()
	n, err := repo.CountUsers(context.Background())
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	return n
}

const juanBody = `{"fullname":"Juan Perez","email":"juanperez@example.com","password":"P@ssword1"}`

func TestRegisterSuccessThenDuplicate(t *testing.T) {
	router, repo := setupRouter(t)

	code, resp := postRegister(t, router, juanBody)
	if code != http.StatusOK || resp.Status != "success" || resp.Message != "registration successful" {
		t.Fatalf("unexpected first response: %d %+v", code, resp)
	}
	user, err := repo.GetUserByEmail(context.Background(), "juanperez@example.com")
	if err != nil {
		t.Fatalf("stored user missing: %v", err)
	}
	if user.FullName != "Juan Perez" {
		t.Fatalf("unexpected full name %q", user.FullName)
	}

	code, resp = postRegister(t, router, juanBody)
	if code != http.StatusOK {
		t.Fatalf("duplicate must answer 200, got %d", code)
	}
	if resp.Status != "error" || resp.Message != "email already registered" {
		t.Fatalf("unexpected duplicate response: %+v", resp)
	}
	if n := countUsers(t, repo); n != 1 {
		t.Fatalf("expected 1 row after duplicate, got %d", n)
	}
}

func TestRegisterRejectionsLeaveNoRows(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		code    int
		message string
	}{
		{"empty fields", `{"fullname":"","email":"","password":""}`, http.StatusBadRequest, "missing required fields"},
		{"missing keys", `{}`, http.StatusBadRequest, "missing required fields"},
		{"null body", `null`, http.StatusBadRequest, "invalid request format"},
		{"string body", `"x"`, http.StatusBadRequest, "invalid request format"},
		{"number body", `42`, http.StatusBadRequest, "invalid request format"},
		{"bad email", `{"fullname":"Juan","email":"juanperez-at-example.com","password":"P@ssword1"}`, http.StatusBadRequest, "invalid email format"},
		{"not json", `fullname=Juan`, http.StatusBadRequest, "invalid request format"},
		{"truncated json", `{"fullname":"Juan"`, http.StatusBadRequest, "invalid request format"},
		{"trailing data", juanBody + `{}`, http.StatusBadRequest, "invalid request format"},
		{"wrong type", `{"fullname":42,"email":"a@b.co","password":"P@ssword1"}`, http.StatusBadRequest, "invalid request format"},
		{"array body", `[]`, http.StatusBadRequest, "invalid request format"},
		{"padded email", `{"fullname":"Juan","email":" juan@example.com","password":"P@ssword1"}`, http.StatusBadRequest, "fields should not start or end with spaces"},
		{"name too short", `{"fullname":"Jo","email":"juan@example.com","password":"P@ssword1"}`, http.StatusBadRequest, "full name must be at least 3 characters"},
		{"name too long", `{"fullname":"` + strings.Repeat("a", 51) + `","email":"juan@example.com","password":"P@ssword1"}`, http.StatusBadRequest, "full name is too long"},
		{"digits in name", `{"fullname":"Juan 3","email":"juan@example.com","password":"P@ssword1"}`, http.StatusBadRequest, "name should not contain numbers"},
		{"uppercase email", `{"fullname":"Juan","email":"Juan@example.com","password":"P@ssword1"}`, http.StatusBadRequest, "email should be lowercase only"},
		{"weak password", `{"fullname":"Juan","email":"juan@example.com","password":"password"}`, http.StatusBadRequest, "password must be 8+ characters and include uppercase, lowercase, number and special symbol"},
		{"long password", `{"fullname":"Juan","email":"juan@example.com","password":"P@ssword1` + strings.Repeat("x", 22) + `"}`, http.StatusBadRequest, "password is too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, repo := setupRouter(t)
			code, resp := postRegister(t, router, tt.body)
			if code != tt.code {
				t.Fatalf("expected status %d, got %d", tt.code, code)
			}
			if resp.Status != "error" || resp.Message != tt.message {
				t.Fatalf("unexpected response %+v", resp)
			}
			if n := countUsers(t, repo); n != 0 {
				t.Fatalf("expected no rows, got %d", n)
			}
		})
	}
}

func TestRegisterIgnoresConfirmation(t *testing.T) {
	router, repo := setupRouter(t)
	body := `{"fullname":"Juan Perez","email":"juan@example.com","password":"P@ssword1","confirm_password":"different"}`
	code, resp := postRegister(t, router, body)
	if code != http.StatusOK || resp.Status != "success" {
		t.Fatalf("unexpected response %d %+v", code, resp)
	}
	if n := countUsers(t, repo); n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
}

func TestRegisterIgnoresContentType(t *testing.T) {
	router, _ := setupRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(juanBody))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRegisterStorageFailureHidesDetails(t *testing.T) {
	svc := registration.New(brokenRepo{err: errors.New("pq: connection refused on 10.0.0.5")}, discardLogger(), bcrypt.MinCost)
	router := NewRouter(discardLogger(), svc)

	code, resp := postRegister(t, router, juanBody)
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
	if resp.Status != "error" || resp.Message != "internal server error" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestRegisterRejectsOtherMethods(t *testing.T) {
	router, _ := setupRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/register", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	router, _ := setupRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	down := NewRouter(discardLogger(), registration.New(brokenRepo{err: errors.New("down")}, discardLogger(), bcrypt.MinCost))
	rr = httptest.NewRecorder()
	down.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["status"] != "degraded" {
		t.Fatalf("unexpected health payload %v", payload)
	}
}

func TestFormPage(t *testing.T) {
	router, _ := setupRouter(t)
	for _, path := range []string{"/", "/form.html"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Fatalf("%s: unexpected content type %q", path, ct)
		}
		body := rr.Body.String()
		for _, id := range []string{`id="fullname"`, `id="email"`, `id="password"`, `id="confirm_password"`, `id="submit"`, `id="validation_message"`} {
			if !strings.Contains(body, id) {
				t.Fatalf("%s: form missing %s", path, id)
			}
		}
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown path, got %d", rr.Code)
	}
}

func TestAuditSetsRequestID(t *testing.T) {
	router, _ := setupRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}

func TestMetricsExposeRegistrationOutcomes(t *testing.T) {
	router, _ := setupRouter(t)
	postRegister(t, router, `{"fullname":"","email":"","password":""}`)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `signup_api_registrations_total{outcome="validation_failed",rule="not-empty"}`) {
		t.Fatalf("registration counter missing from metrics output")
	}
	if !strings.Contains(body, "signup_api_http_requests_total") {
		t.Fatalf("request counter missing from metrics output")
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := clientIP(req); got != "192.0.2.1" {
		t.Fatalf("unexpected ip %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("unexpected forwarded ip %q", got)
	}
}
