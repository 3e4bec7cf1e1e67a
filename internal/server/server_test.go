package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-multierror"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/roster/internal/config"
	"github.com/nfrund/roster/internal/domain"
	"github.com/nfrund/roster/internal/module"
	"github.com/nfrund/roster/internal/pubsub"
	"github.com/nfrund/roster/internal/registry"
	"github.com/nfrund/roster/internal/userdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adaID = "users:ada"

// profiles serves one fixed profile and accepts every mutation.
type profiles struct{}

func (profiles) Profile(_ context.Context, userID string) (*domain.Profile, error) {
	if userID != adaID {
		return nil, nil
	}
	return &domain.Profile{ID: adaID, Username: "ada", UserType: domain.UserTypeEscort}, nil
}
func (profiles) Pictures(context.Context, string) ([]domain.Picture, error) {
	return []domain.Picture{{ID: "pictures:1", URL: "https://cdn.example.com/1.jpg"}}, nil
}
func (profiles) Rates(context.Context, string) ([]domain.Rate, error)               { return nil, nil }
func (profiles) Testimonials(context.Context, string) ([]domain.Testimonial, error) { return nil, nil }
func (profiles) Stories(context.Context, string) ([]domain.Story, error)           { return nil, nil }
func (profiles) Bookmarks(context.Context, string) ([]domain.Bookmark, error)       { return nil, nil }

func (p profiles) UpdateProfile(ctx context.Context, userID string, _ domain.ProfileUpdate) (*domain.Profile, error) {
	return p.Profile(ctx, userID)
}
func (p profiles) SetAvailability(ctx context.Context, userID string, _ domain.AvailabilityUpdate) (*domain.Profile, error) {
	return p.Profile(ctx, userID)
}
func (profiles) AddPicture(context.Context, string, domain.NewPicture) (*domain.Picture, error) {
	return &domain.Picture{}, nil
}
func (profiles) DeletePicture(context.Context, string, string) error { return nil }
func (profiles) AddRate(context.Context, string, domain.NewRate) (*domain.Rate, error) {
	return &domain.Rate{}, nil
}
func (profiles) DeleteRate(context.Context, string, string) error { return nil }
func (p profiles) AddService(ctx context.Context, userID string, _ domain.NewService) (*domain.Profile, error) {
	return p.Profile(ctx, userID)
}
func (p profiles) DeleteService(ctx context.Context, userID, _ string) (*domain.Profile, error) {
	return p.Profile(ctx, userID)
}
func (profiles) AddTestimonial(context.Context, string, domain.NewTestimonial) (*domain.Testimonial, error) {
	return &domain.Testimonial{}, nil
}
func (profiles) ToggleBookmark(context.Context, string, string) (bool, error) { return true, nil }
func (profiles) AddStory(context.Context, string, domain.NewStory) (*domain.Story, error) {
	return &domain.Story{}, nil
}
func (profiles) DeleteStory(context.Context, string, string) error { return nil }
func (p profiles) AddPlacesOfService(ctx context.Context, userID string, _ domain.NewPlacesOfService) (*domain.Profile, error) {
	return p.Profile(ctx, userID)
}
func (profiles) RateProfile(_ context.Context, _, targetID string) (*domain.Profile, error) {
	return &domain.Profile{ID: targetID, Ratings: 1}, nil
}

type users struct{}

func (users) SignIn(_ context.Context, creds domain.Credentials) (string, error) {
	if creds.Email != "ada@example.com" || creds.Password != "correct horse" {
		return "", domain.ErrInvalidCredentials
	}
	return adaToken()
}

// SignUp registers ada only; any other email is taken.
func (users) SignUp(_ context.Context, reg domain.Registration) (string, error) {
	if err := reg.Validate(); err != nil {
		return "", err
	}
	if reg.Email != "ada@example.com" {
		return "", domain.ErrUserAlreadyExists
	}
	return adaToken()
}

func adaToken() (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"ID":  adaID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	return tok.SignedString([]byte("backend-secret"))
}

// recorder is a module that records its lifecycle.
type recorder struct {
	module.BaseModule
	name string
	log  *[]string
	err  error
}

func (r *recorder) Name() string { return r.name }
func (r *recorder) Register(*registry.Registry) error {
	*r.log = append(*r.log, "register "+r.name)
	return nil
}
func (r *recorder) Boot(_ context.Context, g *echo.Group, _ *registry.Registry) error {
	*r.log = append(*r.log, "boot "+r.name)
	return nil
}
func (r *recorder) Shutdown(context.Context) error {
	*r.log = append(*r.log, "shutdown "+r.name)
	return r.err
}

func testConfig() *config.Config {
	return &config.Config{
		ServerAddr:        ":0",
		AppBaseURL:        "http://localhost:8080",
		SessionSecret:     "0123456789abcdef0123456789abcdef",
		CacheBackend:      config.CacheBackendMemory,
		CacheFetchTimeout: 5 * time.Second,
	}
}

func newTestServer(t *testing.T, modules []module.Module) *Server {
	t.Helper()
	bus := pubsub.NewWatermillBridge()
	s, err := New(testConfig(), Dependencies{
		Profiles:   profiles{},
		Users:      users{},
		Publisher:  bus,
		Subscriber: bus,
		Stores:     userdata.MemoryStoreFactory(),
		Modules:    modules,
		closers:    []func(context.Context) error{func(context.Context) error { return bus.Close() }},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func serve(s *Server, req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.E.ServeHTTP(rec, req)
	return rec
}

// lastCookies keeps the final Set-Cookie per name, as a browser would.
func lastCookies(rec *httptest.ResponseRecorder) []*http.Cookie {
	byName := map[string]int{}
	var out []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if i, ok := byName[c.Name]; ok {
			out[i] = c
			continue
		}
		byName[c.Name] = len(out)
		out = append(out, c)
	}
	return out
}

func TestNew_RejectsIncompleteDependencies(t *testing.T) {
	_, err := New(testConfig(), Dependencies{Profiles: profiles{}})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestModuleLifecycle(t *testing.T) {
	var log []string
	s := newTestServer(t, []module.Module{
		&recorder{name: "a", log: &log},
		&recorder{name: "b", log: &log},
	})
	require.NoError(t, s.Shutdown(context.Background()))

	assert.Equal(t, []string{
		"register a", "register b",
		"boot a", "boot b",
		"shutdown b", "shutdown a",
	}, log)
}

func TestShutdown_ReportsEveryModuleFailure(t *testing.T) {
	var log []string
	s := newTestServer(t, []module.Module{
		&recorder{name: "a", log: &log, err: errors.New("a stuck")},
		&recorder{name: "b", log: &log},
		&recorder{name: "c", log: &log, err: errors.New("c stuck")},
	})

	err := s.Shutdown(context.Background())

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
	assert.Contains(t, err.Error(), "module c: c stuck")
	assert.Contains(t, err.Error(), "module a: a stuck")
	assert.Contains(t, log, "shutdown b")
}

func TestAppRequiresSignIn(t *testing.T) {
	s := newTestServer(t, AppModules())

	req := httptest.NewRequest(http.MethodGet, "/app/me", nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec := serve(s, req, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/app/me/page", nil)
	req.Header.Set(echo.HeaderAccept, "text/html")
	rec = serve(s, req, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get(echo.HeaderLocation))
}

func TestSignInThenReadUserData(t *testing.T) {
	s := newTestServer(t, AppModules())

	form := url.Values{"email": {"ada@example.com"}, "password": {"correct horse"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec := serve(s, req, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := lastCookies(rec)
	require.NotEmpty(t, cookies)

	req = httptest.NewRequest(http.MethodGet, "/app/me?wait=true", nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec = serve(s, req, cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body userdataBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
	assert.False(t, body.IsLoading)
	require.NotNil(t, body.Data.User)
	assert.Equal(t, "ada", body.Data.User.Username)
	assert.Len(t, body.Data.Pictures, 1)
	assert.Equal(t, 1, s.manager.Len())
}

func TestSignUpThenReadUserData(t *testing.T) {
	s := newTestServer(t, AppModules())

	signup := func(email string) *httptest.ResponseRecorder {
		form := url.Values{
			"email": {email}, "password": {"correct horse"}, "username": {"ada"},
			"userType": {domain.UserTypeEscort}, "age": {"30"},
		}
		req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
		return serve(s, req, nil)
	}

	rec := signup("taken@example.com")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = signup("ada@example.com")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), adaID)
	cookies := lastCookies(rec)
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/app/me?wait=true", nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec = serve(s, req, cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body userdataBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Data.User)
	assert.Equal(t, adaID, body.Data.User.ID)
}

func TestSignUpRejectsMinors(t *testing.T) {
	s := newTestServer(t, AppModules())

	body := `{"email":"ada@example.com","password":"correct horse","username":"ada","userType":"escort","age":17}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := serve(s, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Must be 18 or older to register.")

	req = httptest.NewRequest(http.MethodGet, "/auth/signup", nil)
	rec = serve(s, req, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/auth/signup"`)
}

type userdataBody struct {
	Data      userdata.Bundle `json:"data"`
	IsLoading bool            `json:"isLoading"`
	Status    string          `json:"status"`
}

func TestHTTPErrorHandler_WithStackTrace(t *testing.T) {
	e := echo.New()

	var logBuffer bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuffer, &slog.HandlerOptions{AddSource: true}))
	original := slog.Default()
	slog.SetDefault(logger)
	defer slog.SetDefault(original)

	setupErrorHandling(e)
	e.GET("/test-unhandled-error", func(c echo.Context) error {
		return errors.New("a deliberate unhandled error occurred")
	})
	e.GET("/test-http-error", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test-unhandled-error", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	logOutput := logBuffer.String()
	assert.Contains(t, logOutput, "Internal Server Error (Unhandled)")
	assert.Contains(t, logOutput, `error="a deliberate unhandled error occurred"`)
	assert.Contains(t, logOutput, "stack_trace=")
	assert.Contains(t, logOutput, "runtime/debug/stack.go")
	assert.Contains(t, logOutput, "internal/server/server_test.go")

	logBuffer.Reset()
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test-http-error", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, logBuffer.String(), "deliberate HTTP errors are not logged")
}

func TestStaticAssets(t *testing.T) {
	s := newTestServer(t, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/static/roster.css", nil), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".container")
}
