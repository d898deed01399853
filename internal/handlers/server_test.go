package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/tenant-task-api/internal/auth"
	"github.com/yukikurage/tenant-task-api/internal/middleware"
	"github.com/yukikurage/tenant-task-api/internal/repository"
	"github.com/yukikurage/tenant-task-api/internal/services"
	"github.com/yukikurage/tenant-task-api/internal/testutil"
	"gorm.io/gorm"
)

// testServer is a full router over an in-memory database with two seeded tenants
type testServer struct {
	db     *gorm.DB
	router *gin.Engine
	tokens *auth.JWTService
	clock  *testutil.FixedClock
	acme   *testutil.Tenant
	rival  *testutil.Tenant
}

func newTestServer(t *testing.T, loginLimiter *middleware.RateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	clock := testutil.NewFixedClock(time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC))
	tokens := testutil.CreateTestJWTService()
	repos := repository.New(db, 5*time.Second)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := NewRouter(Dependencies{
		DB:           db,
		Logger:       log,
		SessionStore: cookie.NewStore([]byte("test-session-secret")),
		LoginLimiter: loginLimiter,

		Auth:          services.NewAuthService(repos, tokens),
		Organizations: services.NewOrganizationService(repos),
		Projects:      services.NewProjectService(repos, clock.Now),
		Tasks:         services.NewTaskService(repos, services.NewActivityRecorder(clock.Now), clock.Now),
		Activity:      services.NewActivityService(repos),
		Analytics:     services.NewAnalyticsService(repos, clock.Now),
	})

	return &testServer{
		db:     db,
		router: router,
		tokens: tokens,
		clock:  clock,
		acme:   testutil.SeedTenant(t, db, "Acme"),
		rival:  testutil.SeedTenant(t, db, "Rival"),
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	return ts.serve(testutil.AuthenticatedRequest(t, method, path, body, token))
}

func (ts *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) adminToken(t *testing.T) string {
	return testutil.GenerateTestToken(t, ts.tokens, ts.acme.Admin)
}

func (ts *testServer) memberToken(t *testing.T) string {
	return testutil.GenerateTestToken(t, ts.tokens, ts.acme.Member)
}

func (ts *testServer) rivalToken(t *testing.T) string {
	return testutil.GenerateTestToken(t, ts.tokens, ts.rival.Admin)
}

// errorBody is the envelope every error response uses
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
