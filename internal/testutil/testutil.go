package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/tenant-task-api/internal/auth"
	"github.com/yukikurage/tenant-task-api/internal/database"
	"github.com/yukikurage/tenant-task-api/internal/models"
	"github.com/yukikurage/tenant-task-api/internal/tenant"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TestPassword is the plain password of every seeded user
const TestPassword = "testpassword123"

// SetupTestDB creates a migrated in-memory SQLite database. The pool is
// pinned to one connection so every query sees the same memory database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open(":memory:"), false)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CreateTestOrg creates a test organization
func CreateTestOrg(t *testing.T, db *gorm.DB, name string) *models.Organization {
	t.Helper()

	org := &models.Organization{
		Name:       name,
		InviteCode: "code-" + uuid.NewString()[:8],
	}
	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}
	return org
}

// CreateTestUser creates a user of org with the given role
func CreateTestUser(t *testing.T, db *gorm.DB, org *models.Organization, name string, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Name:           name,
		Email:          "test-" + uuid.NewString()[:8] + "@example.com",
		PasswordHash:   string(hash),
		Role:           role,
		OrganizationID: org.ID,
	}
	if err := db.Omit("Organization").Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestProject creates a project of org
func CreateTestProject(t *testing.T, db *gorm.DB, org *models.Organization, name string) *models.Project {
	t.Helper()

	project := &models.Project{
		Name:           name,
		OrganizationID: org.ID,
	}
	if err := db.Omit("Organization").Create(project).Error; err != nil {
		t.Fatalf("failed to create test project: %v", err)
	}
	return project
}

// Tenant is one seeded organization with an admin, a member and a project
type Tenant struct {
	Org     *models.Organization
	Admin   *models.User
	Member  *models.User
	Project *models.Project
}

// AdminIdentity returns the identity of the tenant's admin
func (tn *Tenant) AdminIdentity() tenant.Identity {
	return Identity(tn.Admin)
}

// MemberIdentity returns the identity of the tenant's member
func (tn *Tenant) MemberIdentity() tenant.Identity {
	return Identity(tn.Member)
}

// SeedTenant creates a complete organization
func SeedTenant(t *testing.T, db *gorm.DB, name string) *Tenant {
	t.Helper()

	org := CreateTestOrg(t, db, name)
	return &Tenant{
		Org:     org,
		Admin:   CreateTestUser(t, db, org, name+" Admin", models.RoleAdmin),
		Member:  CreateTestUser(t, db, org, name+" Member", models.RoleMember),
		Project: CreateTestProject(t, db, org, name+" Project"),
	}
}

// Identity builds the identity a user resolves to
func Identity(user *models.User) tenant.Identity {
	return tenant.Identity{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Role:           user.Role,
	}
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// FixedClock returns a controllable UTC clock starting at start
type FixedClock struct {
	now time.Time
}

func NewFixedClock(start time.Time) *FixedClock {
	return &FixedClock{now: start.UTC()}
}

func (c *FixedClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward
func (c *FixedClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
