package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/hugh/zenshin-chart/internal/auth"
	"github.com/hugh/zenshin-chart/internal/database"
	"github.com/hugh/zenshin-chart/internal/database/models"
	"github.com/hugh/zenshin-chart/internal/permissions"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an isolated in-memory SQLite database with every
// application table migrated.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { CleanupTestDB(t, db) })
	return db
}

// SetupMockDB returns a gorm handle backed by sqlmock for driving store
// failures that SQLite cannot produce on demand.
func SetupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open gorm over sqlmock: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db, mock
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// CreateTestUser creates an active user with password "testpassword123".
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Base:         models.Base{ID: uuid.New()},
		Email:        "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash: hash,
		Name:         "Test User",
		IsActive:     true,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateTestWorkspace creates a workspace owned by owner.
func CreateTestWorkspace(t *testing.T, db *gorm.DB, owner *models.User, name string) *models.Workspace {
	t.Helper()

	ws := &models.Workspace{
		Base: models.Base{ID: uuid.New()},
		Name: name,
	}
	if err := db.Create(ws).Error; err != nil {
		t.Fatalf("failed to create test workspace: %v", err)
	}
	AddTestMember(t, db, ws.ID, owner.ID, permissions.RoleOwner)

	return ws
}

// AddTestMember inserts a membership row.
func AddTestMember(t *testing.T, db *gorm.DB, workspaceID, userID uuid.UUID, role permissions.Role) *models.WorkspaceMember {
	t.Helper()

	m := &models.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to add test member: %v", err)
	}
	return m
}

// CreateTestChart creates an active chart in the workspace.
func CreateTestChart(t *testing.T, db *gorm.DB, workspaceID, createdBy uuid.UUID, title string) *models.Chart {
	t.Helper()

	chart := &models.Chart{
		Base:        models.Base{ID: uuid.New()},
		WorkspaceID: workspaceID,
		Title:       title,
		Status:      models.ChartStatusActive,
		CreatedBy:   createdBy,
	}
	if err := db.Create(chart).Error; err != nil {
		t.Fatalf("failed to create test chart: %v", err)
	}
	return chart
}

// CreateTestInvitation stores an invitation with the given code and expiry.
func CreateTestInvitation(t *testing.T, db *gorm.DB, workspaceID, invitedBy uuid.UUID, code string, role permissions.Role, expiresAt time.Time) *models.Invitation {
	t.Helper()

	inv := &models.Invitation{
		Base:        models.Base{ID: uuid.New()},
		Code:        code,
		WorkspaceID: workspaceID,
		Role:        role,
		InvitedBy:   invitedBy,
		ExpiresAt:   expiresAt,
	}
	if err := db.Create(inv).Error; err != nil {
		t.Fatalf("failed to create test invitation: %v", err)
	}
	return inv
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.Email)
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

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
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

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	User       *models.User
	Workspace  *models.Workspace
	Token      string
}

// NewTestContext creates a DB with one user owning one workspace, plus a token.
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	user := CreateTestUser(t, db)
	ws := CreateTestWorkspace(t, db, user, "Test Workspace")
	token := GenerateTestToken(t, jwtService, user)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		User:       user,
		Workspace:  ws,
		Token:      token,
	}
}

// NewMember creates another user and joins them to the setup's workspace.
func (ts *TestSetup) NewMember(t *testing.T, role permissions.Role) (*models.User, string) {
	t.Helper()

	user := CreateTestUser(t, ts.DB)
	AddTestMember(t, ts.DB, ts.Workspace.ID, user.ID, role)
	return user, GenerateTestToken(t, ts.JWTService, user)
}
