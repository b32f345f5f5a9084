// Package testhelpers provides shared fixtures and assertions for toolbridge tests.
package testhelpers

import (
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mcpjungle/toolbridge/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestSetup holds a migrated database and the function that releases it.
type TestSetup struct {
	DB      *gorm.DB
	Cleanup func()
}

// CommandAnnotationTest describes one expected cobra command annotation.
type CommandAnnotationTest struct {
	Key      string
	Expected string
}

// CreateTestDB opens a private in-memory SQLite database.
// The schema is not migrated. The pool is limited to one connection since every
// new connection to ":memory:" would see an empty database of its own.
func CreateTestDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// SetupTestDB creates an in-memory database with the registry schema.
func SetupTestDB(t *testing.T) *TestSetup {
	t.Helper()

	db, err := CreateTestDB()
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := db.AutoMigrate(&model.McpServer{}, &model.Tool{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return &TestSetup{
		DB: db,
		Cleanup: func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		},
	}
}

// SetupMCPTest prepares the fixtures needed by MCP service tests.
func SetupMCPTest(t *testing.T) *TestSetup {
	t.Helper()
	return SetupTestDB(t)
}

// NewUpstreamMCPServer starts an in-process MCP server reachable over streamable HTTP.
// register adds the tools the test needs. The returned URL is valid until the test ends.
func NewUpstreamMCPServer(t *testing.T, name string, register func(s *server.MCPServer)) string {
	t.Helper()

	s := server.NewMCPServer(name, "0.0.1", server.WithToolCapabilities(true))
	if register != nil {
		register(s)
	}

	ts := httptest.NewServer(server.NewStreamableHTTPServer(s))
	t.Cleanup(ts.Close)
	return ts.URL + "/mcp"
}

// TestCommandAnnotations checks a cobra command's annotations against the expected values.
func TestCommandAnnotations(t *testing.T, annotations map[string]string, tests []CommandAnnotationTest) {
	t.Helper()
	for _, tt := range tests {
		got, ok := annotations[tt.Key]
		if !ok {
			t.Errorf("expected annotation %q to be set", tt.Key)
			continue
		}
		if got != tt.Expected {
			t.Errorf("annotation %q: expected %q, got %q", tt.Key, tt.Expected, got)
		}
	}
}

func AssertEqual(t *testing.T, expected, actual any) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Errorf("expected %v, got %v", expected, actual)
	}
}

func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Error("expected an error, got nil")
	}
}

// AssertErrorContains checks that err is non-nil and its message contains substr.
func AssertErrorContains(t *testing.T, err error, substr string) {
	t.Helper()
	if err == nil {
		t.Errorf("expected an error containing %q, got nil", substr)
		return
	}
	if !strings.Contains(err.Error(), substr) {
		t.Errorf("expected error containing %q, got %q", substr, err.Error())
	}
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func AssertNotNil(t *testing.T, v any) {
	t.Helper()
	if v == nil {
		t.Fatal("expected a non-nil value")
		return
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			t.Fatal("expected a non-nil value")
		}
	}
}

func AssertTrue(t *testing.T, condition bool, message string) {
	t.Helper()
	if !condition {
		t.Error(message)
	}
}
