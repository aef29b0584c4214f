// crushnote/handlers/main_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Ali-GR/CrushNoteApp/database"
	"github.com/Ali-GR/CrushNoteApp/models"
	"github.com/Ali-GR/CrushNoteApp/moderation"
	"github.com/Ali-GR/CrushNoteApp/utils"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	testJWTSecret = "test-secret"
	testModKey    = "mod-key-123"
)

// MockApplication holds dependencies for handler tests.
type MockApplication struct {
	db          *database.DatabaseService
	pipeline    *moderation.Pipeline
	rateLimiter *models.RateLimiter
	logger      *slog.Logger
	modKeyHash  []byte
}

func (a *MockApplication) DB() *database.DatabaseService       { return a.db }
func (a *MockApplication) Pipeline() *moderation.Pipeline      { return a.pipeline }
func (a *MockApplication) RateLimiter() *models.RateLimiter    { return a.rateLimiter }
func (a *MockApplication) Logger() *slog.Logger                { return a.logger }
func (a *MockApplication) JWTSecret() []byte                   { return []byte(testJWTSecret) }
func (a *MockApplication) ModKeyHash() []byte                  { return a.modKeyHash }
func (a *MockApplication) BackupStorage() utils.StorageService { return nil }

// stubClassifier returns a canned verdict or error for pipeline tests.
type stubClassifier struct {
	result *moderation.ClassifierResult
	err    error
}

func (s *stubClassifier) Classify(ctx context.Context, input string) (*moderation.ClassifierResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// setupTestApp creates a full application stack with a test database.
func setupTestApp(t *testing.T, classifier moderation.TextClassifier) (*MockApplication, *chi.Mux) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	dbDir, err := os.MkdirTemp("", "crushnote_test_db_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir for test DB: %v", err)
	}
	dbPath := filepath.Join(dbDir, "test.db") + "?_journal_mode=WAL&_foreign_keys=on"
	dbService, err := database.InitDB(dbPath, logger)
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	if classifier == nil {
		classifier = &stubClassifier{result: &moderation.ClassifierResult{Flagged: false}}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(testModKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash mod key: %v", err)
	}

	app := &MockApplication{
		db:          dbService,
		pipeline:    moderation.NewPipeline(dbService, classifier, logger),
		rateLimiter: models.NewRateLimiter(time.Millisecond, 1000, time.Hour, time.Hour),
		logger:      logger,
		modKeyHash:  hash,
	}

	t.Cleanup(func() {
		app.db.DB.Close()
		os.RemoveAll(dbDir)
	})

	return app, SetupRouter(app)
}

// tokenFor signs a short-lived HS256 token for the given subject.
func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return signed
}

// doJSON performs a request against the router with optional auth and body.
func doJSON(t *testing.T, router *chi.Mux, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// doJSONWithHeader is doJSON with an extra header instead of bearer auth.
func doJSONWithHeader(t *testing.T, router *chi.Mux, method, path string, body interface{}, header, value string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(header, value)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// seedUser creates a profile in the seeded school and returns it with a token.
func seedUser(t *testing.T, app *MockApplication, id, nickname string) (*models.Profile, string) {
	t.Helper()
	schools, err := app.db.ListSchools()
	if err != nil || len(schools) == 0 {
		t.Fatalf("Expected a seeded school, got err %v", err)
	}
	profile, err := app.db.CreateProfile(id, nickname, schools[0].ID)
	if err != nil {
		t.Fatalf("Failed to create profile: %v", err)
	}
	return profile, tokenFor(t, id)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}
