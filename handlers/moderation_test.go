// crushnote/handlers/moderation_test.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/Ali-GR/CrushNoteApp/models"
	"github.com/Ali-GR/CrushNoteApp/moderation"
	"github.com/Ali-GR/CrushNoteApp/utils"

	"github.com/go-chi/chi/v5"
)

// reportBody builds the JSON payload for /api/report.
func reportBody(targetID, targetType, reason string) map[string]string {
	return map[string]string{
		"target_id":   targetID,
		"target_type": targetType,
		"reason":      reason,
	}
}

// createPostAs creates a post through the API and returns it.
func createPostAs(t *testing.T, router *chi.Mux, token, content string) models.Post {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/posts", token, map[string]string{"content": content})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Failed to create post: %d %s", rec.Code, rec.Body.String())
	}
	var post models.Post
	decodeResponse(t, rec, &post)
	return post
}

func TestReportStaysPendingWhenClassifierIsDown(t *testing.T) {
	app, router := setupTestApp(t, &stubClassifier{err: errors.New("unreachable")})
	_, authorToken := seedUser(t, app, "user-a", "anon_falcon")
	_, reporterToken := seedUser(t, app, "user-b", "anon_otter")

	post := createPostAs(t, router, authorToken, "questionable")

	rec := doJSON(t, router, http.MethodPost, "/api/report", reporterToken, reportBody(post.ID, "post", "insult"))
	if rec.Code != http.StatusOK {
		t.Fatalf("Classifier outage must not fail the report: %d %s", rec.Code, rec.Body.String())
	}
	var outcome models.ReportOutcome
	decodeResponse(t, rec, &outcome)
	if outcome.Action != models.ActionPending || outcome.ReportCount != 1 {
		t.Errorf("Expected pending/1, got %+v", outcome)
	}
}

func TestThirdReportDeletesContent(t *testing.T) {
	app, router := setupTestApp(t, &stubClassifier{err: errors.New("unreachable")})
	_, authorToken := seedUser(t, app, "user-a", "anon_falcon")
	post := createPostAs(t, router, authorToken, "mass reported")

	var outcome models.ReportOutcome
	for i := 0; i < 3; i++ {
		_, reporterToken := seedUser(t, app, fmt.Sprintf("rep-%d", i), fmt.Sprintf("anon_rep_%d", i))
		rec := doJSON(t, router, http.MethodPost, "/api/report", reporterToken, reportBody(post.ID, "post", "harassment"))
		if rec.Code != http.StatusOK {
			t.Fatalf("Report %d failed: %d %s", i, rec.Code, rec.Body.String())
		}
		decodeResponse(t, rec, &outcome)
	}

	if outcome.Action != models.ActionDeleted || outcome.Strikes != 1 {
		t.Fatalf("Expected third report to delete with 1 strike, got %+v", outcome)
	}

	// The post is gone from the feed.
	feed := doJSON(t, router, http.MethodGet, "/api/feed", authorToken, nil)
	var posts []models.Post
	decodeResponse(t, feed, &posts)
	if len(posts) != 0 {
		t.Errorf("Expected empty feed after removal, got %d posts", len(posts))
	}
}

func TestFlaggedReportIsRemovedImmediately(t *testing.T) {
	app, router := setupTestApp(t, &stubClassifier{
		result: &moderation.ClassifierResult{Flagged: true, Categories: map[string]bool{"harassment": true}},
	})
	_, authorToken := seedUser(t, app, "user-a", "anon_falcon")
	_, reporterToken := seedUser(t, app, "user-b", "anon_otter")

	post := createPostAs(t, router, authorToken, "ai catches this")

	rec := doJSON(t, router, http.MethodPost, "/api/report", reporterToken, reportBody(post.ID, "post", "other"))
	if rec.Code != http.StatusOK {
		t.Fatalf("Report failed: %d %s", rec.Code, rec.Body.String())
	}
	var outcome models.ReportOutcome
	decodeResponse(t, rec, &outcome)
	if outcome.Action != models.ActionDeleted || outcome.Strikes != 1 {
		t.Errorf("Expected immediate AI removal, got %+v", outcome)
	}
}

func TestCleanReportIsDismissed(t *testing.T) {
	app, router := setupTestApp(t, nil)
	_, authorToken := seedUser(t, app, "user-a", "anon_falcon")
	_, reporterToken := seedUser(t, app, "user-b", "anon_otter")

	post := createPostAs(t, router, authorToken, "actually fine")

	rec := doJSON(t, router, http.MethodPost, "/api/report", reporterToken, reportBody(post.ID, "post", "other"))
	var outcome models.ReportOutcome
	decodeResponse(t, rec, &outcome)
	if outcome.Action != models.ActionDismissed {
		t.Errorf("Expected dismissed, got %+v", outcome)
	}

	// Content survives.
	feed := doJSON(t, router, http.MethodGet, "/api/feed", authorToken, nil)
	var posts []models.Post
	decodeResponse(t, feed, &posts)
	if len(posts) != 1 {
		t.Errorf("Expected post to survive a clean verdict, got %d posts", len(posts))
	}
}

func TestReportValidation(t *testing.T) {
	app, router := setupTestApp(t, nil)
	_, authorToken := seedUser(t, app, "user-a", "anon_falcon")
	_, reporterToken := seedUser(t, app, "user-b", "anon_otter")
	post := createPostAs(t, router, authorToken, "target")

	cases := []struct {
		name string
		body map[string]string
		code int
	}{
		{"bad target type", reportBody(post.ID, "user", "insult"), http.StatusBadRequest},
		{"bad reason", reportBody(post.ID, "post", "ugly"), http.StatusBadRequest},
		{"missing target", reportBody("no-such-id", "post", "insult"), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/report", reporterToken, tc.body)
			if rec.Code != tc.code {
				t.Errorf("Expected %d, got %d: %s", tc.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAdjudicateEndpoint(t *testing.T) {
	app, router := setupTestApp(t, &stubClassifier{
		result: &moderation.ClassifierResult{Flagged: true, Categories: map[string]bool{"hate": true}},
	})
	_, authorToken := seedUser(t, app, "user-a", "anon_falcon")
	reporter, reporterToken := seedUser(t, app, "user-b", "anon_otter")

	post := createPostAs(t, router, authorToken, "to be adjudicated")
	reportID, err := app.db.CreateReport(post.ID, models.TargetPost, reporter.ID, "insult")
	if err != nil {
		t.Fatalf("Failed to create report: %v", err)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/moderation/adjudicate", reporterToken, map[string]string{
		"report_id": reportID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result moderation.AdjudicationResult
	decodeResponse(t, rec, &result)
	if result.Status != moderation.StatusViolation {
		t.Errorf("Expected violation, got %+v", result)
	}

	// Unknown report is a 404.
	rec = doJSON(t, router, http.MethodPost, "/api/moderation/adjudicate", reporterToken, map[string]string{
		"report_id": "no-such-report",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown report, got %d", rec.Code)
	}
}

func doMod(t *testing.T, router *chi.Mux, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	rec := doJSONWithHeader(t, router, method, path, body, "X-Mod-Key", testModKey)
	return rec
}

func TestModConsoleRequiresKey(t *testing.T) {
	_, router := setupTestApp(t, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/mod/reports", "", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 without mod key, got %d", rec.Code)
	}

	rec = doJSONWithHeader(t, router, http.MethodGet, "/api/mod/reports", nil, "X-Mod-Key", "wrong-key")
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 with wrong mod key, got %d", rec.Code)
	}
}

func TestModConsoleFlow(t *testing.T) {
	app, router := setupTestApp(t, &stubClassifier{err: errors.New("unreachable")})
	author, authorToken := seedUser(t, app, "user-a", "anon_falcon")
	_, reporterToken := seedUser(t, app, "user-b", "anon_otter")

	post := createPostAs(t, router, authorToken, "under review")
	doJSON(t, router, http.MethodPost, "/api/report", reporterToken, reportBody(post.ID, "post", "insult"))

	// Dashboard lists the open report with content.
	rec := doMod(t, router, http.MethodGet, "/api/mod/reports", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var reports []models.Report
	decodeResponse(t, rec, &reports)
	if len(reports) != 1 || reports[0].Content != "under review" {
		t.Fatalf("Expected the open report with content, got %+v", reports)
	}

	// Moderator removes the content directly.
	rec = doMod(t, router, http.MethodPost, "/api/mod/delete", map[string]string{
		"target_id":   post.ID,
		"target_type": "post",
		"reason":      "manual review",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Mod delete failed: %d %s", rec.Code, rec.Body.String())
	}
	profile, _ := app.db.GetProfile(author.ID)
	if profile.Strikes != 1 {
		t.Errorf("Expected 1 strike after mod delete, got %d", profile.Strikes)
	}

	// Strikes can be reset.
	rec = doMod(t, router, http.MethodPost, "/api/mod/reset-strikes", map[string]string{"user_id": author.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("Reset strikes failed: %d", rec.Code)
	}
	profile, _ = app.db.GetProfile(author.ID)
	if profile.Strikes != 0 {
		t.Errorf("Expected 0 strikes after reset, got %d", profile.Strikes)
	}

	// The audit log has entries for both actions.
	rec = doMod(t, router, http.MethodGet, "/api/mod/log", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Mod log failed: %d", rec.Code)
	}
	var actions []models.ModAction
	decodeResponse(t, rec, &actions)
	if len(actions) < 2 {
		t.Errorf("Expected at least 2 audit entries, got %d", len(actions))
	}
}

func TestModBackup(t *testing.T) {
	_, router := setupTestApp(t, nil)

	backupDir, err := os.MkdirTemp("", "crushnote_test_backup_*")
	if err != nil {
		t.Fatalf("Failed to create backup dir: %v", err)
	}
	defer os.RemoveAll(backupDir)
	oldDir := utils.BackupDir
	utils.BackupDir = backupDir
	defer func() { utils.BackupDir = oldDir }()

	rec := doMod(t, router, http.MethodPost, "/api/mod/backup-db", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Backup failed: %d %s", rec.Code, rec.Body.String())
	}

	entries, err := os.ReadDir(backupDir)
	if err != nil || len(entries) != 1 {
		t.Errorf("Expected exactly one backup file, got %v (err %v)", entries, err)
	}
}
