// crushnote/database/database_test.go
package database

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/Ali-GR/CrushNoteApp/models"
	"github.com/Ali-GR/CrushNoteApp/utils"
)

func backupDirSwap(dir string) string {
	old := utils.BackupDir
	utils.BackupDir = dir
	return old
}

// setupTestDB creates a fresh database in a temp directory.
func setupTestDB(t *testing.T) *DatabaseService {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	dbDir, err := os.MkdirTemp("", "crushnote_test_db_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir for test DB: %v", err)
	}
	dbPath := filepath.Join(dbDir, "test.db") + "?_journal_mode=WAL&_foreign_keys=on"
	ds, err := InitDB(dbPath, logger)
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() {
		ds.DB.Close()
		os.RemoveAll(dbDir)
	})
	return ds
}

// seededSchool returns the school created by InitDB's seeding.
func seededSchool(t *testing.T, ds *DatabaseService) *models.School {
	t.Helper()
	schools, err := ds.ListSchools()
	if err != nil || len(schools) == 0 {
		t.Fatalf("Expected a seeded school, got %v (err %v)", schools, err)
	}
	return &schools[0]
}

func mustCreateProfile(t *testing.T, ds *DatabaseService, id, nickname, schoolID string) *models.Profile {
	t.Helper()
	p, err := ds.CreateProfile(id, nickname, schoolID)
	if err != nil {
		t.Fatalf("Failed to create profile %s: %v", nickname, err)
	}
	return p
}

func mustCreatePost(t *testing.T, ds *DatabaseService, authorID, schoolID, content string) *models.Post {
	t.Helper()
	post, err := ds.CreatePost(authorID, schoolID, content)
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	return post
}

func TestCreatePostUpdatesCounter(t *testing.T) {
	ds := setupTestDB(t)
	school := seededSchool(t, ds)
	author := mustCreateProfile(t, ds, "user-a", "anon_falcon", school.ID)

	mustCreatePost(t, ds, author.ID, school.ID, "first post")
	mustCreatePost(t, ds, author.ID, school.ID, "second post")

	got, err := ds.GetProfile(author.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got.PostsCount != 2 {
		t.Errorf("Expected posts_count 2, got %d", got.PostsCount)
	}
}

func TestFeedIsSchoolScoped(t *testing.T) {
	ds := setupTestDB(t)
	school := seededSchool(t, ds)

	otherSchoolID := "school-other"
	if _, err := ds.DB.Exec("INSERT INTO schools (id, name, city) VALUES (?, 'Other School', 'Hamburg')", otherSchoolID); err != nil {
		t.Fatalf("Failed to insert second school: %v", err)
	}

	a := mustCreateProfile(t, ds, "user-a", "anon_falcon", school.ID)
	b := mustCreateProfile(t, ds, "user-b", "anon_otter", otherSchoolID)

	mustCreatePost(t, ds, a.ID, school.ID, "visible in school one")
	mustCreatePost(t, ds, b.ID, otherSchoolID, "visible in school two")

	feed, err := ds.GetFeed(school.ID, a.ID, 50)
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	if len(feed) != 1 {
		t.Fatalf("Expected 1 post in school feed, got %d", len(feed))
	}
	if feed[0].SchoolID != school.ID {
		t.Errorf("Feed returned a post from the wrong school: %s", feed[0].SchoolID)
	}
}

func TestToggleLikeMaintainsCounters(t *testing.T) {
	ds := setupTestDB(t)
	school := seededSchool(t, ds)
	author := mustCreateProfile(t, ds, "user-a", "anon_falcon", school.ID)
	viewer := mustCreateProfile(t, ds, "user-b", "anon_otter", school.ID)
	post := mustCreatePost(t, ds, author.ID, school.ID, "like me")

	liked, count, err := ds.ToggleLike(post.ID, viewer.ID)
	if err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	if !liked || count != 1 {
		t.Errorf("Expected liked=true count=1, got liked=%v count=%d", liked, count)
	}

	authorProfile, _ := ds.GetProfile(author.ID)
	if authorProfile.LikesReceivedCount != 1 {
		t.Errorf("Expected likes_received_count 1, got %d", authorProfile.LikesReceivedCount)
	}

	// Toggling again removes the like.
	liked, count, err = ds.ToggleLike(post.ID, viewer.ID)
	if err != nil {
		t.Fatalf("Second ToggleLike failed: %v", err)
	}
	if liked || count != 0 {
		t.Errorf("Expected liked=false count=0, got liked=%v count=%d", liked, count)
	}
	authorProfile, _ = ds.GetProfile(author.ID)
	if authorProfile.LikesReceivedCount != 0 {
		t.Errorf("Expected likes_received_count back to 0, got %d", authorProfile.LikesReceivedCount)
	}
}

func TestCommentLifecycle(t *testing.T) {
	ds := setupTestDB(t)
	school := seededSchool(t, ds)
	author := mustCreateProfile(t, ds, "user-a", "anon_falcon", school.ID)
	post := mustCreatePost(t, ds, author.ID, school.ID, "discuss")

	comment, err := ds.CreateComment(post.ID, author.ID, "a reply")
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	updated, _ := ds.GetPost(post.ID)
	if updated.CommentsCount != 1 {
		t.Errorf("Expected comments_count 1, got %d", updated.CommentsCount)
	}

	if err := ds.DeleteCommentByAuthor(comment.ID, author.ID); err != nil {
		t.Fatalf("DeleteCommentByAuthor failed: %v", err)
	}
	updated, _ = ds.GetPost(post.ID)
	if updated.CommentsCount != 0 {
		t.Errorf("Expected comments_count back to 0, got %d", updated.CommentsCount)
	}
}

func TestDeletePostOwnership(t *testing.T) {
	ds := setupTestDB(t)
	school := seededSchool(t, ds)
	author := mustCreateProfile(t, ds, "user-a", "anon_falcon", school.ID)
	stranger := mustCreateProfile(t, ds, "user-b", "anon_otter", school.ID)
	post := mustCreatePost(t, ds, author.ID, school.ID, "mine")

	if err := ds.DeletePostByAuthor(post.ID, stranger.ID); err != ErrNotOwner {
		t.Errorf("Expected ErrNotOwner for foreign delete, got %v", err)
	}
	if err := ds.DeletePostByAuthor(post.ID, author.ID); err != nil {
		t.Errorf("Owner delete failed: %v", err)
	}
	if err := ds.DeletePostByAuthor(post.ID, author.ID); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound for re-delete, got %v", err)
	}
}

func TestCommentCreateOnMissingPost(t *testing.T) {
	ds := setupTestDB(t)
	school := seededSchool(t, ds)
	author := mustCreateProfile(t, ds, "user-a", "anon_falcon", school.ID)

	if _, err := ds.CreateComment("no-such-post", author.ID, "hello"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBackupDatabase(t *testing.T) {
	ds := setupTestDB(t)

	backupDir, err := os.MkdirTemp("", "crushnote_test_backup_*")
	if err != nil {
		t.Fatalf("Failed to create backup dir: %v", err)
	}
	defer os.RemoveAll(backupDir)

	oldDir := backupDirSwap(backupDir)
	defer backupDirSwap(oldDir)

	path, err := ds.BackupDatabase()
	if err != nil {
		t.Fatalf("BackupDatabase failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Backup file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Backup file is empty")
	}
}
