// crushnote/database/database.go
package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Ali-GR/CrushNoteApp/models"
	"github.com/Ali-GR/CrushNoteApp/utils"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DatabaseService is the central struct for all database operations.
type DatabaseService struct {
	DB          *sql.DB
	logger      *slog.Logger
	dsn         string
	schoolCache map[string]*models.School
	cacheMu     sync.RWMutex
}

// InitDB connects to the database, runs migrations, and seeds default data.
func InitDB(dataSourceName string, logger *slog.Logger) (*DatabaseService, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}

	// Run the base schema to ensure all tables exist.
	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to execute base schema: %w", err)
	}

	// Run versioned migrations
	if err := runMigrations(db, logger); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	// Seed database if empty
	var schoolCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM schools").Scan(&schoolCount); err == nil && schoolCount == 0 {
		_, err = db.Exec("INSERT INTO schools (id, name, city, created_at) VALUES (?, 'Demo Gymnasium', 'Berlin', ?)",
			uuid.New().String(), utils.GetSQLTime())
		if err != nil {
			return nil, fmt.Errorf("failed to seed schools: %w", err)
		}
	}

	logger.Info("Database initialized and cache ready.")

	return &DatabaseService{
		DB:          db,
		logger:      logger,
		dsn:         dataSourceName,
		schoolCache: make(map[string]*models.School),
	}, nil
}

// runMigrations applies all un-applied migrations.
func runMigrations(db *sql.DB, logger *slog.Logger) error {
	var latestVersion uint
	err := db.QueryRow("SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&latestVersion)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("could not get db version: %w", err)
	}

	logger.Info("Current database schema version", "version", latestVersion)

	for _, m := range allMigrations {
		if m.Version > latestVersion {
			logger.Info("Applying migration", "version", m.Version)
			tx, err := db.Begin()
			if err != nil {
				return err
			}

			if _, err := tx.Exec(m.Query); err != nil {
				if rerr := tx.Rollback(); rerr != nil {
					logger.Error("Failed to rollback migration", "version", m.Version, "error", rerr)
				}
				return fmt.Errorf("failed to apply migration v%d: %w", m.Version, err)
			}
			if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", m.Version, utils.GetSQLTime()); err != nil {
				if rerr := tx.Rollback(); rerr != nil {
					logger.Error("Failed to rollback migration record", "version", m.Version, "error", rerr)
				}
				return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
			}

			if err := tx.Commit(); err != nil {
				return fmt.Errorf("failed to commit migration v%d: %w", m.Version, err)
			}
			logger.Info("Successfully applied migration", "version", m.Version)
		}
	}
	return nil
}

// GetSchool fetches a school, using the instance's cache.
func (ds *DatabaseService) GetSchool(schoolID string) (*models.School, error) {
	ds.cacheMu.RLock()
	school, ok := ds.schoolCache[schoolID]
	ds.cacheMu.RUnlock()
	if ok {
		return school, nil
	}

	var s models.School
	err := ds.DB.QueryRow("SELECT id, name, city, created_at FROM schools WHERE id = ?", schoolID).Scan(
		&s.ID, &s.Name, &s.City, &s.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("school '%s' not found", schoolID)
		}
		return nil, fmt.Errorf("db error getting school '%s': %w", schoolID, err)
	}

	ds.cacheMu.Lock()
	ds.schoolCache[schoolID] = &s
	ds.cacheMu.Unlock()
	return &s, nil
}

// ListSchools returns all schools for the onboarding picker.
func (ds *DatabaseService) ListSchools() ([]models.School, error) {
	rows, err := ds.DB.Query("SELECT id, name, city, created_at FROM schools ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in ListSchools", "error", err)
		}
	}()

	var schools []models.School
	for rows.Next() {
		var s models.School
		if err := rows.Scan(&s.ID, &s.Name, &s.City, &s.CreatedAt); err != nil {
			ds.logger.Error("Failed to scan school row", "error", err)
			continue
		}
		schools = append(schools, s)
	}
	return schools, rows.Err()
}

// GetProfile fetches a single profile by ID.
func (ds *DatabaseService) GetProfile(profileID string) (*models.Profile, error) {
	var p models.Profile
	var schoolID sql.NullString
	err := ds.DB.QueryRow(`
		SELECT id, nickname, school_id, strikes, posts_count, likes_received_count, created_at
		FROM profiles WHERE id = ?`, profileID).Scan(
		&p.ID, &p.Nickname, &schoolID, &p.Strikes, &p.PostsCount, &p.LikesReceivedCount, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.SchoolID = schoolID.String
	return &p, nil
}

// CreateProfile inserts a profile row for a freshly authenticated identity.
func (ds *DatabaseService) CreateProfile(id, nickname, schoolID string) (*models.Profile, error) {
	now := utils.GetSQLTime()
	_, err := ds.DB.Exec(`
		INSERT INTO profiles (id, nickname, school_id, strikes, posts_count, likes_received_count, created_at)
		VALUES (?, ?, ?, 0, 0, 0, ?)`, id, nickname, schoolID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return ds.GetProfile(id)
}

// UpdateProfile changes the mutable profile fields.
func (ds *DatabaseService) UpdateProfile(profileID, nickname, schoolID string) (*models.Profile, error) {
	if nickname != "" {
		if _, err := ds.DB.Exec("UPDATE profiles SET nickname = ? WHERE id = ?", nickname, profileID); err != nil {
			return nil, fmt.Errorf("failed to update nickname: %w", err)
		}
	}
	if schoolID != "" {
		if _, err := ds.GetSchool(schoolID); err != nil {
			return nil, err
		}
		if _, err := ds.DB.Exec("UPDATE profiles SET school_id = ? WHERE id = ?", schoolID, profileID); err != nil {
			return nil, fmt.Errorf("failed to update school: %w", err)
		}
	}
	return ds.GetProfile(profileID)
}

// CreatePost inserts a post and bumps the author's posts counter atomically.
func (ds *DatabaseService) CreatePost(authorID, schoolID, content string) (*models.Post, error) {
	tx, err := ds.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			ds.logger.Error("Failed to rollback transaction in CreatePost", "error", rerr)
		}
	}()

	post := &models.Post{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		SchoolID:  schoolID,
		Content:   content,
		CreatedAt: utils.GetSQLTime(),
	}
	_, err = tx.Exec(`
		INSERT INTO posts (id, author_id, school_id, content, comments_count, likes_count, created_at)
		VALUES (?, ?, ?, ?, 0, 0, ?)`,
		post.ID, post.AuthorID, post.SchoolID, post.Content, post.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}
	if _, err := tx.Exec("UPDATE profiles SET posts_count = posts_count + 1 WHERE id = ?", authorID); err != nil {
		return nil, fmt.Errorf("failed to update posts counter: %w", err)
	}
	return post, tx.Commit()
}

// GetPost fetches a single post by its ID.
func (ds *DatabaseService) GetPost(postID string) (*models.Post, error) {
	var p models.Post
	err := ds.DB.QueryRow(`
		SELECT id, author_id, school_id, content, comments_count, likes_count, created_at
		FROM posts WHERE id = ?`, postID).Scan(
		&p.ID, &p.AuthorID, &p.SchoolID, &p.Content, &p.CommentsCount, &p.LikesCount, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetFeed retrieves the newest posts for a school, marking which ones the
// viewer has liked.
func (ds *DatabaseService) GetFeed(schoolID, viewerID string, limit int) ([]models.Post, error) {
	rows, err := ds.DB.Query(`
		SELECT p.id, p.author_id, p.school_id, p.content, p.comments_count, p.likes_count, p.created_at,
		       EXISTS (SELECT 1 FROM likes l WHERE l.post_id = p.id AND l.user_id = ?) AS liked_by_me
		FROM posts p
		WHERE p.school_id = ?
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ?`, viewerID, schoolID, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in GetFeed", "error", err)
		}
	}()

	var posts []models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.SchoolID, &p.Content, &p.CommentsCount, &p.LikesCount, &p.CreatedAt, &p.LikedByMe); err != nil {
			ds.logger.Error("Failed to scan post row", "error", err)
			continue
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// DeletePostByAuthor removes a post owned by authorID, with everything
// hanging off it: comments and likes cascade, report rows are cleaned up
// explicitly, and the author's posts counter is decremented.
func (ds *DatabaseService) DeletePostByAuthor(postID, authorID string) error {
	tx, err := ds.DB.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			ds.logger.Error("Failed to rollback transaction in DeletePostByAuthor", "error", rerr)
		}
	}()

	var owner string
	if err := tx.QueryRow("SELECT author_id FROM posts WHERE id = ?", postID).Scan(&owner); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}
	if owner != authorID {
		return ErrNotOwner
	}

	if err := deleteReportsForPost(tx, postID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM posts WHERE id = ?", postID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if _, err := tx.Exec("UPDATE profiles SET posts_count = posts_count - 1 WHERE id = ? AND posts_count > 0", authorID); err != nil {
		return fmt.Errorf("failed to update posts counter: %w", err)
	}
	return tx.Commit()
}

// CreateComment inserts a comment and bumps the post's comment counter.
func (ds *DatabaseService) CreateComment(postID, authorID, content string) (*models.Comment, error) {
	tx, err := ds.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			ds.logger.Error("Failed to rollback transaction in CreateComment", "error", rerr)
		}
	}()

	var exists int
	if err := tx.QueryRow("SELECT COUNT(*) FROM posts WHERE id = ?", postID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	comment := &models.Comment{
		ID:        uuid.New().String(),
		PostID:    postID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: utils.GetSQLTime(),
	}
	_, err = tx.Exec(`
		INSERT INTO comments (id, post_id, author_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		comment.ID, comment.PostID, comment.AuthorID, comment.Content, comment.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}
	if _, err := tx.Exec("UPDATE posts SET comments_count = comments_count + 1 WHERE id = ?", postID); err != nil {
		return nil, fmt.Errorf("failed to update comment counter: %w", err)
	}
	return comment, tx.Commit()
}

// GetCommentsForPost fetches all comments of a post, oldest first.
func (ds *DatabaseService) GetCommentsForPost(postID string) ([]models.Comment, error) {
	rows, err := ds.DB.Query(`
		SELECT id, post_id, author_id, content, created_at
		FROM comments WHERE post_id = ? ORDER BY created_at ASC, id ASC`, postID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in GetCommentsForPost", "error", err)
		}
	}()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Content, &c.CreatedAt); err != nil {
			ds.logger.Error("Failed to scan comment row", "error", err)
			continue
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// DeleteCommentByAuthor removes a comment owned by authorID.
func (ds *DatabaseService) DeleteCommentByAuthor(commentID, authorID string) error {
	tx, err := ds.DB.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			ds.logger.Error("Failed to rollback transaction in DeleteCommentByAuthor", "error", rerr)
		}
	}()

	var owner, postID string
	if err := tx.QueryRow("SELECT author_id, post_id FROM comments WHERE id = ?", commentID).Scan(&owner, &postID); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}
	if owner != authorID {
		return ErrNotOwner
	}

	if _, err := tx.Exec("DELETE FROM reports WHERE target_id = ? AND target_type = 'comment'", commentID); err != nil {
		return fmt.Errorf("failed to delete associated reports: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM comments WHERE id = ?", commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if _, err := tx.Exec("UPDATE posts SET comments_count = comments_count - 1 WHERE id = ? AND comments_count > 0", postID); err != nil {
		return fmt.Errorf("failed to update comment counter: %w", err)
	}
	return tx.Commit()
}

// ToggleLike flips the viewer's like on a post and keeps both the post's
// like counter and the author's received counter in step. Returns whether
// the post is liked after the call and the new like count.
func (ds *DatabaseService) ToggleLike(postID, userID string) (bool, int, error) {
	tx, err := ds.DB.Begin()
	if err != nil {
		return false, 0, err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			ds.logger.Error("Failed to rollback transaction in ToggleLike", "error", rerr)
		}
	}()

	var authorID string
	if err := tx.QueryRow("SELECT author_id FROM posts WHERE id = ?", postID).Scan(&authorID); err != nil {
		if err == sql.ErrNoRows {
			return false, 0, ErrNotFound
		}
		return false, 0, err
	}

	var existing int
	if err := tx.QueryRow("SELECT COUNT(*) FROM likes WHERE post_id = ? AND user_id = ?", postID, userID).Scan(&existing); err != nil {
		return false, 0, err
	}

	liked := existing == 0
	if liked {
		if _, err := tx.Exec("INSERT INTO likes (post_id, user_id, created_at) VALUES (?, ?, ?)", postID, userID, utils.GetSQLTime()); err != nil {
			return false, 0, fmt.Errorf("failed to insert like: %w", err)
		}
		if _, err := tx.Exec("UPDATE posts SET likes_count = likes_count + 1 WHERE id = ?", postID); err != nil {
			return false, 0, err
		}
		if _, err := tx.Exec("UPDATE profiles SET likes_received_count = likes_received_count + 1 WHERE id = ?", authorID); err != nil {
			return false, 0, err
		}
	} else {
		if _, err := tx.Exec("DELETE FROM likes WHERE post_id = ? AND user_id = ?", postID, userID); err != nil {
			return false, 0, fmt.Errorf("failed to delete like: %w", err)
		}
		if _, err := tx.Exec("UPDATE posts SET likes_count = likes_count - 1 WHERE id = ? AND likes_count > 0", postID); err != nil {
			return false, 0, err
		}
		if _, err := tx.Exec("UPDATE profiles SET likes_received_count = likes_received_count - 1 WHERE id = ? AND likes_received_count > 0", authorID); err != nil {
			return false, 0, err
		}
	}

	var count int
	if err := tx.QueryRow("SELECT likes_count FROM posts WHERE id = ?", postID).Scan(&count); err != nil {
		return false, 0, err
	}
	return liked, count, tx.Commit()
}

// LogModAction records a moderation action to the audit log.
func LogModAction(tx *sql.Tx, actor, action, targetID, details string) error {
	stmt, err := tx.Prepare("INSERT INTO mod_actions (timestamp, actor, action, target_id, details) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare mod action statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			slog.Default().Error("Failed to close statement in LogModAction", "error", err)
		}
	}()

	_, err = stmt.Exec(utils.GetSQLTime(), actor, action, targetID, details)
	if err != nil {
		return fmt.Errorf("failed to execute mod action log: %w", err)
	}
	return nil
}

// deleteReportsForPost removes report rows for a post and for all of its
// comments, which the post deletion is about to cascade away.
func deleteReportsForPost(tx *sql.Tx, postID string) error {
	_, err := tx.Exec(`
		DELETE FROM reports
		WHERE (target_type = 'post' AND target_id = ?)
		   OR (target_type = 'comment' AND target_id IN (SELECT id FROM comments WHERE post_id = ?))`,
		postID, postID)
	if err != nil {
		return fmt.Errorf("failed to delete associated reports: %w", err)
	}
	return nil
}
