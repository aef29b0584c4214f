// crushnote/database/moderation.go
package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Ali-GR/CrushNoteApp/config"
	"github.com/Ali-GR/CrushNoteApp/models"
	"github.com/Ali-GR/CrushNoteApp/utils"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")
	ErrNotOwner = errors.New("not the owner")
)

// CreateReport files a report against a post or comment. Filing the same
// report twice is a no-op thanks to the (target, reporter) unique index;
// the existing report's ID is returned in that case.
func (ds *DatabaseService) CreateReport(targetID string, targetType models.TargetType, reporterID, reason string) (string, error) {
	if !targetType.Valid() {
		return "", fmt.Errorf("invalid target type '%s'", targetType)
	}
	if !models.ReportReasons[reason] {
		return "", fmt.Errorf("invalid report reason '%s'", reason)
	}

	if err := ds.targetExists(targetID, targetType); err != nil {
		return "", err
	}

	reportID := uuid.New().String()
	_, err := ds.DB.Exec(`
		INSERT INTO reports (id, target_id, target_type, reporter_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (target_id, target_type, reporter_id) DO NOTHING`,
		reportID, targetID, string(targetType), reporterID, reason, utils.GetSQLTime())
	if err != nil {
		return "", fmt.Errorf("failed to insert report: %w", err)
	}

	// The insert may have been swallowed by the conflict clause; read
	// back whichever row holds for this reporter and target.
	var existingID string
	err = ds.DB.QueryRow(`
		SELECT id FROM reports WHERE target_id = ? AND target_type = ? AND reporter_id = ?`,
		targetID, string(targetType), reporterID).Scan(&existingID)
	if err != nil {
		return "", fmt.Errorf("failed to read back report: %w", err)
	}
	return existingID, nil
}

// targetExists checks that the reported content is still live.
func (ds *DatabaseService) targetExists(targetID string, targetType models.TargetType) error {
	table := "posts"
	if targetType == models.TargetComment {
		table = "comments"
	}
	var n int
	if err := ds.DB.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE id = ?", targetID).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountReports returns how many distinct reports target the given content.
func (ds *DatabaseService) CountReports(targetID string, targetType models.TargetType) (int, error) {
	var n int
	err := ds.DB.QueryRow("SELECT COUNT(*) FROM reports WHERE target_id = ? AND target_type = ?",
		targetID, string(targetType)).Scan(&n)
	return n, err
}

// ModerateReportedContent applies the community threshold rule: once a
// target has accumulated enough reports it is deleted and the author is
// struck, all inside one transaction. Below the threshold nothing changes
// and the current count is reported back. If the target is already gone
// (a prior pass deleted it), any lingering reports are swept and the call
// is a no-op.
func (ds *DatabaseService) ModerateReportedContent(targetID string, targetType models.TargetType) (models.ReportOutcome, error) {
	tx, err := ds.DB.Begin()
	if err != nil {
		return models.ReportOutcome{}, err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			ds.logger.Error("Failed to rollback transaction in ModerateReportedContent", "error", rerr)
		}
	}()

	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM reports WHERE target_id = ? AND target_type = ?",
		targetID, string(targetType)).Scan(&count); err != nil {
		return models.ReportOutcome{}, err
	}

	if count < config.ReportThreshold {
		return models.Pending(count), tx.Commit()
	}

	strikes, err := removeContentAndStrike(tx, targetID, targetType, "community",
		fmt.Sprintf("report threshold reached (%d reports)", count))
	if err != nil {
		if err == ErrNotFound {
			// Target already deleted; clear the stale reports and stop.
			if _, derr := tx.Exec("DELETE FROM reports WHERE target_id = ? AND target_type = ?",
				targetID, string(targetType)); derr != nil {
				return models.ReportOutcome{}, derr
			}
			return models.Pending(0), tx.Commit()
		}
		return models.ReportOutcome{}, err
	}

	return models.Deleted(strikes), tx.Commit()
}

// DeleteContentAndStrike removes content and strikes its author in a
// fresh transaction. Used by the AI adjudicator and the moderator console.
func (ds *DatabaseService) DeleteContentAndStrike(targetID string, targetType models.TargetType, actor, details string) (int, error) {
	tx, err := ds.DB.Begin()
	if err != nil {
		return 0, err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			ds.logger.Error("Failed to rollback transaction in DeleteContentAndStrike", "error", rerr)
		}
	}()

	strikes, err := removeContentAndStrike(tx, targetID, targetType, actor, details)
	if err != nil {
		return 0, err
	}
	return strikes, tx.Commit()
}

// removeContentAndStrike deletes the target row, sweeps its reports, and
// increments the author's strike counter, within the caller's transaction.
// Returns the author's strike count after the increment.
func removeContentAndStrike(tx *sql.Tx, targetID string, targetType models.TargetType, actor, details string) (int, error) {
	var authorID string
	var query string
	if targetType == models.TargetComment {
		query = "SELECT author_id FROM comments WHERE id = ?"
	} else {
		query = "SELECT author_id FROM posts WHERE id = ?"
	}
	if err := tx.QueryRow(query, targetID).Scan(&authorID); err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, err
	}

	if targetType == models.TargetComment {
		var postID string
		if err := tx.QueryRow("SELECT post_id FROM comments WHERE id = ?", targetID).Scan(&postID); err != nil {
			return 0, err
		}
		if _, err := tx.Exec("DELETE FROM reports WHERE target_id = ? AND target_type = 'comment'", targetID); err != nil {
			return 0, err
		}
		if _, err := tx.Exec("DELETE FROM comments WHERE id = ?", targetID); err != nil {
			return 0, err
		}
		if _, err := tx.Exec("UPDATE posts SET comments_count = comments_count - 1 WHERE id = ? AND comments_count > 0", postID); err != nil {
			return 0, err
		}
	} else {
		if err := deleteReportsForPost(tx, targetID); err != nil {
			return 0, err
		}
		if _, err := tx.Exec("DELETE FROM posts WHERE id = ?", targetID); err != nil {
			return 0, err
		}
		if _, err := tx.Exec("UPDATE profiles SET posts_count = posts_count - 1 WHERE id = ? AND posts_count > 0", authorID); err != nil {
			return 0, err
		}
	}

	if _, err := tx.Exec("UPDATE profiles SET strikes = strikes + 1, last_strike_at = ? WHERE id = ?",
		utils.GetSQLTime(), authorID); err != nil {
		return 0, fmt.Errorf("failed to increment strikes: %w", err)
	}

	var strikes int
	if err := tx.QueryRow("SELECT strikes FROM profiles WHERE id = ?", authorID).Scan(&strikes); err != nil {
		return 0, err
	}

	if err := LogModAction(tx, actor, "delete_"+string(targetType), targetID, details); err != nil {
		return 0, err
	}
	return strikes, nil
}

// GetReportTarget loads a report together with its target's live content.
// Returns ErrNotFound when either the report or the content is gone.
func (ds *DatabaseService) GetReportTarget(reportID string) (*models.Report, error) {
	var r models.Report
	var targetType string
	err := ds.DB.QueryRow(`
		SELECT id, target_id, target_type, reporter_id, reason, created_at
		FROM reports WHERE id = ?`, reportID).Scan(
		&r.ID, &r.TargetID, &targetType, &r.ReporterID, &r.Reason, &r.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.TargetType = models.TargetType(targetType)

	table := "posts"
	if r.TargetType == models.TargetComment {
		table = "comments"
	}
	err = ds.DB.QueryRow("SELECT content, author_id FROM "+table+" WHERE id = ?", r.TargetID).Scan(&r.Content, &r.AuthorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// DismissReport deletes a single report row, logging the dismissal.
func (ds *DatabaseService) DismissReport(reportID, actor, details string) error {
	tx, err := ds.DB.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			ds.logger.Error("Failed to rollback transaction in DismissReport", "error", rerr)
		}
	}()

	res, err := tx.Exec("DELETE FROM reports WHERE id = ?", reportID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := LogModAction(tx, actor, "dismiss_report", reportID, details); err != nil {
		return err
	}
	return tx.Commit()
}

// ListOpenReports returns all open reports joined with their target's
// content, newest first, for the moderator dashboard. Reports whose
// target vanished out from under them are skipped.
func (ds *DatabaseService) ListOpenReports() ([]models.Report, error) {
	rows, err := ds.DB.Query(`
		SELECT r.id, r.target_id, r.target_type, r.reporter_id, r.reason, r.created_at,
		       COALESCE(p.content, c.content, ''), COALESCE(p.author_id, c.author_id, '')
		FROM reports r
		LEFT JOIN posts p ON r.target_type = 'post' AND p.id = r.target_id
		LEFT JOIN comments c ON r.target_type = 'comment' AND c.id = r.target_id
		ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in ListOpenReports", "error", err)
		}
	}()

	var reports []models.Report
	for rows.Next() {
		var r models.Report
		var targetType string
		if err := rows.Scan(&r.ID, &r.TargetID, &targetType, &r.ReporterID, &r.Reason, &r.CreatedAt, &r.Content, &r.AuthorID); err != nil {
			ds.logger.Error("Failed to scan report row", "error", err)
			continue
		}
		if r.Content == "" {
			continue
		}
		r.TargetType = models.TargetType(targetType)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// ResetStrikes clears a profile's strike counter, lifting a derived ban.
func (ds *DatabaseService) ResetStrikes(profileID, actor string) error {
	tx, err := ds.DB.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			ds.logger.Error("Failed to rollback transaction in ResetStrikes", "error", rerr)
		}
	}()

	res, err := tx.Exec("UPDATE profiles SET strikes = 0 WHERE id = ?", profileID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := LogModAction(tx, actor, "reset_strikes", profileID, ""); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordModAction writes a standalone audit log entry.
func (ds *DatabaseService) RecordModAction(actor, action, targetID, details string) error {
	tx, err := ds.DB.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			ds.logger.Error("Failed to rollback transaction in RecordModAction", "error", rerr)
		}
	}()
	if err := LogModAction(tx, actor, action, targetID, details); err != nil {
		return err
	}
	return tx.Commit()
}

// ListModActions returns the most recent audit log entries.
func (ds *DatabaseService) ListModActions(limit int) ([]models.ModAction, error) {
	rows, err := ds.DB.Query(`
		SELECT id, timestamp, actor, action, COALESCE(target_id, ''), COALESCE(details, '')
		FROM mod_actions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			ds.logger.Error("Failed to close rows in ListModActions", "error", err)
		}
	}()

	var actions []models.ModAction
	for rows.Next() {
		var a models.ModAction
		if err := rows.Scan(&a.ID, &a.Timestamp, &a.Actor, &a.Action, &a.TargetID, &a.Details); err != nil {
			ds.logger.Error("Failed to scan mod action row", "error", err)
			continue
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
