// crushnote/handlers/moderation.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/Ali-GR/CrushNoteApp/database"
	"github.com/Ali-GR/CrushNoteApp/models"
)

// HandleReport files a report and runs the moderation pipeline. The
// response carries the pipeline outcome so clients can reflect it
// immediately. Classifier outages never fail the request; the report
// simply stays pending.
func HandleReport(w http.ResponseWriter, r *http.Request, app App) {
	profile := profileFrom(r)

	if !app.RateLimiter().GetLimiter(profile.ID).Allow() {
		respondError(w, http.StatusTooManyRequests, "You are reporting too fast. Please wait.", app)
		return
	}

	var req struct {
		TargetID   string `json:"target_id"`
		TargetType string `json:"target_type"`
		Reason     string `json:"reason"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}

	targetType := models.TargetType(req.TargetType)
	if !targetType.Valid() {
		respondError(w, http.StatusBadRequest, "target_type must be 'post' or 'comment'", app)
		return
	}
	if !models.ReportReasons[req.Reason] {
		respondError(w, http.StatusBadRequest, "Unknown report reason", app)
		return
	}

	reportID, err := app.DB().CreateReport(req.TargetID, targetType, profile.ID, req.Reason)
	if err != nil {
		if err == database.ErrNotFound {
			respondError(w, http.StatusNotFound, "Reported content not found", app)
			return
		}
		app.Logger().Error("Failed to create report", "target_id", req.TargetID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create report", app)
		return
	}

	outcome, err := app.Pipeline().ProcessReport(r.Context(), reportID, req.TargetID, targetType)
	if err != nil {
		app.Logger().Error("Moderation pipeline failed", "report_id", reportID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to process report", app)
		return
	}
	respondJSON(w, http.StatusOK, outcome, app)
}

// HandleAdjudicate asks the AI classifier to rule on a pending report.
// Exposed so clients and cron sweeps can re-run stalled adjudications.
func HandleAdjudicate(w http.ResponseWriter, r *http.Request, app App) {
	var req struct {
		ReportID string `json:"report_id"`
	}
	if err := decodeBody(r, &req); err != nil || req.ReportID == "" {
		respondError(w, http.StatusBadRequest, "report_id is required", app)
		return
	}

	result, err := app.Pipeline().Adjudicate(r.Context(), req.ReportID)
	if err != nil {
		if err == database.ErrNotFound {
			respondError(w, http.StatusNotFound, "Report or its content no longer exists", app)
			return
		}
		app.Logger().Error("Adjudication failed", "report_id", req.ReportID, "error", err)
		respondError(w, http.StatusInternalServerError, "Adjudication failed", app)
		return
	}
	respondJSON(w, http.StatusOK, result, app)
}

// HandleModReports lists open reports with their target content.
func HandleModReports(w http.ResponseWriter, r *http.Request, app App) {
	reports, err := app.DB().ListOpenReports()
	if err != nil {
		app.Logger().Error("Failed to list reports", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to list reports", app)
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}
	respondJSON(w, http.StatusOK, reports, app)
}

// HandleModDelete removes content and strikes the author on a
// moderator's say-so, outside the community threshold.
func HandleModDelete(w http.ResponseWriter, r *http.Request, app App) {
	var req struct {
		TargetID   string `json:"target_id"`
		TargetType string `json:"target_type"`
		Reason     string `json:"reason"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}
	targetType := models.TargetType(req.TargetType)
	if !targetType.Valid() {
		respondError(w, http.StatusBadRequest, "target_type must be 'post' or 'comment'", app)
		return
	}

	strikes, err := app.DB().DeleteContentAndStrike(req.TargetID, targetType, "moderator", req.Reason)
	if err != nil {
		if err == database.ErrNotFound {
			respondError(w, http.StatusNotFound, "Content not found", app)
			return
		}
		app.Logger().Error("Moderator delete failed", "target_id", req.TargetID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete content", app)
		return
	}
	respondJSON(w, http.StatusOK, models.Deleted(strikes), app)
}

// HandleModResetStrikes clears a user's strikes, lifting a derived ban.
func HandleModResetStrikes(w http.ResponseWriter, r *http.Request, app App) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decodeBody(r, &req); err != nil || req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required", app)
		return
	}

	if err := app.DB().ResetStrikes(req.UserID, "moderator"); err != nil {
		if err == database.ErrNotFound {
			respondError(w, http.StatusNotFound, "User not found", app)
			return
		}
		app.Logger().Error("Failed to reset strikes", "user_id", req.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to reset strikes", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"}, app)
}

// HandleModLog returns the most recent audit log entries.
func HandleModLog(w http.ResponseWriter, r *http.Request, app App) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	actions, err := app.DB().ListModActions(limit)
	if err != nil {
		app.Logger().Error("Failed to list mod actions", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load audit log", app)
		return
	}
	if actions == nil {
		actions = []models.ModAction{}
	}
	respondJSON(w, http.StatusOK, actions, app)
}

// HandleDatabaseBackup snapshots the database and pushes the file to the
// configured storage backend when one is set.
func HandleDatabaseBackup(w http.ResponseWriter, r *http.Request, app App) {
	path, err := app.DB().BackupDatabase()
	if err != nil {
		app.Logger().Error("Database backup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Backup failed", app)
		return
	}

	location := path
	if storage := app.BackupStorage(); storage != nil {
		if uploaded, err := app.DB().UploadBackup(storage, path); err != nil {
			app.Logger().Error("Backup upload failed", "path", path, "error", err)
		} else {
			location = uploaded
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "location": location}, app)
}
