// crushnote/handlers/handlers.go

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Ali-GR/CrushNoteApp/config"
	"github.com/Ali-GR/CrushNoteApp/database"
	"github.com/Ali-GR/CrushNoteApp/models"
	"github.com/Ali-GR/CrushNoteApp/moderation"
	"github.com/Ali-GR/CrushNoteApp/utils"

	"github.com/go-chi/chi/v5"
)

// App is an interface that defines the dependencies our handlers need.
type App interface {
	DB() *database.DatabaseService
	Pipeline() *moderation.Pipeline
	RateLimiter() *models.RateLimiter
	Logger() *slog.Logger
	JWTSecret() []byte
	ModKeyHash() []byte
	BackupStorage() utils.StorageService
}

// respondJSON sends a JSON response with a given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}, app App) {
	response, err := json.Marshal(payload)
	if err != nil {
		app.Logger().Error("Failed to marshal JSON payload", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte(`{"error":"Failed to marshal JSON response"}`)); werr != nil {
			app.Logger().Error("Failed to write internal server error response", "error", werr)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		app.Logger().Error("Failed to write JSON response", "error", err)
	}
}

// respondError sends a JSON error body with a given status code.
func respondError(w http.ResponseWriter, status int, message string, app App) {
	respondJSON(w, status, map[string]string{"error": message}, app)
}

// MakeHandler adapts a handler function to the App interface.
func MakeHandler(app App, fn func(http.ResponseWriter, *http.Request, App)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, app)
	}
}

// decodeBody parses a JSON request body into dst.
func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// validateContent applies the shared length rules for posts and comments.
func validateContent(content string) (string, bool) {
	content = strings.TrimSpace(content)
	if content == "" || len([]rune(content)) > config.MaxContentLen {
		return "", false
	}
	return content, true
}

// HandleListSchools returns the school directory for onboarding.
func HandleListSchools(w http.ResponseWriter, r *http.Request, app App) {
	schools, err := app.DB().ListSchools()
	if err != nil {
		app.Logger().Error("Failed to list schools", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load schools", app)
		return
	}
	respondJSON(w, http.StatusOK, schools, app)
}

// HandleFeed returns the newest posts for the viewer's school.
func HandleFeed(w http.ResponseWriter, r *http.Request, app App) {
	profile := profileFrom(r)

	// Default to the viewer's own school; an explicit school_id may
	// browse another school's feed read-only.
	schoolID := profile.SchoolID
	if v := r.URL.Query().Get("school_id"); v != "" {
		schoolID = v
	}

	limit := config.FeedPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= config.FeedPageSize {
			limit = n
		}
	}

	posts, err := app.DB().GetFeed(schoolID, profile.ID, limit)
	if err != nil {
		app.Logger().Error("Failed to load feed", "school_id", schoolID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load feed", app)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	respondJSON(w, http.StatusOK, posts, app)
}

// HandleCreatePost accepts a new anonymous post after rate limiting and
// the lexical word filter.
func HandleCreatePost(w http.ResponseWriter, r *http.Request, app App) {
	profile := profileFrom(r)

	if !app.RateLimiter().GetLimiter(profile.ID).Allow() {
		respondError(w, http.StatusTooManyRequests, "You are posting too fast. Please wait.", app)
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}

	content, ok := validateContent(req.Content)
	if !ok {
		respondError(w, http.StatusBadRequest, "Content must be between 1 and 500 characters", app)
		return
	}
	if moderation.IsBlocked(content) {
		respondError(w, http.StatusUnprocessableEntity, "Content contains blocked language", app)
		return
	}
	if profile.SchoolID == "" {
		respondError(w, http.StatusBadRequest, "Profile has no school selected", app)
		return
	}

	post, err := app.DB().CreatePost(profile.ID, profile.SchoolID, content)
	if err != nil {
		app.Logger().Error("Failed to create post", "author_id", profile.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create post", app)
		return
	}
	respondJSON(w, http.StatusCreated, post, app)
}

// HandleDeletePost lets an author remove their own post.
func HandleDeletePost(w http.ResponseWriter, r *http.Request, app App) {
	profile := profileFrom(r)
	postID := chi.URLParam(r, "postID")

	err := app.DB().DeletePostByAuthor(postID, profile.ID)
	switch err {
	case nil:
		respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"}, app)
	case database.ErrNotFound:
		respondError(w, http.StatusNotFound, "Post not found", app)
	case database.ErrNotOwner:
		respondError(w, http.StatusForbidden, "You can only delete your own posts", app)
	default:
		app.Logger().Error("Failed to delete post", "post_id", postID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete post", app)
	}
}

// HandleListComments returns a post's comments, oldest first.
func HandleListComments(w http.ResponseWriter, r *http.Request, app App) {
	postID := chi.URLParam(r, "postID")
	comments, err := app.DB().GetCommentsForPost(postID)
	if err != nil {
		app.Logger().Error("Failed to load comments", "post_id", postID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load comments", app)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	respondJSON(w, http.StatusOK, comments, app)
}

// HandleCreateComment adds a comment to a post, with the same filter and
// rate limit as posts.
func HandleCreateComment(w http.ResponseWriter, r *http.Request, app App) {
	profile := profileFrom(r)
	postID := chi.URLParam(r, "postID")

	if !app.RateLimiter().GetLimiter(profile.ID).Allow() {
		respondError(w, http.StatusTooManyRequests, "You are posting too fast. Please wait.", app)
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}

	content, ok := validateContent(req.Content)
	if !ok {
		respondError(w, http.StatusBadRequest, "Content must be between 1 and 500 characters", app)
		return
	}
	if moderation.IsBlocked(content) {
		respondError(w, http.StatusUnprocessableEntity, "Content contains blocked language", app)
		return
	}

	comment, err := app.DB().CreateComment(postID, profile.ID, content)
	if err != nil {
		if err == database.ErrNotFound {
			respondError(w, http.StatusNotFound, "Post not found", app)
			return
		}
		app.Logger().Error("Failed to create comment", "post_id", postID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create comment", app)
		return
	}
	respondJSON(w, http.StatusCreated, comment, app)
}

// HandleDeleteComment lets an author remove their own comment.
func HandleDeleteComment(w http.ResponseWriter, r *http.Request, app App) {
	profile := profileFrom(r)
	commentID := chi.URLParam(r, "commentID")

	err := app.DB().DeleteCommentByAuthor(commentID, profile.ID)
	switch err {
	case nil:
		respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"}, app)
	case database.ErrNotFound:
		respondError(w, http.StatusNotFound, "Comment not found", app)
	case database.ErrNotOwner:
		respondError(w, http.StatusForbidden, "You can only delete your own comments", app)
	default:
		app.Logger().Error("Failed to delete comment", "comment_id", commentID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete comment", app)
	}
}

// HandleToggleLike flips the viewer's like on a post.
func HandleToggleLike(w http.ResponseWriter, r *http.Request, app App) {
	profile := profileFrom(r)
	postID := chi.URLParam(r, "postID")

	liked, count, err := app.DB().ToggleLike(postID, profile.ID)
	if err != nil {
		if err == database.ErrNotFound {
			respondError(w, http.StatusNotFound, "Post not found", app)
			return
		}
		app.Logger().Error("Failed to toggle like", "post_id", postID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to toggle like", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"liked":       liked,
		"likes_count": count,
	}, app)
}

// HandleGetMe returns the caller's own profile.
func HandleGetMe(w http.ResponseWriter, r *http.Request, app App) {
	userID := userIDFrom(r)
	profile, err := app.DB().GetProfile(userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Profile not found", app)
		return
	}
	respondJSON(w, http.StatusOK, profile, app)
}

// HandleCreateMe creates the caller's profile during onboarding.
func HandleCreateMe(w http.ResponseWriter, r *http.Request, app App) {
	userID := userIDFrom(r)

	var req struct {
		Nickname string `json:"nickname"`
		SchoolID string `json:"school_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}

	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" || len([]rune(nickname)) > config.MaxNicknameLen {
		respondError(w, http.StatusBadRequest, "Nickname must be between 1 and 32 characters", app)
		return
	}
	if moderation.IsBlocked(nickname) {
		respondError(w, http.StatusUnprocessableEntity, "Nickname contains blocked language", app)
		return
	}
	if _, err := app.DB().GetSchool(req.SchoolID); err != nil {
		respondError(w, http.StatusBadRequest, "Unknown school", app)
		return
	}

	if _, err := app.DB().GetProfile(userID); err == nil {
		respondError(w, http.StatusConflict, "Profile already exists", app)
		return
	}

	profile, err := app.DB().CreateProfile(userID, nickname, req.SchoolID)
	if err != nil {
		app.Logger().Error("Failed to create profile", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create profile", app)
		return
	}
	respondJSON(w, http.StatusCreated, profile, app)
}

// HandleUpdateMe updates the caller's nickname or school.
func HandleUpdateMe(w http.ResponseWriter, r *http.Request, app App) {
	profile := profileFrom(r)

	var req struct {
		Nickname string `json:"nickname"`
		SchoolID string `json:"school_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}

	nickname := strings.TrimSpace(req.Nickname)
	if nickname != "" {
		if len([]rune(nickname)) > config.MaxNicknameLen {
			respondError(w, http.StatusBadRequest, "Nickname must be at most 32 characters", app)
			return
		}
		if moderation.IsBlocked(nickname) {
			respondError(w, http.StatusUnprocessableEntity, "Nickname contains blocked language", app)
			return
		}
	}

	updated, err := app.DB().UpdateProfile(profile.ID, nickname, req.SchoolID)
	if err != nil {
		app.Logger().Error("Failed to update profile", "user_id", profile.ID, "error", err)
		respondError(w, http.StatusBadRequest, "Failed to update profile", app)
		return
	}
	respondJSON(w, http.StatusOK, updated, app)
}
