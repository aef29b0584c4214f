// crushnote/handlers/router.go
package handlers

import (
	"net/http"

	"github.com/Ali-GR/CrushNoteApp/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func SetupRouter(app App) *chi.Mux {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(NewStructuredLogger(app.Logger()))
	mux.Use(middleware.Recoverer)

	mux.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": config.AppVersion}, app)
	})
	mux.Get("/api/schools", MakeHandler(app, HandleListSchools))

	// Authenticated routes that work without a profile (onboarding).
	mux.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(app))
		r.Get("/api/me", MakeHandler(app, HandleGetMe))
		r.Post("/api/me", MakeHandler(app, HandleCreateMe))
	})

	// Content routes: authenticated, profiled, and not banned.
	mux.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(app))
		r.Use(BanGate(app))

		r.Patch("/api/me", MakeHandler(app, HandleUpdateMe))

		r.Get("/api/feed", MakeHandler(app, HandleFeed))
		r.Post("/api/posts", MakeHandler(app, HandleCreatePost))
		r.Delete("/api/posts/{postID}", MakeHandler(app, HandleDeletePost))
		r.Get("/api/posts/{postID}/comments", MakeHandler(app, HandleListComments))
		r.Post("/api/posts/{postID}/comments", MakeHandler(app, HandleCreateComment))
		r.Delete("/api/comments/{commentID}", MakeHandler(app, HandleDeleteComment))
		r.Post("/api/posts/{postID}/like", MakeHandler(app, HandleToggleLike))

		r.Post("/api/report", MakeHandler(app, HandleReport))
		r.Post("/api/moderation/adjudicate", MakeHandler(app, HandleAdjudicate))
	})

	// Moderation console.
	mux.Route("/api/mod", func(r chi.Router) {
		r.Use(RequireModerator(app))
		r.Get("/reports", MakeHandler(app, HandleModReports))
		r.Post("/delete", MakeHandler(app, HandleModDelete))
		r.Post("/reset-strikes", MakeHandler(app, HandleModResetStrikes))
		r.Get("/log", MakeHandler(app, HandleModLog))
		r.Post("/backup-db", MakeHandler(app, HandleDatabaseBackup))
	})

	return mux
}
