// crushnote/handlers/middleware.go
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Ali-GR/CrushNoteApp/models"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"log/slog"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	UserIDKey  ContextKey = "userID"
	ProfileKey ContextKey = "profile"
)

// userIDFrom returns the authenticated user ID set by AuthMiddleware.
func userIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(UserIDKey).(string)
	return id
}

// profileFrom returns the profile loaded by BanGate.
func profileFrom(r *http.Request) *models.Profile {
	p, _ := r.Context().Value(ProfileKey).(*models.Profile)
	return p
}

// AuthMiddleware validates the Bearer token and stores the subject in the
// request context. Tokens are HS256, issued by the auth service that owns
// the identity pool.
func AuthMiddleware(app App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respondError(w, http.StatusUnauthorized, "Missing bearer token", app)
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return app.JWTSecret(), nil
			})
			if err != nil || !token.Valid {
				respondError(w, http.StatusUnauthorized, "Invalid or expired token", app)
				return
			}

			subject, err := token.Claims.GetSubject()
			if err != nil || subject == "" {
				respondError(w, http.StatusUnauthorized, "Token has no subject", app)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BanGate loads the caller's profile and rejects the request when the
// strike counter has crossed the ban limit. Ban state is derived, never
// stored, so resetting strikes lifts the ban with no extra bookkeeping.
func BanGate(app App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := userIDFrom(r)
			profile, err := app.DB().GetProfile(userID)
			if err != nil {
				respondError(w, http.StatusForbidden, "No profile for this account", app)
				return
			}
			if profile.Banned() {
				respondJSON(w, http.StatusForbidden, map[string]interface{}{
					"banned":  true,
					"error":   "Account is banned",
					"strikes": profile.Strikes,
				}, app)
				return
			}
			ctx := context.WithValue(r.Context(), ProfileKey, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireModerator guards the moderation console with a shared key,
// checked against a bcrypt hash.
func RequireModerator(app App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(app.ModKeyHash()) == 0 {
				respondError(w, http.StatusForbidden, "Moderation console is disabled", app)
				return
			}
			key := r.Header.Get("X-Mod-Key")
			if key == "" || bcrypt.CompareHashAndPassword(app.ModKeyHash(), []byte(key)) != nil {
				respondError(w, http.StatusForbidden, "Invalid moderation key", app)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewStructuredLogger returns a chi middleware that logs each request
// through slog.
func NewStructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
