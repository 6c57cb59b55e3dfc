package session

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// exemptPaths are served without a session.
// The MCP endpoint carries session data inside tool call metadata instead
// of headers, so it is exempt here and resolves sessions itself.
var exemptPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/mcp":     true,
}

// Middleware resolves the shopper session for each request and stores it
// in the request context.
//
// A missing header yields a fresh guest session; a malformed header is a
// 400. Authentication state is re-read from the header on every request,
// never cached server-side, so a shopper logging in mid-session switches
// tiers on their next call.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exemptPaths[r.URL.Path] || strings.HasPrefix(r.URL.Path, "/mcp/") {
				next.ServeHTTP(w, r)
				return
			}

			sess := Session{}
			if header := r.Header.Get(HeaderName); header != "" {
				parsed, err := ParseHeader(header)
				if err != nil {
					logger.Warn("rejecting malformed session header",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
					writeBadRequest(w, err)
					return
				}
				sess = parsed
			}
			if sess.ID == "" {
				sess.ID = "guest-" + uuid.NewString()
			}

			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), sess)))
		})
	}
}

func writeBadRequest(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "INVALID_SESSION_HEADER",
			"message": err.Error(),
		},
	})
}
