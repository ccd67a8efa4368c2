package web

import (
	"net/http"
	"strings"

	"github.com/onecoremx/csvgate/internal/auth"
)

// requireAuth validates the bearer token and stores the caller's claims in
// the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := s.verifier.Verify(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// requireUploader gates routes to callers whose role may upload.
func (s *Server) requireUploader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if !claims.Role.CanUpload() {
			writeError(w, r, http.StatusForbidden, "role not allowed to upload")
			return
		}
		next.ServeHTTP(w, r)
	})
}
