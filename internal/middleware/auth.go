package middleware

import (
	"net/http"

	"OfficeSLAMonitor/internal/auth"
	"OfficeSLAMonitor/internal/logger"
)

// IngestAuth requires a monitor bearer token signed with secret. An empty
// secret disables the check.
func IngestAuth(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := auth.Verify(secret, r.Header.Get("Authorization")); err != nil {
				log.Warn("Rejected ingest request %s %s: %v", r.Method, r.URL.Path, err)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="ingest"`)
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"Unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
