package api

import (
	"net/http"
	"strconv"
	"strings"

	"sms-relay/internal/config"
)

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
)

// CORS answers preflight requests and decorates responses for allowed origins.
func CORS(cfg config.CORSConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if originAllowed(origin, cfg.AllowedOrigins) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				h.Set("Access-Control-Allow-Methods", strings.Join(corsMethods, ", "))
				h.Set("Access-Control-Allow-Headers", strings.Join(corsHeaders, ", "))
				h.Set("Access-Control-Expose-Headers", "X-Request-ID")
				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// originAllowed supports "*", exact origins and "*.example.com" subdomain patterns.
func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		switch {
		case a == "*", a == origin:
			return true
		case strings.Contains(a, "*."):
			i := strings.Index(a, "*.")
			prefix, suffix := a[:i], a[i+1:]
			if !strings.HasPrefix(origin, prefix) || !strings.HasSuffix(origin, suffix) {
				continue
			}
			sub := origin[len(prefix) : len(origin)-len(suffix)]
			if prefix == "" {
				if i := strings.Index(sub, "://"); i >= 0 {
					sub = sub[i+3:]
				}
			}
			if sub != "" && !strings.Contains(sub, "/") {
				return true
			}
		}
	}
	return false
}
