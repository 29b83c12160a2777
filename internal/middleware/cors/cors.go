package cors

import (
	"net/http"
	"net/url"
	"strings"
)

// Config lists what cross-origin callers may do.
type Config struct {
	// AllowedHosts holds hosts ("example.com", "localhost:5173") or full
	// origins. An empty list allows any origin without credentials.
	AllowedHosts []string
	// AllowedHeaders are the request headers a browser may send.
	AllowedHeaders []string
}

// CORS applies Cross-Origin Resource Sharing headers and answers preflights.
//
// With no allowed hosts every origin gets "Access-Control-Allow-Origin: *".
// Otherwise a matching origin is echoed back with credentials allowed, and a
// preflight from any other origin is rejected with 403. Simple requests from
// other origins are served without CORS headers so the browser blocks them.
func CORS(config Config) func(http.Handler) http.Handler {
	allowHeaders := strings.Join(append([]string{"Content-Type"}, config.AllowedHeaders...), ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			origin := r.Header.Get("Origin")
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			switch {
			case len(config.AllowedHosts) == 0:
				h.Set("Access-Control-Allow-Origin", "*")
			case origin == "":
				// Same-origin or non-browser caller.
			case isOriginAllowed(origin, config.AllowedHosts):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			default:
				h.Add("Vary", "Origin")
				if preflight {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Set("Access-Control-Expose-Headers", "X-Request-Id")
			h.Set("Access-Control-Max-Age", "3600")

			if preflight {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// isOriginAllowed matches the origin's host against allowed entries. An entry
// without a port matches any port; comparison ignores case and whitespace.
func isOriginAllowed(origin string, allowedHosts []string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	hostname := strings.ToLower(u.Hostname())

	for _, allowed := range allowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if strings.Contains(allowed, "://") {
			if au, err := url.Parse(allowed); err == nil {
				if au.Scheme != u.Scheme {
					continue
				}
				allowed = au.Host
			}
		}
		if allowed == "" {
			continue
		}
		if allowed == host || allowed == hostname {
			return true
		}
	}
	return false
}
