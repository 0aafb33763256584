package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/timemachinetv/timemachine/internal/httputil"
)

type SecurityConfig struct {
	BaseURL string
	// MediaOrigin is where generated video is loaded from.
	MediaOrigin string
}

func securityHeaders(cfg SecurityConfig) func(http.Handler) http.Handler {
	strictTransport := strings.HasPrefix(cfg.BaseURL, "https://")

	mediaSuffix := ""
	if cfg.MediaOrigin != "" {
		mediaSuffix = " " + cfg.MediaOrigin
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nonce := httputil.GenerateNonce()
			ctx := httputil.ContextWithNonce(r.Context(), nonce)

			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "SAMEORIGIN")

			csp := fmt.Sprintf(
				"default-src 'self'; img-src 'self' data:; media-src 'self' blob:%s; script-src 'self' 'nonce-%s'; style-src 'self' 'nonce-%s'; connect-src 'self'; frame-ancestors 'self';",
				mediaSuffix, nonce, nonce,
			)
			w.Header().Set("Content-Security-Policy", csp)

			if strictTransport {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// originOf reduces a URL to scheme://host for use in a CSP source list.
func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
