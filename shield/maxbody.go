package shield

import (
	"net/http"
	"strings"
)

// MaxJSONBody returns middleware that caps the request body for JSON and
// form submissions. Multipart uploads pass through untouched; the upload
// handler applies its own, larger limit sized for document payloads.
func MaxJSONBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
