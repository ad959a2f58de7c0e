package shield

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/agendex/agendex/dbopen"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(DefaultHeaders())(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if got := rec.Header().Get("Content-Security-Policy"); got == "" {
		t.Error("CSP header missing")
	}
}

func TestRateLimiter(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	if _, err := db.Exec(
		`INSERT INTO rate_limits (endpoint, max_requests, window_seconds, enabled) VALUES ('POST /v1/parse', 2, 60, 1)`); err != nil {
		t.Fatal(err)
	}

	rl := NewRateLimiter(db, "/healthz")
	h := rl.Middleware(okHandler())

	do := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "10.0.0.1:5555"
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("/v1/parse"); rec.Code != http.StatusOK {
			t.Fatalf("request %d blocked: %d", i+1, rec.Code)
		}
	}

	rec := do("/v1/parse")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["error"] == "" {
		t.Error("error body missing")
	}

	// Endpoints without a rule are unlimited.
	for i := 0; i < 5; i++ {
		if rec := do("/v1/other"); rec.Code != http.StatusOK {
			t.Fatalf("unruled endpoint blocked: %d", rec.Code)
		}
	}

	// Excluded prefixes bypass the limiter.
	recH := httptest.NewRecorder()
	reqH := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	reqH.RemoteAddr = "10.0.0.1:5555"
	h.ServeHTTP(recH, reqH)
	if recH.Code != http.StatusOK {
		t.Fatalf("excluded path blocked: %d", recH.Code)
	}
}

func TestMaxJSONBody(t *testing.T) {
	h := MaxJSONBody(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	do := func(contentType, body string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/parse", strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do("application/json", `{"text":"x"}`); code != http.StatusOK {
		t.Fatalf("small JSON body rejected: %d", code)
	}
	if code := do("application/json", strings.Repeat("x", 64)); code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized JSON body passed: %d", code)
	}
	// Multipart uploads are capped by the handler, not here.
	if code := do("multipart/form-data; boundary=b", strings.Repeat("x", 64)); code != http.StatusOK {
		t.Fatalf("multipart body capped by JSON limit: %d", code)
	}
}

func TestExtractIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.7:1234"
	if got := ExtractIP(r); got != "192.0.2.7" {
		t.Errorf("ExtractIP = %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ExtractIP(r); got != "203.0.113.9" {
		t.Errorf("ExtractIP with XFF = %q", got)
	}
}
