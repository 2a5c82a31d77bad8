package util

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveWithSecurityHeaders(req *http.Request) *httptest.ResponseRecorder {
	h := WithSecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWithSecurityHeaders(t *testing.T) {
	rec := serveWithSecurityHeaders(httptest.NewRequest(http.MethodGet, "/books/list", nil))

	for _, kv := range apiSecurityHeaders {
		if got := rec.Header().Get(kv[0]); got != kv[1] {
			t.Fatalf("%s = %q, want %q", kv[0], got, kv[1])
		}
	}
	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("did not expect HSTS for plain http, got %q", got)
	}
}

func TestWithSecurityHeadersHSTS(t *testing.T) {
	forwarded := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	forwarded.Header.Set("X-Forwarded-Proto", "HTTPS")
	if got := serveWithSecurityHeaders(forwarded).Header().Get("Strict-Transport-Security"); got != hstsValue {
		t.Fatalf("forwarded https HSTS = %q", got)
	}

	direct := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	direct.TLS = &tls.ConnectionState{}
	if got := serveWithSecurityHeaders(direct).Header().Get("Strict-Transport-Security"); got != hstsValue {
		t.Fatalf("direct tls HSTS = %q", got)
	}
}
