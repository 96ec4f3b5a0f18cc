package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

const widgetOrigin = "https://booking.clinic.example"

func serveCORS(t *testing.T, allowed []string, method, origin string, preflight bool) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(method, "/schedule/text", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	rec := httptest.NewRecorder()
	CORS(allowed)(next).ServeHTTP(rec, req)
	return rec, called
}

func TestCORSAllowsBookingWidgetOrigin(t *testing.T) {
	rec, called := serveCORS(t, []string{widgetOrigin}, http.MethodPost, widgetOrigin, false)

	if !called {
		t.Fatal("handler should run for an allowed origin")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != widgetOrigin {
		t.Fatalf("allow-origin = %q, want %q", got, widgetOrigin)
	}
	if rec.Header().Get("Vary") != "Origin" {
		t.Fatalf("Vary = %q, want Origin", rec.Header().Get("Vary"))
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatal("expected allow-methods header")
	}
}

func TestCORSIgnoresUnlistedOrigin(t *testing.T) {
	rec, called := serveCORS(t, []string{widgetOrigin}, http.MethodPost, "https://evil.example", false)

	if !called {
		t.Fatal("handler still runs; the browser enforces the missing header")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("allow-origin = %q, want empty", got)
	}
}

func TestCORSWildcardEchoesOrigin(t *testing.T) {
	rec, _ := serveCORS(t, []string{"*"}, http.MethodGet, "https://anywhere.example", false)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://anywhere.example" {
		t.Fatalf("allow-origin = %q, want the echoed origin", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	rec, called := serveCORS(t, []string{widgetOrigin}, http.MethodOptions, widgetOrigin, true)

	if called {
		t.Fatal("preflight must not reach the handler")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}
