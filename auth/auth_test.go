package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func sessionCookie(t *testing.T, uid uint) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	CreateSession(rec, uid)
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatalf("no session cookie")
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(sessionCookie(t, 42))
	uid, ok := ParseSession(r)
	if !ok || uid != 42 {
		t.Fatalf("expected uid 42 got %d ok=%v", uid, ok)
	}
}

func TestTamperedSessionRejected(t *testing.T) {
	c := sessionCookie(t, 42)
	c.Value = "1" + c.Value[2:]
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	if _, ok := ParseSession(r); ok {
		t.Fatalf("tampered cookie accepted")
	}
}

func TestExpiredSessionRejected(t *testing.T) {
	issued := time.Now().Add(-sessionTTL - time.Hour).Unix()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: Sign("42:" + strconv.FormatInt(issued, 10))})
	if _, ok := ParseSession(r); ok {
		t.Fatalf("expired session accepted")
	}
}

func TestSecretOverride(t *testing.T) {
	SetSecret("one")
	signed := Sign("payload")
	SetSecret("two")
	defer SetSecret("")
	if _, ok := Verify(signed); ok {
		t.Fatalf("value signed with another key accepted")
	}
}

func TestVerify(t *testing.T) {
	signed := Sign("payload")
	if got, ok := Verify(signed); !ok || got != "payload" {
		t.Fatalf("verify failed: %q %v", got, ok)
	}
	if _, ok := Verify("payload"); ok {
		t.Fatalf("unsigned value accepted")
	}
	if _, ok := Verify(signed + ".x"); ok {
		t.Fatalf("extra segment accepted")
	}
}

func TestRequireAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Middleware(RequireAuth(next))

	// anonymous browser -> redirect
	r := httptest.NewRequest(http.MethodGet, "/orders", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect got %d", w.Code)
	}

	// anonymous API client -> 401
	r = httptest.NewRequest(http.MethodGet, "/orders", nil)
	r.Header.Set("Accept", "application/json")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}

	// valid session -> pass through
	r = httptest.NewRequest(http.MethodGet, "/orders", nil)
	r.AddCookie(sessionCookie(t, 5))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", w.Code)
	}

	// session of a deleted user -> cleared and redirected
	SetUserVerifier(func(_ context.Context, uid uint) bool { return uid != 5 })
	defer SetUserVerifier(nil)
	r = httptest.NewRequest(http.MethodGet, "/orders", nil)
	r.AddCookie(sessionCookie(t, 5))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect for deleted user got %d", w.Code)
	}
}
