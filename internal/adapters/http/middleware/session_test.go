package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func captureSessionID(t *testing.T, opts SessionOptions, cookie *http.Cookie) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var got string
	handler := Sessions(opts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := SessionIDFromContext(r.Context())
		if !ok {
			t.Fatal("SessionIDFromContext() ok = false")
		}
		got = id
	}))

	req := httptest.NewRequest("GET", "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return got, rr
}

func responseCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

// TestSessions_IssuesCookie verifies a first visit gets a token and an id
// derived from it.
func TestSessions_IssuesCookie(t *testing.T) {
	id, rr := captureSessionID(t, SessionOptions{MaxAge: time.Hour}, nil)

	c := responseCookie(t, rr)
	if _, err := uuid.Parse(c.Value); err != nil {
		t.Errorf("cookie value %q is not a uuid: %v", c.Value, err)
	}
	if !c.HttpOnly {
		t.Error("cookie HttpOnly = false")
	}
	if c.MaxAge != 3600 {
		t.Errorf("cookie MaxAge = %d, want 3600", c.MaxAge)
	}
	if id != SessionID(c.Value) {
		t.Errorf("id = %q, want SessionID(token) %q", id, SessionID(c.Value))
	}
	if id == c.Value {
		t.Error("id equals the cookie token")
	}
	if len(id) != 64 {
		t.Errorf("len(id) = %d, want 64", len(id))
	}
}

// TestSessions_ReusesCookie verifies a returning browser keeps its session.
func TestSessions_ReusesCookie(t *testing.T) {
	token := uuid.New().String()
	id, rr := captureSessionID(t, SessionOptions{}, &http.Cookie{Name: SessionCookieName, Value: token})

	if id != SessionID(token) {
		t.Errorf("id = %q, want %q", id, SessionID(token))
	}
	if c := responseCookie(t, rr); c.Value != token {
		t.Errorf("cookie refreshed with %q, want %q", c.Value, token)
	}
}

// TestSessions_RejectsMalformedCookie verifies a forged value is replaced.
func TestSessions_RejectsMalformedCookie(t *testing.T) {
	id, rr := captureSessionID(t, SessionOptions{}, &http.Cookie{Name: SessionCookieName, Value: "admin"})

	if id == SessionID("admin") {
		t.Error("malformed cookie accepted")
	}
	if c := responseCookie(t, rr); c.Value == "admin" {
		t.Error("malformed cookie echoed back")
	}
}

func TestSessions_DistinctPerVisitor(t *testing.T) {
	a, _ := captureSessionID(t, SessionOptions{}, nil)
	b, _ := captureSessionID(t, SessionOptions{}, nil)
	if a == b {
		t.Errorf("two new visitors share id %q", a)
	}
}

func TestSessionIDFromContext_Missing(t *testing.T) {
	if _, ok := SessionIDFromContext(context.Background()); ok {
		t.Error("SessionIDFromContext() ok = true on empty context")
	}
	if _, ok := SessionIDFromContext(ContextWithSessionID(context.Background(), "")); ok {
		t.Error("SessionIDFromContext() ok = true for empty id")
	}
}

func TestClearSessionCookie(t *testing.T) {
	rr := httptest.NewRecorder()
	ClearSessionCookie(rr, SessionOptions{Secure: true})

	c := responseCookie(t, rr)
	if c.MaxAge >= 0 {
		t.Errorf("MaxAge = %d, want negative", c.MaxAge)
	}
	if !c.Secure {
		t.Error("Secure = false")
	}
}
