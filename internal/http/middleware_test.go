package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/library-service/internal/application"
)

func TestRequireSession(t *testing.T) {
	t.Run("rejects requests without a token", func(t *testing.T) {
		middleware := RequireSession(fakeValidator{principal: memberPrincipal}, nil)
		handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next handler must not run without credentials")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		resp := decodeErrorResponse(t, rec)
		if resp.Message != errMissingSessionToken.Error() {
			t.Fatalf("unexpected message: %q", resp.Message)
		}
	})

	t.Run("maps validation failures onto the session error codes", func(t *testing.T) {
		tests := []struct {
			name       string
			err        error
			wantStatus int
			wantCode   string
		}{
			{"unknown token", application.ErrUnauthorized, http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS"},
			{"expired session", application.ErrSessionExpired, http.StatusUnauthorized, "AUTH_SESSION_EXPIRED"},
			{"revoked session", application.ErrSessionRevoked, http.StatusUnauthorized, "AUTH_SESSION_REVOKED"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				middleware := RequireSession(fakeValidator{err: tc.err}, nil)
				handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Fatal("next handler must not run for a rejected session")
				}))

				rec := httptest.NewRecorder()
				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				req.Header.Set("Authorization", "Bearer stale-token")
				handler.ServeHTTP(rec, req)

				if rec.Code != tc.wantStatus {
					t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
				}
				resp := decodeErrorResponse(t, rec)
				if resp.ErrorCode != tc.wantCode {
					t.Fatalf("expected error code %q, got %q", tc.wantCode, resp.ErrorCode)
				}
			})
		}
	})

	t.Run("converts lookup failures into a 500", func(t *testing.T) {
		middleware := RequireSession(fakeValidator{err: errors.New("store unavailable")}, nil)
		handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next handler must not run when validation fails")
		}))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer some-token")
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("attaches the principal to the request context", func(t *testing.T) {
		middleware := RequireSession(fakeValidator{principal: adminPrincipal}, nil)

		var captured application.Principal
		handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				t.Fatal("expected principal in request context")
			}
			captured = principal
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: "valid-token"})
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if captured.UserID != adminPrincipal.UserID || !captured.IsAdmin() {
			t.Fatalf("unexpected principal: %+v", captured)
		}
	})
}

func TestExtractTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{name: "no credentials", want: ""},
		{name: "bearer header", header: "Bearer abc", want: "abc"},
		{name: "header wins over cookie", header: "Bearer abc", cookie: "def", want: "abc"},
		{name: "cookie fallback", cookie: "def", want: "def"},
		{name: "non-bearer header falls back to cookie", header: "Basic dXNlcg==", cookie: "def", want: "def"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "session_token", Value: tc.cookie})
			}

			if got := extractTokenFromRequest(req); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	middleware := RequestLogger(nil)

	called := false
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if LoggerFromContext(r.Context()) == nil {
			t.Fatal("expected per-request logger in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/books", nil))

	if !called {
		t.Fatal("next handler was not invoked")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
