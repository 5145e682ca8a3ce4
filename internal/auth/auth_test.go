package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestService_TokenRoundTrip(t *testing.T) {
	s := NewService("secret", time.Hour)
	token, err := s.IssueToken("sess_abc")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	got, err := s.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if got != "sess_abc" {
		t.Errorf("ValidateToken() = %q, want %q", got, "sess_abc")
	}
}

func TestService_RejectsBadTokens(t *testing.T) {
	s := NewService("secret", time.Hour)
	other := NewService("other-secret", time.Hour)
	foreign, err := other.IssueToken("sess_abc")
	if err != nil {
		t.Fatal(err)
	}

	expired := NewService("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.IssueToken("sess_abc")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", old},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.ValidateToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestSessionMiddleware(t *testing.T) {
	s := NewService("secret", time.Hour)
	token, err := s.IssueToken("sess_a")
	if err != nil {
		t.Fatal(err)
	}

	r := mux.NewRouter()
	sub := r.PathPrefix("/api").Subrouter()
	sub.Use(s.SessionMiddleware)
	sub.HandleFunc("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(SessionIDFromContext(r.Context())))
	})

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
	}{
		{"bearer header", "/api/sessions/sess_a", "Bearer " + token, http.StatusOK},
		{"query token", "/api/sessions/sess_a?token=" + token, "", http.StatusOK},
		{"missing", "/api/sessions/sess_a", "", http.StatusUnauthorized},
		{"bad scheme", "/api/sessions/sess_a", "Basic " + token, http.StatusUnauthorized},
		{"other session", "/api/sessions/sess_b", "Bearer " + token, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && rec.Body.String() != "sess_a" {
				t.Errorf("session in context = %q, want sess_a", rec.Body.String())
			}
		})
	}
}

func TestHandler_Refresh(t *testing.T) {
	s := NewService("secret", time.Hour)
	token, err := s.IssueToken("sess_a")
	if err != nil {
		t.Fatal(err)
	}
	h := s.SessionMiddleware(http.HandlerFunc(NewHandler(s).Refresh))

	req := httptest.NewRequest(http.MethodPost, "/token", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if got, err := s.ValidateToken(resp.Token); err != nil || got != "sess_a" {
		t.Errorf("refreshed token = %q, %v; want sess_a", got, err)
	}
}
