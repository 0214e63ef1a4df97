package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stonegate-io/identity-core/internal/auth"
)

func TestHandleRegister(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := `{"first_name":"Rajesh","last_name":"Kumar","email":"raj@gmail.com","password":"cityslicka"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp idResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ID == 0 {
		t.Error("response id should be non-zero")
	}

	// Self-registration always yields a customer.
	user, err := srv.users.GetByID(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if user.Role != auth.RoleCustomer {
		t.Errorf("role = %q, want %q", user.Role, auth.RoleCustomer)
	}
	if len(user.PasswordHash) != 60 || !strings.HasPrefix(user.PasswordHash, "$2") {
		t.Errorf("stored hash %q is not a bcrypt hash", user.PasswordHash)
	}

	// Both cookies set, access token verifiable and carrying the role.
	access, ok := cookieValue(t, w, accessCookieName)
	if !ok {
		t.Fatal("accessToken cookie not set")
	}
	if access.MaxAge != 3600 {
		t.Errorf("accessToken Max-Age = %d, want 3600", access.MaxAge)
	}
	if !access.HttpOnly {
		t.Error("accessToken cookie should be HttpOnly")
	}

	claims, err := srv.sessions.Codec().VerifyAccessToken(access.Value)
	if err != nil {
		t.Fatalf("VerifyAccessToken(cookie) error = %v", err)
	}
	if claims.Role != auth.RoleCustomer {
		t.Errorf("token role = %q, want %q", claims.Role, auth.RoleCustomer)
	}

	refresh, ok := cookieValue(t, w, refreshCookieName)
	if !ok {
		t.Fatal("refreshToken cookie not set")
	}
	if refresh.MaxAge != 31536000 {
		t.Errorf("refreshToken Max-Age = %d, want 31536000", refresh.MaxAge)
	}
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	createUser(t, srv, "raj@gmail.com", auth.RoleCustomer)

	body := `{"first_name":"Other","last_name":"Person","email":"raj@gmail.com","password":"cityslicka"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestHandleRegister_Validation(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing fields", `{"email":"a@b.com"}`},
		{"short password", `{"first_name":"A","last_name":"B","email":"a@b.com","password":"short"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestHandleLogin(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	user := createUser(t, srv, "raj@gmail.com", auth.RoleCustomer)

	body := `{"email":"raj@gmail.com","password":"cityslicka"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp idResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ID != user.ID {
		t.Errorf("id = %d, want %d", resp.ID, user.ID)
	}

	if _, ok := cookieValue(t, w, accessCookieName); !ok {
		t.Error("accessToken cookie not set")
	}
	if _, ok := cookieValue(t, w, refreshCookieName); !ok {
		t.Error("refreshToken cookie not set")
	}
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	srv, db := testServer(t)
	router := srv.buildRouter()

	user := createUser(t, srv, "raj@gmail.com", auth.RoleCustomer)

	body := `{"email":"raj@gmail.com","password":"wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(w.Body.String(), "email or password not match") {
		t.Errorf("body = %s, want credentials message", w.Body.String())
	}

	// A failed login must not create a session row.
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM refresh_sessions WHERE user_id = ?", user.ID).Scan(&count); err != nil {
		t.Fatalf("counting sessions: %v", err)
	}
	if count != 0 {
		t.Errorf("session rows after failed login = %d, want 0", count)
	}
}

func TestHandleLogin_UnknownEmail(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := `{"email":"nobody@example.com","password":"cityslicka"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Same status and message as a wrong password: no account probing.
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(w.Body.String(), "email or password not match") {
		t.Errorf("body = %s, want credentials message", w.Body.String())
	}
}

func TestHandleSelf(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	user := createUser(t, srv, "raj@gmail.com", auth.RoleCustomer)
	pair := issueTokens(t, srv, user)

	// Cookie transport
	req := httptest.NewRequest(http.MethodGet, "/auth/self", nil)
	req.AddCookie(&http.Cookie{Name: accessCookieName, Value: pair.AccessToken})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var got auth.User
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != user.ID || got.Email != user.Email {
		t.Errorf("self = %+v, want user %d", got, user.ID)
	}

	// The password hash must never leave the service.
	if strings.Contains(w.Body.String(), "password") {
		t.Errorf("response leaks password material: %s", w.Body.String())
	}

	// Bearer transport works too.
	req = httptest.NewRequest(http.MethodGet, "/auth/self", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("bearer status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestHandleSelf_Unauthenticated(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/auth/self", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestHandleSelf_GarbageToken(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/auth/self", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestHandleRefresh(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	user := createUser(t, srv, "raj@gmail.com", auth.RoleCustomer)
	pair := issueTokens(t, srv, user)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: pair.RefreshToken})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	newRefresh, ok := cookieValue(t, w, refreshCookieName)
	if !ok {
		t.Fatal("refreshToken cookie not set")
	}
	if newRefresh.Value == pair.RefreshToken {
		t.Error("refresh should rotate to a new refresh token")
	}

	// The consumed token is now dead.
	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: pair.RefreshToken})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("replayed refresh status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	// The rotated token still works.
	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: newRefresh.Value})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("rotated refresh status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}
}

func TestHandleRefresh_AccessTokenRejected(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	user := createUser(t, srv, "raj@gmail.com", auth.RoleCustomer)
	pair := issueTokens(t, srv, user)

	// An access token in the refresh cookie is signed with the wrong
	// scheme and carries no session id.
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: pair.AccessToken})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestHandleRefresh_NoCookie(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestHandleLogout(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	user := createUser(t, srv, "raj@gmail.com", auth.RoleCustomer)
	pair := issueTokens(t, srv, user)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: pair.RefreshToken})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	// Cookies cleared
	for _, name := range []string{accessCookieName, refreshCookieName} {
		cookie, ok := cookieValue(t, w, name)
		if !ok {
			t.Errorf("%s cookie not cleared", name)
			continue
		}
		if cookie.Value != "" || cookie.MaxAge >= 0 {
			t.Errorf("%s cookie = %q MaxAge=%d, want expired empty cookie", name, cookie.Value, cookie.MaxAge)
		}
	}

	// The session row is gone, so refreshing with the old token fails.
	claims, err := srv.sessions.Codec().VerifyRefreshToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("VerifyRefreshToken() error = %v", err)
	}
	if _, _, err := srv.sessions.Refresh(context.Background(), claims); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("Refresh(after logout) error = %v, want ErrInvalidToken", err)
	}

	// Logging out again with the same (still signature-valid) token is fine.
	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: pair.RefreshToken})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("second logout status = %d, want %d", w.Code, http.StatusOK)
	}
}
