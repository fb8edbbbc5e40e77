package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/kalendar/internal/model"
)

func TestUserHandler_Register_Success(t *testing.T) {
	var gotUser, gotPass string
	h := NewUserHandler(&mockUserService{
		registerFn: func(ctx context.Context, username, password string) (*model.User, error) {
			gotUser, gotPass = username, password
			return &model.User{ID: "u-1", Username: username}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/users/register", strings.NewReader(`{"username":"alice","password":"pw"}`))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotUser != "alice" || gotPass != "pw" {
		t.Errorf("Register called with (%q, %q)", gotUser, gotPass)
	}
	var resp statusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Status != "created" {
		t.Errorf("status = %q, want created", resp.Status)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("register must not log the user in")
	}
}

func TestUserHandler_Register_Failures(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"不正なJSON", `not json`, nil, http.StatusBadRequest, model.ErrCodeInvalidRequest},
		{"検証エラー", `{"username":"","password":"pw"}`, model.NewValidationError("ユーザー名は必須です"), http.StatusBadRequest, model.ErrCodeValidationFailed},
		{"ユーザー名重複", `{"username":"alice","password":"pw"}`, model.NewUsernameTakenError("alice"), http.StatusBadRequest, model.ErrCodeUsernameTaken},
		{"内部エラー", `{"username":"alice","password":"pw"}`, errors.New("db down"), http.StatusInternalServerError, model.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewUserHandler(&mockUserService{
				registerFn: func(ctx context.Context, username, password string) (*model.User, error) {
					return nil, tt.err
				},
			})

			w := httptest.NewRecorder()
			h.Register(w, httptest.NewRequest(http.MethodPost, "/api/users/register", strings.NewReader(tt.body)))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if body := parseAPIErrorResponse(t, w); body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestUserHandler_List(t *testing.T) {
	h := NewUserHandler(&mockUserService{
		listAllFn: func(ctx context.Context) ([]*model.User, error) {
			return []*model.User{
				{ID: alice.UserID, Username: "alice", PasswordHash: "h1"},
				{ID: bob.UserID, Username: "bob", PasswordHash: "h2"},
			}, nil
		},
	})

	w := httptest.NewRecorder()
	h.List(w, withCaller(httptest.NewRequest(http.MethodGet, "/api/users", nil), alice))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if strings.Contains(w.Body.String(), "h1") {
		t.Errorf("response leaks password hash: %s", w.Body.String())
	}
	var resp []userResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(resp) != 2 || resp[0].Username != "alice" || resp[1].Username != "bob" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestUserHandler_List_EmptyIsArray(t *testing.T) {
	h := NewUserHandler(&mockUserService{
		listAllFn: func(ctx context.Context) ([]*model.User, error) { return nil, nil },
	})

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/users", nil))

	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}
