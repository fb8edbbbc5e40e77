package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kalendar/internal/middleware"
	"github.com/hitoshi/kalendar/internal/model"
	"github.com/hitoshi/kalendar/internal/reminder"
)

// --- モック定義 ---

type mockAuthService struct {
	loginFn       func(ctx context.Context, username, password string) (*model.Session, *model.User, error)
	logoutFn      func(ctx context.Context, sessionID string) error
	currentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*model.Session, *model.User, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password)
	}
	return nil, nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, sessionID)
	}
	return nil, nil
}

type mockUserService struct {
	registerFn func(ctx context.Context, username, password string) (*model.User, error)
	listAllFn  func(ctx context.Context) ([]*model.User, error)
}

func (m *mockUserService) Register(ctx context.Context, username, password string) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, username, password)
	}
	return &model.User{ID: "u-1", Username: username}, nil
}

func (m *mockUserService) ListAll(ctx context.Context) ([]*model.User, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return []*model.User{}, nil
}

type mockReminderService struct {
	onDateFn  func(ctx context.Context, caller model.Caller, date time.Time) ([]*model.Reminder, error)
	forUserFn func(ctx context.Context, caller model.Caller) ([]*model.Reminder, error)
	createFn  func(ctx context.Context, caller model.Caller, input model.ReminderInput) (*model.Reminder, error)
	updateFn  func(ctx context.Context, caller model.Caller, id string, input model.ReminderInput) (*model.Reminder, error)
	deleteFn  func(ctx context.Context, caller model.Caller, id string) (reminder.DeleteOutcome, error)
}

func (m *mockReminderService) RemindersOnDate(ctx context.Context, caller model.Caller, date time.Time) ([]*model.Reminder, error) {
	if m.onDateFn != nil {
		return m.onDateFn(ctx, caller, date)
	}
	return []*model.Reminder{}, nil
}

func (m *mockReminderService) AllRemindersForUser(ctx context.Context, caller model.Caller) ([]*model.Reminder, error) {
	if m.forUserFn != nil {
		return m.forUserFn(ctx, caller)
	}
	return []*model.Reminder{}, nil
}

func (m *mockReminderService) Create(ctx context.Context, caller model.Caller, input model.ReminderInput) (*model.Reminder, error) {
	if m.createFn != nil {
		return m.createFn(ctx, caller, input)
	}
	return nil, nil
}

func (m *mockReminderService) Update(ctx context.Context, caller model.Caller, id string, input model.ReminderInput) (*model.Reminder, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, caller, id, input)
	}
	return nil, nil
}

func (m *mockReminderService) Delete(ctx context.Context, caller model.Caller, id string) (reminder.DeleteOutcome, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, caller, id)
	}
	return reminder.DeleteOutcomeDeleted, nil
}

// mockSessionFinder はID→セッションのマップで検索するSessionFinder。
type mockSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return m.sessions[id], nil
}

// --- テストヘルパー ---

var (
	alice = model.Caller{UserID: "11111111-1111-1111-1111-111111111111", Username: "alice"}
	bob   = model.Caller{UserID: "22222222-2222-2222-2222-222222222222", Username: "bob"}
)

const testReminderID = "aaaaaaaa-0000-0000-0000-000000000001"

// withCaller はテスト用にリクエストコンテキストにCallerを注入するヘルパー。
func withCaller(r *http.Request, caller model.Caller) *http.Request {
	return r.WithContext(middleware.ContextWithCaller(r.Context(), caller))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

func sampleReminder() *model.Reminder {
	tod := model.TimeOfDay{Hour: 9, Minute: 30}
	return &model.Reminder{
		ID:            testReminderID,
		Title:         "朝会",
		Description:   "週次",
		Date:          time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Time:          &tod,
		Color:         "#ff0000",
		OwnerID:       alice.UserID,
		OwnerUsername: alice.Username,
		Participants: []model.Participant{
			{UserID: alice.UserID, Username: alice.Username},
			{UserID: bob.UserID, Username: bob.Username},
		},
	}
}
