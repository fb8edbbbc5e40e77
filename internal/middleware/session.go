package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/kalendar/internal/model"
)

// SessionCookieName はセッションIDを保持するCookie名。
const SessionCookieName = "session_id"

// contextKey はコンテキストキーの型。
type contextKey string

const callerContextKey contextKey = "caller"

// ErrNoCaller はコンテキストに認証済みユーザーが存在しない場合のエラー。
var ErrNoCaller = errors.New("caller not found in context")

// SessionFinder はセッションの検索に必要なインターフェース。
// 期限切れまたは存在しないセッションにはnil, nilを返す。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// NewSessionMiddleware はセッションCookieを検証し、
// 有効な場合はCallerをコンテキストに注入するミドルウェアを返す。
// 無効な場合は統一フォーマットの401を返す。
func NewSessionMiddleware(finder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			session, err := finder.FindByID(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("session lookup failed", slog.String("error", err.Error()))
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			if session == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			caller := model.Caller{UserID: session.UserID, Username: session.Username}
			annotateRequest(r.Context(), caller.UserID)
			next.ServeHTTP(w, r.WithContext(ContextWithCaller(r.Context(), caller)))
		})
	}
}

// ContextWithCaller はCallerを設定したコンテキストを返す。
func ContextWithCaller(ctx context.Context, caller model.Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// CallerFromContext はコンテキストから認証済みユーザーを取得する。
func CallerFromContext(ctx context.Context) (model.Caller, error) {
	caller, ok := ctx.Value(callerContextKey).(model.Caller)
	if !ok || caller.UserID == "" {
		return model.Caller{}, ErrNoCaller
	}
	return caller, nil
}

// UserIDFromContext はコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	caller, err := CallerFromContext(ctx)
	if err != nil {
		return "", err
	}
	return caller.UserID, nil
}
