// Package auth はパスワードログインとセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/kalendar/internal/metrics"
	"github.com/hitoshi/kalendar/internal/model"
	"github.com/hitoshi/kalendar/internal/repository"
)

// ErrSessionNotFound はセッションが存在しないか期限切れであることを表す。
var ErrSessionNotFound = errors.New("auth: session not found or expired")

// UserDirectory はログインに必要なユーザーディレクトリの操作。
type UserDirectory interface {
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// EventRecorder は認証イベントの記録先。
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service はログイン・ログアウト・現在ユーザー取得を提供する。
type Service struct {
	directory   UserDirectory
	sessionRepo repository.SessionRepository
	recorder    EventRecorder
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(
	directory UserDirectory,
	sessionRepo repository.SessionRepository,
	recorder EventRecorder,
	config ServiceConfig,
) *Service {
	return &Service{
		directory:   directory,
		sessionRepo: sessionRepo,
		recorder:    recorder,
		config:      config,
		now:         time.Now,
	}
}

// Login は資格情報を照合し、新しいセッションを発行する。
// 照合に失敗した場合はユーザーの存在有無を区別しないINVALID_CREDENTIALSを返す。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, *model.User, error) {
	user, err := s.directory.Authenticate(ctx, username, password)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			s.record(metrics.AuthLogin, metrics.OutcomeFailure)
			slog.Info("login rejected", slog.String("username", username))
		}
		return nil, nil, err
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.record(metrics.AuthLogin, metrics.OutcomeSuccess)
	slog.Info("user logged in", slog.String("user_id", user.ID))
	return session, user, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.record(metrics.AuthLogout, metrics.OutcomeSuccess)
	slog.Info("user logged out")
	return nil
}

// CurrentUser はセッションから現在のユーザーを取得する。
// セッションが無効な場合はErrSessionNotFoundを返す。
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	return s.directory.FindByID(ctx, session.UserID)
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, user *model.User) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    user.ID,
		Username:  user.Username,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

func (s *Service) record(event, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordAuthEvent(event, outcome)
	}
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
