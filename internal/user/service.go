// Package user はユーザーディレクトリ（登録・認証・一覧）のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hitoshi/kalendar/internal/metrics"
	"github.com/hitoshi/kalendar/internal/model"
	"github.com/hitoshi/kalendar/internal/repository"
	"github.com/hitoshi/kalendar/internal/security"
)

// passwordMaxBytes はbcryptが受け付けるパスワードの最大バイト数。
const passwordMaxBytes = 72

// PasswordHasher はパスワードのハッシュ化と照合のインターフェース。
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Verify は一致しない場合にsecurity.ErrPasswordMismatchを返す。
	Verify(hash, plain string) error
}

// EventRecorder は認証イベントの記録先。
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

// Directory はユーザーの登録・認証・一覧を提供するサービス層。
type Directory struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	recorder EventRecorder

	dummyOnce sync.Once
	dummyHash string
}

// NewDirectory はDirectoryの新しいインスタンスを生成する。recorderはnilでもよい。
func NewDirectory(userRepo repository.UserRepository, hasher PasswordHasher, recorder EventRecorder) *Directory {
	return &Directory{
		userRepo: userRepo,
		hasher:   hasher,
		recorder: recorder,
	}
}

// Register はユーザーを登録する。
// ユーザー名は前後の空白を除去した上で1〜50文字、パスワードは1〜72バイト。
// 既に使われているユーザー名の場合はUSERNAME_TAKENを返す。
func (d *Directory) Register(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		d.record(metrics.AuthRegister, metrics.OutcomeFailure)
		return nil, err
	}

	existing, err := d.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		d.record(metrics.AuthRegister, metrics.OutcomeFailure)
		return nil, model.NewUsernameTakenError(username)
	}

	hash, err := d.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := d.userRepo.Create(ctx, user); err != nil {
		// 事前確認と挿入の間に同名ユーザーが登録された場合
		if errors.Is(err, repository.ErrDuplicateUsername) {
			d.record(metrics.AuthRegister, metrics.OutcomeFailure)
			return nil, model.NewUsernameTakenError(username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	d.record(metrics.AuthRegister, metrics.OutcomeSuccess)
	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Authenticate はユーザー名とパスワードを照合し、一致したユーザーを返す。
// ユーザーが存在しない場合とパスワードが誤っている場合は同じエラーを返す。
// 存在しないユーザーでもダミーハッシュとの照合を行い、処理時間を揃える。
func (d *Directory) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)

	user, err := d.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		if hash := d.dummyPasswordHash(); hash != "" {
			_ = d.hasher.Verify(hash, password)
		}
		return nil, model.NewInvalidCredentialsError()
	}

	if err := d.hasher.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}

	return user, nil
}

// ListAll は全ユーザーをユーザー名順で返す。
func (d *Directory) ListAll(ctx context.Context) ([]*model.User, error) {
	users, err := d.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []*model.User{}
	}
	return users, nil
}

// FindByID は指定IDのユーザーを返す。見つからない場合はUSER_NOT_FOUNDを返す。
func (d *Directory) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := d.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// dummyPasswordHash は照合時間を揃えるためのハッシュを初回呼び出し時に生成する。
func (d *Directory) dummyPasswordHash() string {
	d.dummyOnce.Do(func() {
		hash, err := d.hasher.Hash(uuid.New().String())
		if err != nil {
			slog.Warn("failed to prepare dummy password hash", slog.String("error", err.Error()))
			return
		}
		d.dummyHash = hash
	})
	return d.dummyHash
}

func (d *Directory) record(event, outcome string) {
	if d.recorder != nil {
		d.recorder.RecordAuthEvent(event, outcome)
	}
}

func validateCredentials(username, password string) error {
	if username == "" {
		return model.NewValidationError("ユーザー名は必須です")
	}
	if utf8.RuneCountInString(username) > model.UsernameMaxLength {
		return model.NewValidationError(fmt.Sprintf("ユーザー名は%d文字以内で入力してください", model.UsernameMaxLength))
	}
	if password == "" {
		return model.NewValidationError("パスワードは必須です")
	}
	if len(password) > passwordMaxBytes {
		return model.NewValidationError(fmt.Sprintf("パスワードは%dバイト以内で入力してください", passwordMaxBytes))
	}
	return nil
}
