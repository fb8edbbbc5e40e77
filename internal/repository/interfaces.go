// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/kalendar/internal/model"
)

// ErrNotFound は更新・削除対象の行が存在しないことを表す。
var ErrNotFound = errors.New("repository: not found")

// ErrDuplicateUsername はusersテーブルの一意制約違反を表す。
var ErrDuplicateUsername = errors.New("repository: duplicate username")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	// ユーザー名が既に存在する場合はErrDuplicateUsernameを返す。
	Create(ctx context.Context, user *model.User) error

	// List は全ユーザーをユーザー名順で返す。
	List(ctx context.Context) ([]*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// ReminderRepository はリマインダーと参加者の永続化インターフェース。
// 参加者はreminder_participantsテーブルの辺として保持し、
// リマインダー行と参加者行の変更は常に同一トランザクションでコミットする。
type ReminderRepository interface {
	// FindByID は指定IDのリマインダーを参加者付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Reminder, error)

	// ListByDate は指定日の全リマインダーを参加者付きで返す。
	ListByDate(ctx context.Context, date time.Time) ([]*model.Reminder, error)

	// ListByDateForUser は指定日のうち、指定ユーザーが参加しているリマインダーを返す。
	ListByDateForUser(ctx context.Context, date time.Time, userID string) ([]*model.Reminder, error)

	// ListByParticipant は指定ユーザーが参加している全リマインダーを日付昇順で返す。
	ListByParticipant(ctx context.Context, userID string) ([]*model.Reminder, error)

	// CreateWithParticipants はリマインダーを作成し、usernamesに一致するユーザーを参加者として追加する。
	// 存在しないユーザー名は無視する。完了後、reminder.Participantsを永続化された内容で埋める。
	CreateWithParticipants(ctx context.Context, reminder *model.Reminder, usernames []string) error

	// UpdateWithParticipants はリマインダーの全項目を置き換え、参加者集合を作り直す。
	// 対象が存在しない場合はErrNotFoundを返す。
	UpdateWithParticipants(ctx context.Context, reminder *model.Reminder, usernames []string) error

	// DeleteByID はリマインダーと全参加者行を削除する。
	// 対象が存在しない場合はErrNotFoundを返す。
	DeleteByID(ctx context.Context, id string) error

	// RemoveParticipant は指定ユーザーの参加のみを解除する。
	// 参加していない場合はErrNotFoundを返す。
	RemoveParticipant(ctx context.Context, reminderID, userID string) error
}
