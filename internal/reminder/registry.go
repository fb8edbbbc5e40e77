// Package reminder はリマインダーの作成・更新・削除・一覧のドメインロジックを提供する。
//
// リマインダーには作成者（owner）がいる。作成者は常に参加者に含まれ、
// 更新できるのは作成者のみ。作成者以外の参加者による削除は自分の参加解除として扱う。
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/kalendar/internal/metrics"
	"github.com/hitoshi/kalendar/internal/model"
	"github.com/hitoshi/kalendar/internal/repository"
	"github.com/hitoshi/kalendar/internal/security"
)

// DateScope は日付指定の一覧で返すリマインダーの範囲。
type DateScope string

const (
	// ScopeAll は指定日の全ユーザーのリマインダーを返す。
	ScopeAll DateScope = "all"
	// ScopeParticipant は呼び出し元が参加しているリマインダーのみを返す。
	ScopeParticipant DateScope = "participant"
)

// DeleteOutcome は削除操作の結果。
type DeleteOutcome string

const (
	// DeleteOutcomeDeleted はリマインダー自体が削除されたことを表す。
	DeleteOutcomeDeleted DeleteOutcome = "deleted"
	// DeleteOutcomeLeft は呼び出し元の参加のみが解除されたことを表す。
	DeleteOutcomeLeft DeleteOutcome = "left"
)

// OpRecorder はリマインダー操作の記録先。
type OpRecorder interface {
	RecordReminderOp(op string)
}

// Config はRegistryの設定。
type Config struct {
	DateScope DateScope
}

// Registry はリマインダー操作のサービス層。
// 全ての操作は呼び出し元（model.Caller）を明示的に受け取る。
type Registry struct {
	repo      repository.ReminderRepository
	sanitizer security.TextSanitizer
	recorder  OpRecorder
	config    Config
	now       func() time.Time
}

// NewRegistry はRegistryを生成する。recorderはnilでもよい。
func NewRegistry(
	repo repository.ReminderRepository,
	sanitizer security.TextSanitizer,
	recorder OpRecorder,
	config Config,
) *Registry {
	if config.DateScope == "" {
		config.DateScope = ScopeAll
	}
	return &Registry{
		repo:      repo,
		sanitizer: sanitizer,
		recorder:  recorder,
		config:    config,
		now:       time.Now,
	}
}

// RemindersOnDate は指定日のリマインダーを返す。
// 終日を先に、次に時刻の昇順、同時刻はタイトル順。
func (r *Registry) RemindersOnDate(ctx context.Context, caller model.Caller, date time.Time) ([]*model.Reminder, error) {
	var (
		reminders []*model.Reminder
		err       error
	)
	if r.config.DateScope == ScopeParticipant {
		reminders, err = r.repo.ListByDateForUser(ctx, date, caller.UserID)
	} else {
		reminders, err = r.repo.ListByDate(ctx, date)
	}
	if err != nil {
		return nil, fmt.Errorf("リマインダー一覧の取得に失敗しました: %w", err)
	}
	return nonNil(reminders), nil
}

// AllRemindersForUser は呼び出し元が参加している全リマインダーを日付昇順で返す。
// 自分が作成したものと招待されたものの両方を含む。
func (r *Registry) AllRemindersForUser(ctx context.Context, caller model.Caller) ([]*model.Reminder, error) {
	reminders, err := r.repo.ListByParticipant(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("リマインダー一覧の取得に失敗しました: %w", err)
	}
	return nonNil(reminders), nil
}

// Create はリマインダーを作成する。作成者は呼び出し元で、参加者に必ず含まれる。
// 存在しないユーザー名は無視する。
func (r *Registry) Create(ctx context.Context, caller model.Caller, input model.ReminderInput) (*model.Reminder, error) {
	in, err := normalizeInput(input, caller.Username, r.sanitizer)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	reminder := &model.Reminder{
		ID:            uuid.New().String(),
		Title:         in.Title,
		Description:   in.Description,
		Date:          in.Date,
		Time:          in.Time,
		AllDay:        in.AllDay,
		Color:         in.Color,
		OwnerID:       caller.UserID,
		OwnerUsername: caller.Username,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := r.repo.CreateWithParticipants(ctx, reminder, in.Usernames); err != nil {
		return nil, fmt.Errorf("リマインダーの作成に失敗しました: %w", err)
	}

	r.record(metrics.OpCreate)
	slog.Info("reminder created",
		slog.String("reminder_id", reminder.ID),
		slog.String("user_id", caller.UserID),
		slog.Int("participants", len(reminder.Participants)),
	)
	return reminder, nil
}

// Update はリマインダーの全項目と参加者集合を置き換える。
// 存在しない場合はREMINDER_NOT_FOUND、作成者以外の場合はFORBIDDENを返し、何も変更しない。
func (r *Registry) Update(ctx context.Context, caller model.Caller, id string, input model.ReminderInput) (*model.Reminder, error) {
	existing, err := r.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("リマインダーの取得に失敗しました: %w", err)
	}
	if existing == nil {
		return nil, model.NewReminderNotFoundError(id)
	}
	if !existing.IsOwnedBy(caller.UserID) {
		return nil, model.NewForbiddenError()
	}

	in, err := normalizeInput(input, existing.OwnerUsername, r.sanitizer)
	if err != nil {
		return nil, err
	}

	reminder := &model.Reminder{
		ID:            existing.ID,
		Title:         in.Title,
		Description:   in.Description,
		Date:          in.Date,
		Time:          in.Time,
		AllDay:        in.AllDay,
		Color:         in.Color,
		OwnerID:       existing.OwnerID,
		OwnerUsername: existing.OwnerUsername,
		CreatedAt:     existing.CreatedAt,
		UpdatedAt:     r.now().UTC(),
	}

	if err := r.repo.UpdateWithParticipants(ctx, reminder, in.Usernames); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewReminderNotFoundError(id)
		}
		return nil, fmt.Errorf("リマインダーの更新に失敗しました: %w", err)
	}

	r.record(metrics.OpUpdate)
	slog.Info("reminder updated",
		slog.String("reminder_id", reminder.ID),
		slog.String("user_id", caller.UserID),
		slog.Int("participants", len(reminder.Participants)),
	)
	return reminder, nil
}

// Delete は作成者による削除ではリマインダーを全員から削除し、
// それ以外の参加者による削除では呼び出し元の参加のみを解除する。
// 参加していないユーザーはNOT_PARTICIPANTになる。
func (r *Registry) Delete(ctx context.Context, caller model.Caller, id string) (DeleteOutcome, error) {
	existing, err := r.repo.FindByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("リマインダーの取得に失敗しました: %w", err)
	}
	if existing == nil {
		return "", model.NewReminderNotFoundError(id)
	}

	switch {
	case existing.IsOwnedBy(caller.UserID):
		if err := r.repo.DeleteByID(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return "", model.NewReminderNotFoundError(id)
			}
			return "", fmt.Errorf("リマインダーの削除に失敗しました: %w", err)
		}
		r.record(metrics.OpDelete)
		slog.Info("reminder deleted",
			slog.String("reminder_id", id),
			slog.String("user_id", caller.UserID),
		)
		return DeleteOutcomeDeleted, nil

	case existing.HasParticipant(caller.UserID):
		if err := r.repo.RemoveParticipant(ctx, id, caller.UserID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return "", model.NewNotParticipantError()
			}
			return "", fmt.Errorf("参加の解除に失敗しました: %w", err)
		}
		r.record(metrics.OpLeave)
		slog.Info("participant left reminder",
			slog.String("reminder_id", id),
			slog.String("user_id", caller.UserID),
		)
		return DeleteOutcomeLeft, nil

	default:
		return "", model.NewNotParticipantError()
	}
}

func (r *Registry) record(op string) {
	if r.recorder != nil {
		r.recorder.RecordReminderOp(op)
	}
}

func nonNil(reminders []*model.Reminder) []*model.Reminder {
	if reminders == nil {
		return []*model.Reminder{}
	}
	return reminders
}
