package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/kalendar/internal/model"
	"github.com/lib/pq"
)

// reminderSelect はリマインダー取得の共通SELECT句。作成者のユーザー名をJOINで取得する。
const reminderSelect = `SELECT r.id, r.title, r.description, r.reminder_date, r.reminder_time,
       r.is_all_day, r.color, r.owner_id, o.username, r.created_at, r.updated_at
  FROM reminders r
  JOIN users o ON o.id = r.owner_id`

// reminderOrder は一覧の並び順。日付昇順、同日内は終日を先に、次に時刻順。
const reminderOrder = ` ORDER BY r.reminder_date ASC, r.is_all_day DESC, r.reminder_time ASC NULLS FIRST, r.title ASC`

// queryer は*sql.DBと*sql.Txの共通部分。
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// PostgresReminderRepo はPostgreSQLを使用したリマインダーリポジトリ。
type PostgresReminderRepo struct {
	db *sql.DB
}

// NewPostgresReminderRepo はPostgresReminderRepoを生成する。
func NewPostgresReminderRepo(db *sql.DB) *PostgresReminderRepo {
	return &PostgresReminderRepo{db: db}
}

// FindByID は指定IDのリマインダーを参加者付きで取得する。見つからない場合はnilを返す。
func (r *PostgresReminderRepo) FindByID(ctx context.Context, id string) (*model.Reminder, error) {
	reminders, err := r.query(ctx, r.db, reminderSelect+` WHERE r.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find reminder: %w", err)
	}
	if len(reminders) == 0 {
		return nil, nil
	}
	return reminders[0], nil
}

// ListByDate は指定日の全リマインダーを参加者付きで返す。
func (r *PostgresReminderRepo) ListByDate(ctx context.Context, date time.Time) ([]*model.Reminder, error) {
	reminders, err := r.query(ctx, r.db,
		reminderSelect+` WHERE r.reminder_date = $1`+reminderOrder,
		date.Format(model.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders by date: %w", err)
	}
	return reminders, nil
}

// ListByDateForUser は指定日のうち、指定ユーザーが参加しているリマインダーを返す。
func (r *PostgresReminderRepo) ListByDateForUser(ctx context.Context, date time.Time, userID string) ([]*model.Reminder, error) {
	reminders, err := r.query(ctx, r.db,
		reminderSelect+` WHERE r.reminder_date = $1
		   AND EXISTS (SELECT 1 FROM reminder_participants p WHERE p.reminder_id = r.id AND p.user_id = $2)`+reminderOrder,
		date.Format(model.DateLayout), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list user reminders by date: %w", err)
	}
	return reminders, nil
}

// ListByParticipant は指定ユーザーが参加している全リマインダーを日付昇順で返す。
func (r *PostgresReminderRepo) ListByParticipant(ctx context.Context, userID string) ([]*model.Reminder, error) {
	reminders, err := r.query(ctx, r.db,
		reminderSelect+` WHERE EXISTS (SELECT 1 FROM reminder_participants p WHERE p.reminder_id = r.id AND p.user_id = $1)`+reminderOrder,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders by participant: %w", err)
	}
	return reminders, nil
}

// CreateWithParticipants はリマインダー行と参加者行を同一トランザクションで作成する。
func (r *PostgresReminderRepo) CreateWithParticipants(ctx context.Context, reminder *model.Reminder, usernames []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reminders (id, title, description, reminder_date, reminder_time, is_all_day, color, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		reminder.ID, reminder.Title, reminder.Description, reminder.Date.Format(model.DateLayout),
		timeOfDayParam(reminder.Time), reminder.AllDay, reminder.Color, reminder.OwnerID,
		reminder.CreatedAt, reminder.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}

	if err := insertParticipants(ctx, tx, reminder.ID, usernames); err != nil {
		return err
	}

	participants, err := loadParticipants(ctx, tx, []string{reminder.ID})
	if err != nil {
		return err
	}
	reminder.Participants = participants[reminder.ID]

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateWithParticipants はリマインダーの全項目を置き換え、参加者行を全削除してから再作成する。
// 差分更新は行わない。作成者（owner_id）は変更しない。
func (r *PostgresReminderRepo) UpdateWithParticipants(ctx context.Context, reminder *model.Reminder, usernames []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE reminders
		    SET title = $2, description = $3, reminder_date = $4, reminder_time = $5,
		        is_all_day = $6, color = $7, updated_at = $8
		  WHERE id = $1`,
		reminder.ID, reminder.Title, reminder.Description, reminder.Date.Format(model.DateLayout),
		timeOfDayParam(reminder.Time), reminder.AllDay, reminder.Color, reminder.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM reminder_participants WHERE reminder_id = $1`,
		reminder.ID,
	); err != nil {
		return fmt.Errorf("failed to reset participants: %w", err)
	}

	if err := insertParticipants(ctx, tx, reminder.ID, usernames); err != nil {
		return err
	}

	participants, err := loadParticipants(ctx, tx, []string{reminder.ID})
	if err != nil {
		return err
	}
	reminder.Participants = participants[reminder.ID]

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteByID は参加者行とリマインダー行を同一トランザクションで削除する。
func (r *PostgresReminderRepo) DeleteByID(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM reminder_participants WHERE reminder_id = $1`,
		id,
	); err != nil {
		return fmt.Errorf("failed to delete participants: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RemoveParticipant は指定ユーザーの参加行のみを削除する。
func (r *PostgresReminderRepo) RemoveParticipant(ctx context.Context, reminderID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM reminder_participants WHERE reminder_id = $1 AND user_id = $2`,
		reminderID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// query はリマインダー行を取得し、参加者をまとめて読み込む。
func (r *PostgresReminderRepo) query(ctx context.Context, q queryer, query string, args ...interface{}) ([]*model.Reminder, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*model.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminder rows: %w", err)
	}
	if len(reminders) == 0 {
		return reminders, nil
	}

	ids := make([]string, len(reminders))
	for i, reminder := range reminders {
		ids[i] = reminder.ID
	}
	participants, err := loadParticipants(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for _, reminder := range reminders {
		reminder.Participants = participants[reminder.ID]
	}

	return reminders, nil
}

// scanReminder は1行分のリマインダーを読み取る。
func scanReminder(rows *sql.Rows) (*model.Reminder, error) {
	reminder := &model.Reminder{}
	var reminderTime sql.NullTime
	var date time.Time

	if err := rows.Scan(
		&reminder.ID, &reminder.Title, &reminder.Description, &date, &reminderTime,
		&reminder.AllDay, &reminder.Color, &reminder.OwnerID, &reminder.OwnerUsername,
		&reminder.CreatedAt, &reminder.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan reminder row: %w", err)
	}

	reminder.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	// lib/pqはTIME列を0000-01-01の時刻としてtime.Timeで返す
	if reminderTime.Valid {
		t := reminderTime.Time
		reminder.Time = &model.TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
	}

	return reminder, nil
}

// insertParticipants はusernamesに一致するユーザーを参加者として追加する。
// 一致しないユーザー名はSELECT結果に現れないため、黙って無視される。
func insertParticipants(ctx context.Context, tx *sql.Tx, reminderID string, usernames []string) error {
	if len(usernames) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO reminder_participants (reminder_id, user_id)
		 SELECT $1::uuid, u.id FROM users u WHERE u.username = ANY($2)
		 ON CONFLICT DO NOTHING`,
		reminderID, pq.Array(usernames),
	)
	if err != nil {
		return fmt.Errorf("failed to insert participants: %w", err)
	}
	return nil
}

// loadParticipants は複数リマインダーの参加者をユーザー名順で取得する。
func loadParticipants(ctx context.Context, q queryer, reminderIDs []string) (map[string][]model.Participant, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT rp.reminder_id, u.id, u.username
		   FROM reminder_participants rp
		   JOIN users u ON u.id = rp.user_id
		  WHERE rp.reminder_id = ANY($1::uuid[])
		  ORDER BY u.username ASC`,
		pq.Array(reminderIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]model.Participant, len(reminderIDs))
	for rows.Next() {
		var reminderID string
		var p model.Participant
		if err := rows.Scan(&reminderID, &p.UserID, &p.Username); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		result[reminderID] = append(result[reminderID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participant rows: %w", err)
	}
	return result, nil
}

// timeOfDayParam は時刻をTIME列用のパラメータに変換する。nilはNULLになる。
func timeOfDayParam(t *model.TimeOfDay) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.String(), Valid: true}
}

// compile-time interface check
var _ ReminderRepository = (*PostgresReminderRepo)(nil)
