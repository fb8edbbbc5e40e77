package model

import (
	"fmt"
	"time"
)

// DateLayout はリマインダー日付の入出力フォーマット。
const DateLayout = "2006-01-02"

// リマインダー項目の長さ制限。
const (
	TitleMaxLength       = 255
	DescriptionMaxLength = 255
)

// Reminder はカレンダー上のリマインダー（予定）を表す。
// Participantsは作成者（Owner）を必ず含む。
type Reminder struct {
	ID            string
	Title         string
	Description   string
	Date          time.Time  // 日付のみ（UTCの0時）
	Time          *TimeOfDay // 終日の場合はnil
	AllDay        bool
	Color         string
	OwnerID       string
	OwnerUsername string
	Participants  []Participant
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Participant はリマインダーの参加者を表す。
// ユーザーとリマインダーの多対多関係の一辺で、追加属性を持たない。
type Participant struct {
	UserID   string
	Username string
}

// ReminderInput はリマインダー作成・更新時の入力値。
// Usernamesは招待するユーザー名の一覧で、存在しないユーザー名は無視される。
type ReminderInput struct {
	Title       string
	Description string
	Date        time.Time
	Time        *TimeOfDay
	AllDay      bool
	Usernames   []string
	Color       string
}

// IsOwnedBy は指定ユーザーがリマインダーの作成者かどうかを判定する。
func (r *Reminder) IsOwnedBy(userID string) bool {
	return r.OwnerID == userID
}

// HasParticipant は指定ユーザーが参加者に含まれるかどうかを判定する。
func (r *Reminder) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// TimeOfDay は日付を持たない時刻を表す。
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// String はHH:MM:SS形式の文字列を返す。PostgreSQLのTIME型にそのまま渡せる。
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// ParseDate はYYYY-MM-DD形式の日付を解析する。
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// ParseTimeOfDay はHH:MMまたはHH:MM:SS形式の時刻を解析する。
// 小数秒は切り捨てる。
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
}
