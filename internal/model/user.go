// Package model はドメインモデルを定義する。
package model

import "time"

// UsernameMaxLength はユーザー名の最大文字数。
const UsernameMaxLength = 50

// User はカレンダーを利用するユーザーを表す。
// PasswordHashはAPIレスポンスに含めてはならない。
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
// Usernameはセッション検索時にusersテーブルからJOINして埋める。
type Session struct {
	ID        string
	UserID    string
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Caller はリクエストを発行した認証済みユーザーを表す。
// セッションミドルウェアが解決し、リマインダー操作に明示的に渡される。
type Caller struct {
	UserID   string
	Username string
}
