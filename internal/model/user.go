// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザー（プロフィールの所有者）を表す。
// IDが所有者IDとしてプロフィールに紐付く。
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
// IDはクライアントに渡す不透明なセッショントークンでもある。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
