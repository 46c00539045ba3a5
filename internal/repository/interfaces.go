// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/employeeinfo/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレス（大文字小文字を区別しない）でユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが登録済みの場合はmodel.NewEmailAlreadyRegisteredErrorを返す。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ProfileRepository は従業員情報レコードの永続化インターフェース。
// 所有者ごとに高々1件であることをこの境界で保証する。
type ProfileRepository interface {
	// FindByOwner は所有者のレコードを取得する。見つからない場合はnilを返す。
	// 複数件存在した場合は先頭を返さず、model.NewProfileIntegrityErrorを返す。
	FindByOwner(ctx context.Context, ownerID string) (*model.Profile, error)

	// Create は所有者のレコードを新規作成し、採番済みのレコードを返す。
	// 既に存在する場合はmodel.NewProfileExistsErrorを返す。
	Create(ctx context.Context, ownerID string, fields model.ProfileFields) (*model.Profile, error)

	// Replace はIDと所有者が一致するレコードの全フィールドを置き換える。
	// 一致するレコードがない場合はmodel.NewProfileNotFoundErrorを返す。
	Replace(ctx context.Context, id, ownerID string, fields model.ProfileFields) error
}
