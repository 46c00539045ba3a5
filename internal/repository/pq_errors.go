package repository

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQLの一意制約違反のSQLSTATE。
const pqUniqueViolation = pq.ErrorCode("23505")

// 一意制約名。マイグレーションで定義した名前と一致させる。
const (
	constraintUsersEmail    = "users_email_key"
	constraintProfilesOwner = "profiles_owner_id_key"
)

// isUniqueViolation はerrが指定制約の一意制約違反かどうかを判定する。
// constraintが空の場合は制約名を問わない。
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
