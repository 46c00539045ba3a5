// Package security はアプリケーションのセキュリティ機能を提供する。
//
// FieldSanitizer は利用者が入力した自由記述フィールドからマークアップを除去する。
// bluemondayのStrictPolicyで全タグを落とし、エスケープされた文字実体を元に戻して
// プレーンテキストとして保存できる値にする。
package security

import (
	"html"

	"github.com/hitoshi/employeeinfo/internal/model"
	"github.com/microcosm-cc/bluemonday"
)

// FieldSanitizer は入力値のサニタイズ機能のインターフェースを定義する。
type FieldSanitizer interface {
	// SanitizeText はタグを除去したプレーンテキストを返す。
	// タグを含まない入力はそのまま返す（冪等）。
	SanitizeText(raw string) string

	// SanitizeFields はフォームの全フィールドにSanitizeTextを適用する。
	SanitizeFields(fields model.ProfileFields) model.ProfileFields
}

// fieldSanitizer はFieldSanitizerの実装。
// bluemonday.Policyは生成後の並行利用が安全。
type fieldSanitizer struct {
	policy *bluemonday.Policy
}

// NewFieldSanitizer はFieldSanitizerの新しいインスタンスを生成する。
func NewFieldSanitizer() *fieldSanitizer {
	return &fieldSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はタグを除去したプレーンテキストを返す。
func (s *fieldSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	// StrictPolicyは & や ' を文字実体にエスケープするため元に戻す
	return html.UnescapeString(s.policy.Sanitize(raw))
}

// SanitizeFields はフォームの全フィールドにSanitizeTextを適用する。
func (s *fieldSanitizer) SanitizeFields(fields model.ProfileFields) model.ProfileFields {
	return model.ProfileFields{
		Name:         s.SanitizeText(fields.Name),
		EmployeeCode: s.SanitizeText(fields.EmployeeCode),
		BirthDate:    s.SanitizeText(fields.BirthDate),
		Email:        s.SanitizeText(fields.Email),
		PhoneNumber:  s.SanitizeText(fields.PhoneNumber),
	}
}

var _ FieldSanitizer = (*fieldSanitizer)(nil)
