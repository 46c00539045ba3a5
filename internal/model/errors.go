// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string            // エラーコード
	Message  string            // エラーメッセージ
	Category string            // カテゴリ: validation, auth, store, state, system
	Action   string            // ユーザー向け対処方法
	Fields   map[string]string // フィールド単位の検証エラー（validationのみ）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ
const (
	CategoryValidation = "validation"
	CategoryAuth       = "auth"
	CategoryStore      = "store"
	CategoryState      = "state"
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeValidation             = "VALIDATION_FAILED"
	ErrCodeEmailAlreadyRegistered = "EMAIL_ALREADY_REGISTERED"
	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodeAccountNotFound        = "ACCOUNT_NOT_FOUND"
	ErrCodeUnauthenticated        = "UNAUTHENTICATED"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
	ErrCodeStoreUnavailable       = "STORE_UNAVAILABLE"
	ErrCodeStoreTimeout           = "STORE_TIMEOUT"
	ErrCodeProfileExists          = "PROFILE_ALREADY_EXISTS"
	ErrCodeProfileNotFound        = "PROFILE_NOT_FOUND"
	ErrCodeProfileIntegrity       = "PROFILE_INTEGRITY_VIOLATION"
	ErrCodeInvalidState           = "INVALID_STATE"
	ErrCodeRequestInFlight        = "REQUEST_IN_FLIGHT"
	ErrCodeNothingToRetry         = "NOTHING_TO_RETRY"
	ErrCodeUnknownField           = "UNKNOWN_FIELD"
)

// NewValidationError はフィールド単位の検証エラーを生成する。
// fieldsはフィールド名から表示用メッセージへのマップ。
func NewValidationError(fields map[string]string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  "Some fields are invalid.",
		Category: CategoryValidation,
		Action:   "Correct the highlighted fields and submit again.",
		Fields:   fields,
	}
}

// NewUnknownFieldError は存在しないフォームフィールドが指定された場合のエラーを生成する。
func NewUnknownFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownField,
		Message:  fmt.Sprintf("Unknown form field: %s", field),
		Category: CategoryValidation,
		Action:   "Use one of name, employeeCode, birthDate, email, phoneNumber.",
	}
}

// NewEmailAlreadyRegisteredError は登録済みメールアドレスでのサインアップエラーを生成する。
func NewEmailAlreadyRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailAlreadyRegistered,
		Message:  "This email address is already registered.",
		Category: CategoryAuth,
		Action:   "Sign in instead, or use a different email address.",
	}
}

// NewInvalidCredentialsError はパスワード不一致のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "The email or password is incorrect.",
		Category: CategoryAuth,
		Action:   "Check your credentials and try again.",
	}
}

// NewAccountNotFoundError は未登録アカウントでのサインインエラーを生成する。
func NewAccountNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  "No account exists for this email address.",
		Category: CategoryAuth,
		Action:   "Sign up first, then sign in.",
	}
}

// NewUnauthenticatedError は未認証リクエストのエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "Authentication is required.",
		Category: CategoryAuth,
		Action:   "Sign in and try again.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found.",
		Category: CategoryAuth,
		Action:   "Sign in again.",
	}
}

// NewStoreUnavailableError はレコードストアへの読み書きが失敗した場合のエラーを生成する。
func NewStoreUnavailableError(op string) *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  fmt.Sprintf("Could not %s the employee information.", op),
		Category: CategoryStore,
		Action:   "Your input has been kept. Retry in a moment.",
	}
}

// NewStoreTimeoutError はレコードストアの応答がタイムアウトした場合のエラーを生成する。
func NewStoreTimeoutError(op string) *APIError {
	return &APIError{
		Code:     ErrCodeStoreTimeout,
		Message:  fmt.Sprintf("Timed out while trying to %s the employee information.", op),
		Category: CategoryStore,
		Action:   "Check your connection and retry.",
	}
}

// NewProfileExistsError は所有者に既にプロフィールが存在する場合のエラーを生成する。
func NewProfileExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileExists,
		Message:  "Employee information already exists for this account.",
		Category: CategoryStore,
		Action:   "Retry to load the existing record.",
	}
}

// NewProfileNotFoundError は置換対象のプロフィールが見つからない場合のエラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "The employee information record was not found.",
		Category: CategoryStore,
		Action:   "Retry to reload your record.",
	}
}

// NewProfileIntegrityError は1人の所有者に複数のプロフィールが存在する場合のエラーを生成する。
func NewProfileIntegrityError(count int) *APIError {
	return &APIError{
		Code:     ErrCodeProfileIntegrity,
		Message:  fmt.Sprintf("Found %d employee information records for one account; expected at most one.", count),
		Category: CategoryStore,
		Action:   "Contact support.",
	}
}

// NewInvalidStateError は現在の画面状態では実行できない操作のエラーを生成する。
func NewInvalidStateError(action, state string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidState,
		Message:  fmt.Sprintf("Cannot %s while the form is %s.", action, state),
		Category: CategoryState,
		Action:   "Reload the employee information and try again.",
	}
}

// NewRequestInFlightError は前回の送信が完了していない場合のエラーを生成する。
func NewRequestInFlightError() *APIError {
	return &APIError{
		Code:     ErrCodeRequestInFlight,
		Message:  "A previous request is still in progress.",
		Category: CategoryState,
		Action:   "Wait for the current request to finish.",
	}
}

// NewNothingToRetryError は再試行する失敗操作がない場合のエラーを生成する。
func NewNothingToRetryError() *APIError {
	return &APIError{
		Code:     ErrCodeNothingToRetry,
		Message:  "There is no failed request to retry.",
		Category: CategoryState,
		Action:   "No action needed.",
	}
}
