// Package validation はフォーム入力の検証ルールを提供する。
//
// すべてのルールは純粋関数であり、ネットワークやストアにはアクセスしない。
// 検証結果はフィールド名から表示用メッセージへのマップで表現し、
// マップにキーが存在しないフィールドは妥当とみなす。
package validation

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/employeeinfo/internal/model"
)

const (
	// MinimumAge は従業員情報を登録できる最低年齢。
	MinimumAge = 18
	// MinPasswordLength はパスワードの最小文字数。
	MinPasswordLength = 8
	// MaxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
	MaxPasswordBytes = 72
	// MinSignUpNameLength はサインアップ時の氏名の最小文字数。
	MinSignUpNameLength = 2
)

// サインアップ・サインインフォームのフィールド名。
const (
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
)

var (
	birthDateRX = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	phoneRX     = regexp.MustCompile(`^[0-9]{10}$`)
	// EmailRX はWHATWG準拠のメールアドレス構文。
	EmailRX = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")
)

// Errors はフィールド名から検証エラーメッセージへのマップ。
type Errors map[string]string

// Valid はエラーが1件もない場合にtrueを返す。
func (e Errors) Valid() bool {
	return len(e) == 0
}

// check はmsgが空でない場合にfieldのエラーとして記録する。
func (e Errors) check(field, msg string) {
	if msg != "" {
		e[field] = msg
	}
}

// SignUpInput はサインアップフォームの入力値。
type SignUpInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// SignInInput はサインインフォームの入力値。
type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validator は検証ルールセット。
// 年齢判定の基準日を差し替えられるよう現在時刻の取得関数を保持する。
type Validator struct {
	Now func() time.Time
}

// New は現在時刻を基準日とするValidatorを生成する。
func New() *Validator {
	return &Validator{Now: time.Now}
}

func (v *Validator) now() time.Time {
	if v == nil || v.Now == nil {
		return time.Now()
	}
	return v.Now()
}

// ValidateProfile は従業員情報フォーム全体を検証する。
func (v *Validator) ValidateProfile(f model.ProfileFields) Errors {
	errs := Errors{}
	for _, name := range model.ProfileFieldNames {
		errs.check(name, v.profileFieldError(name, f))
	}
	return errs
}

// ValidateField は従業員情報フォームの1フィールドのみを再検証する。
// 入力のたびに呼ばれることを想定している。妥当な場合は空文字列を返す。
func (v *Validator) ValidateField(name string, f model.ProfileFields) string {
	return v.profileFieldError(name, f)
}

func (v *Validator) profileFieldError(name string, f model.ProfileFields) string {
	switch name {
	case model.FieldName:
		return requiredError(f.Name, "Name is required")
	case model.FieldEmployeeCode:
		return requiredError(f.EmployeeCode, "Employee ID is required")
	case model.FieldBirthDate:
		return v.birthDateError(f.BirthDate)
	case model.FieldEmail:
		return emailError(f.Email, "Invalid email")
	case model.FieldPhoneNumber:
		return phoneError(f.PhoneNumber)
	default:
		return ""
	}
}

// ValidateSignUp はサインアップフォームを検証する。
// メールアドレスは前後の空白を除いて検証する（認証サービスも同じく除去して扱う）。
func (v *Validator) ValidateSignUp(in SignUpInput) Errors {
	errs := Errors{}

	if msg := requiredError(in.Name, "Name is required"); msg != "" {
		errs.check(model.FieldName, msg)
	} else if utf8.RuneCountInString(strings.TrimSpace(in.Name)) < MinSignUpNameLength {
		errs.check(model.FieldName, "Name must be at least 2 characters")
	}

	errs.check(model.FieldEmail, emailError(strings.TrimSpace(in.Email), "Invalid email format"))
	errs.check(FieldPassword, passwordError(in.Password))

	switch {
	case in.ConfirmPassword == "":
		errs.check(FieldConfirmPassword, "Confirm Password is required")
	case in.ConfirmPassword != in.Password:
		errs.check(FieldConfirmPassword, "Passwords must match")
	}

	return errs
}

// ValidateSignIn はサインインフォームを検証する。
func (v *Validator) ValidateSignIn(in SignInInput) Errors {
	errs := Errors{}
	errs.check(model.FieldEmail, emailError(strings.TrimSpace(in.Email), "Invalid email format"))
	errs.check(FieldPassword, passwordError(in.Password))
	return errs
}

// birthDateError は生年月日を検証する。
// 形式（YYYY-MM-DD）、暦上の実在性（ISO表現への往復一致）、
// 基準日からMinimumAge年前の同月同日以前であることを順に確認する。
func (v *Validator) birthDateError(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Birthdate is required"
	}
	if !birthDateRX.MatchString(s) {
		return "Birthdate must be in format YYYY-MM-DD"
	}

	d, err := time.Parse(model.BirthDateLayout, s)
	// 西暦0年はPostgreSQLのDATEで表現できない
	if err != nil || d.Format(model.BirthDateLayout) != s || d.Year() < 1 {
		return "Birthdate is not a valid date"
	}

	now := v.now()
	limit := time.Date(now.Year()-MinimumAge, now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if d.After(limit) {
		return "You must be at least 18 years"
	}
	return ""
}

func requiredError(s, msg string) string {
	if strings.TrimSpace(s) == "" {
		return msg
	}
	return ""
}

// emailError はメールアドレスを検証する。
// カンマを含むアドレスは構文上の判定より先に拒否する（宛先インジェクション対策）。
func emailError(s, invalidMsg string) string {
	if strings.TrimSpace(s) == "" {
		return "Email is required"
	}
	if strings.Contains(s, ",") {
		return "Email must not contain a comma"
	}
	if !EmailRX.MatchString(s) {
		return invalidMsg
	}
	return ""
}

func phoneError(s string) string {
	if s == "" {
		return "Phone is required"
	}
	if !phoneRX.MatchString(s) {
		return "Phone must be 10 digits"
	}
	return ""
}

func passwordError(s string) string {
	switch {
	case s == "":
		return "Password is required"
	case utf8.RuneCountInString(s) < MinPasswordLength:
		return "Password must be at least 8 characters"
	case len(s) > MaxPasswordBytes:
		return "Password must be at most 72 bytes"
	default:
		return ""
	}
}
