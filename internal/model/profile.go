// Package model はドメインモデルを定義する。
package model

import "time"

// BirthDateLayout は生年月日のISO形式（YYYY-MM-DD）。
const BirthDateLayout = "2006-01-02"

// ProfileFields はユーザーが入力する従業員情報のフィールド。
// ID・所有者・タイムスタンプを含まない「IDなしのレコード」を表す。
type ProfileFields struct {
	Name         string `json:"name"`
	EmployeeCode string `json:"employeeCode"`
	BirthDate    string `json:"birthDate"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
}

// Profile は所有者ごとに1件だけ存在する従業員情報レコードを表す。
type Profile struct {
	ID      string
	OwnerID string
	ProfileFields
	CreatedAt time.Time
	UpdatedAt time.Time
}

// プロフィールのフィールド名。検証エラーのキーとしても使用する。
const (
	FieldName         = "name"
	FieldEmployeeCode = "employeeCode"
	FieldBirthDate    = "birthDate"
	FieldEmail        = "email"
	FieldPhoneNumber  = "phoneNumber"
)

// ProfileFieldNames はフォームの表示順に並べたフィールド名の一覧。
var ProfileFieldNames = []string{
	FieldName,
	FieldEmployeeCode,
	FieldBirthDate,
	FieldEmail,
	FieldPhoneNumber,
}

// Get は指定フィールドの値を返す。未知のフィールドの場合はfalseを返す。
func (f ProfileFields) Get(name string) (string, bool) {
	switch name {
	case FieldName:
		return f.Name, true
	case FieldEmployeeCode:
		return f.EmployeeCode, true
	case FieldBirthDate:
		return f.BirthDate, true
	case FieldEmail:
		return f.Email, true
	case FieldPhoneNumber:
		return f.PhoneNumber, true
	default:
		return "", false
	}
}

// Set は指定フィールドに値を設定する。未知のフィールドの場合はfalseを返す。
func (f *ProfileFields) Set(name, value string) bool {
	switch name {
	case FieldName:
		f.Name = value
	case FieldEmployeeCode:
		f.EmployeeCode = value
	case FieldBirthDate:
		f.BirthDate = value
	case FieldEmail:
		f.Email = value
	case FieldPhoneNumber:
		f.PhoneNumber = value
	default:
		return false
	}
	return true
}
