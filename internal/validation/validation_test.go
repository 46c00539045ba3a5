package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/employeeinfo/internal/model"
)

// fixedValidator は基準日を2026-10-17に固定したValidatorを返す。
func fixedValidator() *Validator {
	return &Validator{Now: func() time.Time {
		return time.Date(2026, time.October, 17, 15, 30, 0, 0, time.UTC)
	}}
}

func validFields() model.ProfileFields {
	return model.ProfileFields{
		Name:         "Jane Doe",
		EmployeeCode: "E-1024",
		BirthDate:    "1990-04-12",
		Email:        "jane@example.com",
		PhoneNumber:  "0123456789",
	}
}

func TestValidateProfile_ValidFields_NoErrors(t *testing.T) {
	errs := fixedValidator().ValidateProfile(validFields())
	assert.True(t, errs.Valid(), "unexpected errors: %v", errs)
}

func TestValidateProfile_EmptyForm_AllFieldsRequired(t *testing.T) {
	errs := fixedValidator().ValidateProfile(model.ProfileFields{})

	assert.Equal(t, Errors{
		model.FieldName:         "Name is required",
		model.FieldEmployeeCode: "Employee ID is required",
		model.FieldBirthDate:    "Birthdate is required",
		model.FieldEmail:        "Email is required",
		model.FieldPhoneNumber:  "Phone is required",
	}, errs)
}

func TestValidateProfile_WhitespaceOnlyIsMissing(t *testing.T) {
	f := validFields()
	f.Name = "   "
	f.EmployeeCode = "\t"

	errs := fixedValidator().ValidateProfile(f)
	assert.Contains(t, errs, model.FieldName)
	assert.Contains(t, errs, model.FieldEmployeeCode)
}

func TestValidateProfile_AgeBoundary(t *testing.T) {
	v := fixedValidator()

	tests := []struct {
		name      string
		birthDate string
		wantErr   bool
	}{
		{"exactly 18 years before today", "2008-10-17", false},
		{"18 years minus one day", "2008-10-18", true},
		{"well over 18", "1970-01-01", false},
		{"born today", "2026-10-17", true},
		{"future date", "2030-01-01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFields()
			f.BirthDate = tt.birthDate
			msg := v.ValidateField(model.FieldBirthDate, f)
			if tt.wantErr {
				assert.Equal(t, "You must be at least 18 years", msg)
			} else {
				assert.Empty(t, msg)
			}
		})
	}
}

func TestValidateProfile_AgeBoundary_LeapDay(t *testing.T) {
	// 2028-02-29を基準日とすると18年前の同月同日は2010-02-29となり、
	// 暦上は2010-03-01に正規化される。
	v := &Validator{Now: func() time.Time {
		return time.Date(2028, time.February, 29, 9, 0, 0, 0, time.UTC)
	}}

	f := validFields()
	f.BirthDate = "2010-03-01"
	assert.Empty(t, v.ValidateField(model.FieldBirthDate, f))

	f.BirthDate = "2010-03-02"
	assert.NotEmpty(t, v.ValidateField(model.FieldBirthDate, f))
}

func TestValidateProfile_MalformedDates(t *testing.T) {
	v := fixedValidator()

	tests := []struct {
		value string
		want  string
	}{
		{"2021-13-40", "Birthdate is not a valid date"},
		{"2021-02-30", "Birthdate is not a valid date"},
		{"2021-00-10", "Birthdate is not a valid date"},
		{"2019-02-29", "Birthdate is not a valid date"},
		{"0000-01-01", "Birthdate is not a valid date"},
		{"1990/04/12", "Birthdate must be in format YYYY-MM-DD"},
		{"90-04-12", "Birthdate must be in format YYYY-MM-DD"},
		{"1990-4-12", "Birthdate must be in format YYYY-MM-DD"},
		{"1990-04-12T00:00:00Z", "Birthdate must be in format YYYY-MM-DD"},
		{"abcd-ef-gh", "Birthdate must be in format YYYY-MM-DD"},
		{"１９９０-04-12", "Birthdate must be in format YYYY-MM-DD"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			f := validFields()
			f.BirthDate = tt.value
			require.NotPanics(t, func() {
				assert.Equal(t, tt.want, v.ValidateField(model.FieldBirthDate, f))
			})
		})
	}
}

func TestValidateProfile_Phone(t *testing.T) {
	v := fixedValidator()

	tests := []struct {
		value string
		valid bool
	}{
		{"0123456789", true},
		{"9999999999", true},
		{"012345678", false},
		{"01234567890", false},
		{"012-345-6789", false},
		{"012345678a", false},
		{" 0123456789", false},
		{"+123456789", false},
		{"０１２３４５６７８９", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			f := validFields()
			f.PhoneNumber = tt.value
			msg := v.ValidateField(model.FieldPhoneNumber, f)
			if tt.valid {
				assert.Empty(t, msg)
			} else {
				assert.Equal(t, "Phone must be 10 digits", msg)
			}
		})
	}
}

func TestValidateProfile_Email(t *testing.T) {
	v := fixedValidator()

	tests := []struct {
		value string
		want  string
	}{
		{"jane@example.com", ""},
		{"first.last+tag@sub.example.co.jp", ""},
		{"a,b@x.com", "Email must not contain a comma"},
		{"a@x,y.com", "Email must not contain a comma"},
		{"plainaddress", "Invalid email"},
		{"@example.com", "Invalid email"},
		{"jane@", "Invalid email"},
		{"Jane <jane@example.com>", "Invalid email"},
		{"jane doe@example.com", "Invalid email"},
		{"", "Email is required"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			f := validFields()
			f.Email = tt.value
			assert.Equal(t, tt.want, v.ValidateField(model.FieldEmail, f))
		})
	}
}

func TestValidateField_UnknownField_NoError(t *testing.T) {
	assert.Empty(t, fixedValidator().ValidateField("department", validFields()))
}

func TestValidateSignUp(t *testing.T) {
	v := New()

	t.Run("valid input", func(t *testing.T) {
		errs := v.ValidateSignUp(SignUpInput{
			Name:            "Jo",
			Email:           "jo@example.com",
			Password:        "password1",
			ConfirmPassword: "password1",
		})
		assert.True(t, errs.Valid(), "unexpected errors: %v", errs)
	})

	t.Run("padded email is trimmed", func(t *testing.T) {
		errs := v.ValidateSignUp(SignUpInput{
			Name:            "Jo",
			Email:           " jo@example.com\t",
			Password:        "password1",
			ConfirmPassword: "password1",
		})
		assert.True(t, errs.Valid(), "unexpected errors: %v", errs)
	})

	t.Run("passwords must match exactly", func(t *testing.T) {
		errs := v.ValidateSignUp(SignUpInput{
			Name:            "Jo",
			Email:           "jo@example.com",
			Password:        "password1",
			ConfirmPassword: "Password1",
		})
		assert.Equal(t, Errors{FieldConfirmPassword: "Passwords must match"}, errs)
	})

	t.Run("all fields missing", func(t *testing.T) {
		errs := v.ValidateSignUp(SignUpInput{})
		assert.Equal(t, Errors{
			model.FieldName:      "Name is required",
			model.FieldEmail:     "Email is required",
			FieldPassword:        "Password is required",
			FieldConfirmPassword: "Confirm Password is required",
		}, errs)
	})

	t.Run("short name and password", func(t *testing.T) {
		errs := v.ValidateSignUp(SignUpInput{
			Name:            "J",
			Email:           "jo@example.com",
			Password:        "short",
			ConfirmPassword: "short",
		})
		assert.Equal(t, "Name must be at least 2 characters", errs[model.FieldName])
		assert.Equal(t, "Password must be at least 8 characters", errs[FieldPassword])
		assert.NotContains(t, errs, FieldConfirmPassword)
	})
}

func TestValidateSignIn(t *testing.T) {
	v := New()

	assert.True(t, v.ValidateSignIn(SignInInput{Email: "jo@example.com", Password: "password1"}).Valid())

	// 前後の空白は除去して検証する
	assert.True(t, v.ValidateSignIn(SignInInput{Email: "  jo@example.com ", Password: "password1"}).Valid())

	errs := v.ValidateSignIn(SignInInput{Email: "not-an-email", Password: "1234567"})
	assert.Equal(t, "Invalid email format", errs[model.FieldEmail])
	assert.Equal(t, "Password must be at least 8 characters", errs[FieldPassword])
}
