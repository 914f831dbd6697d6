package application

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/example/store-attendance/internal/attendance"
)

const (
	msgRequired          = "必須項目が入力されていません"
	msgLoginRequired     = "メールアドレスとパスワードを入力してください"
	msgEmailFormat       = "正しいメールアドレス形式で入力してください"
	msgEmployeeIDFormat  = "従業員IDは英字3文字+数字3桁の形式で入力してください（例: EMP001）"
	msgPasswordLength    = "パスワードは8文字以上である必要があります"
	msgPasswordLower     = "パスワードには小文字を含める必要があります"
	msgPasswordUpper     = "パスワードには大文字を含める必要があります"
	msgPasswordDigit     = "パスワードには数字を含める必要があります"
	msgRoleInvalid       = "権限の値が正しくありません"
	msgCurrentPassword   = "現在のパスワードが正しくありません"
	msgSelfDeactivation  = "自分自身のアカウントを無効化することはできません"
	msgSelfDemotion      = "自分自身の権限を変更することはできません"
	msgDateFormat        = "日付はYYYY-MM-DD形式で入力してください"
	msgDateRange         = "開始日は終了日以前である必要があります"
	msgExportDateMissing = "出力期間を指定してください"

	minPasswordLength = 8
)

var (
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	employeeIDPattern = regexp.MustCompile(`^[A-Z]{3}\d{3}$`)
)

// ValidEmail reports whether value has the shape local@domain.tld.
func ValidEmail(value string) bool {
	return emailPattern.MatchString(value)
}

// ValidEmployeeID reports whether value is three upper-case letters followed by three digits.
func ValidEmployeeID(value string) bool {
	return employeeIDPattern.MatchString(value)
}

// passwordProblem returns the first strength rule password breaks, or "".
func passwordProblem(password string) string {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return msgPasswordLength
	}
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !lower:
		return msgPasswordLower
	case !upper:
		return msgPasswordUpper
	case !digit:
		return msgPasswordDigit
	}
	return ""
}

func normalizeUserInput(input UserInput) UserInput {
	return UserInput{
		Email:      strings.ToLower(strings.TrimSpace(input.Email)),
		Name:       strings.TrimSpace(input.Name),
		EmployeeID: strings.TrimSpace(input.EmployeeID),
		Password:   input.Password,
		Department: strings.TrimSpace(input.Department),
		Position:   strings.TrimSpace(input.Position),
		Role:       strings.ToUpper(strings.TrimSpace(input.Role)),
	}
}

func validateUserInput(input UserInput) *ValidationError {
	vErr := &ValidationError{}

	for _, field := range []struct {
		name  string
		value string
	}{
		{"email", input.Email},
		{"name", input.Name},
		{"employeeId", input.EmployeeID},
		{"password", input.Password},
		{"department", input.Department},
		{"position", input.Position},
		{"role", input.Role},
	} {
		if field.value == "" {
			vErr.add(field.name, msgRequired)
		}
	}

	if input.Email != "" && !ValidEmail(input.Email) {
		vErr.add("email", msgEmailFormat)
	}
	if input.Password != "" {
		if problem := passwordProblem(input.Password); problem != "" {
			vErr.add("password", problem)
		}
	}
	if input.EmployeeID != "" && !ValidEmployeeID(input.EmployeeID) {
		vErr.add("employeeId", msgEmployeeIDFormat)
	}
	if input.Role != "" {
		if _, err := ParseRole(input.Role); err != nil {
			vErr.add("role", msgRoleInvalid)
		}
	}

	return vErr
}

// validateDateRange checks optional inclusive bounds and returns them in canonical form.
func validateDateRange(start, end string) (string, string, *ValidationError) {
	vErr := &ValidationError{}
	var err error
	if strings.TrimSpace(start) != "" {
		if start, err = attendance.ParseBusinessDay(start); err != nil {
			vErr.add("startDate", msgDateFormat)
		}
	} else {
		start = ""
	}
	if strings.TrimSpace(end) != "" {
		if end, err = attendance.ParseBusinessDay(end); err != nil {
			vErr.add("endDate", msgDateFormat)
		}
	} else {
		end = ""
	}
	if !vErr.HasErrors() && start != "" && end != "" && start > end {
		vErr.add("startDate", msgDateRange)
	}
	return start, end, vErr
}

// validateRequiredDateRange is validateDateRange with both bounds mandatory.
func validateRequiredDateRange(start, end string) (string, string, *ValidationError) {
	vErr := &ValidationError{}
	if strings.TrimSpace(start) == "" {
		vErr.add("startDate", msgExportDateMissing)
	}
	if strings.TrimSpace(end) == "" {
		vErr.add("endDate", msgExportDateMissing)
	}
	if vErr.HasErrors() {
		return "", "", vErr
	}
	return validateDateRange(start, end)
}
