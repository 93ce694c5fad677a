// internal/common/validation/formats.go
package validation

import (
	"regexp"
	"strings"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	// Taiwan mobile (09xxxxxxxx), landline with area code (0x-xxxxxxx) or +886 international form.
	twPhoneRegex = regexp.MustCompile(`^(?:\+886|0)(?:9\d{8}|[2-8]\d{7,8})$`)
)

// IsEmail reports whether s is a plausible email address.
func IsEmail(s string) bool {
	return emailRegex.MatchString(strings.TrimSpace(s))
}

// NormalizePhone strips spaces, dashes and parentheses.
func NormalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// IsTaiwanPhone accepts mobile and landline numbers in domestic or +886 form.
func IsTaiwanPhone(s string) bool {
	return twPhoneRegex.MatchString(NormalizePhone(s))
}

// IsNumericCode reports whether s is exactly length ASCII digits.
func IsNumericCode(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ToE164 rewrites a domestic Taiwan number into +886 form.
func ToE164(phone string) string {
	phone = NormalizePhone(phone)
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+886" + strings.TrimPrefix(phone, "0")
}
