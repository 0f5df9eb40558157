// Package validation holds the registration field predicates and the ordered
// rule lists built from them.
package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SpecialChars is the set a strong password must draw at least one character from.
const SpecialChars = "!@#$%^&*"

const (
	minNameLength     = 3
	maxNameLength     = 50
	minPasswordLength = 8
	maxPasswordLength = 30
)

var (
	emailPattern = regexp.MustCompile(`^[\p{L}\p{N}_.-]+@[\p{L}\p{N}_.-]+\.[\p{L}\p{N}_]+$`)

	commonPasswords = map[string]struct{}{
		"password": {},
		"123456":   {},
		"qwerty":   {},
		"abc123":   {},
	}
)

// NotEmpty reports whether name, email and password are all non-blank.
func NotEmpty(name, email, password string) bool {
	return strings.TrimSpace(name) != "" &&
		strings.TrimSpace(email) != "" &&
		strings.TrimSpace(password) != ""
}

// ConfirmNotEmpty reports whether the confirmation is non-blank.
func ConfirmNotEmpty(confirm string) bool {
	return strings.TrimSpace(confirm) != ""
}

// FullNameMinLength reports whether name has at least three characters.
func FullNameMinLength(name string) bool {
	return utf8.RuneCountInString(name) >= minNameLength
}

// FullNameMaxLength reports whether name has at most fifty characters.
func FullNameMaxLength(name string) bool {
	return utf8.RuneCountInString(name) <= maxNameLength
}

// NoDigitsInName reports whether name is free of digit characters. Other
// numeric symbols such as superscripts and circled digits count as digits.
func NoDigitsInName(name string) bool {
	return strings.IndexFunc(name, isDigitLike) < 0
}

func isDigitLike(r rune) bool {
	return unicode.IsDigit(r) || unicode.Is(unicode.No, r)
}

// EmailFormat reports whether email has a local part, a domain and a TLD.
func EmailFormat(email string) bool {
	return emailPattern.MatchString(email)
}

// EmailLowercaseOnly reports whether email is already lowercase.
func EmailLowercaseOnly(email string) bool {
	return email == strings.ToLower(email)
}

// EmailNoPlus reports whether email carries no plus-addressing tag.
func EmailNoPlus(email string) bool {
	return !strings.Contains(email, "+")
}

// EmailDomainDotted reports whether the part after the last '@' contains a dot.
func EmailDomainDotted(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}

// PasswordStrength requires eight or more characters with at least one
// uppercase letter, lowercase letter, digit and character from SpecialChars.
func PasswordStrength(password string) bool {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(SpecialChars, r):
			special = true
		}
	}
	return upper && lower && digit && special
}

// PasswordHasUppercase reports whether password has an uppercase letter.
func PasswordHasUppercase(password string) bool {
	return strings.IndexFunc(password, unicode.IsUpper) >= 0
}

// PasswordNotCommon reports whether password is absent from the denylist,
// compared case-insensitively.
func PasswordNotCommon(password string) bool {
	_, common := commonPasswords[strings.ToLower(password)]
	return !common
}

// PasswordMaxLength reports whether password has at most thirty characters.
func PasswordMaxLength(password string) bool {
	return utf8.RuneCountInString(password) <= maxPasswordLength
}

// FieldsNotPadded reports whether none of the fields has leading or trailing
// whitespace.
func FieldsNotPadded(name, email, password string) bool {
	for _, s := range []string{name, email, password} {
		if s != strings.TrimSpace(s) {
			return false
		}
	}
	return true
}

// PasswordsMatch reports whether password and confirm are byte-identical.
func PasswordsMatch(password, confirm string) bool {
	return password == confirm
}
