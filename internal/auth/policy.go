package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// specialCharacters is the fixed set a password must draw at least one
// character from.
const specialCharacters = `~!@#$%^&*()_+{}":;'[]`

// Policy rule identifiers reported inside a PolicyError.
const (
	RuleTooShort           = "too_short"
	RuleMissingUppercase   = "missing_uppercase"
	RuleMissingDigit       = "missing_digit"
	RuleMissingLetter      = "missing_letter"
	RuleMissingSpecialChar = "missing_special_char"
)

// PolicyError collects every rule a candidate password failed.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string {
	return "password policy violated: " + strings.Join(e.Violations, ", ")
}

// Messages maps each violated rule to a human readable message, keyed the
// way field-level validation details are rendered.
func (e *PolicyError) Messages() []string {
	messages := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		switch v {
		case RuleTooShort:
			messages = append(messages, "Password length must be greater than 8 characters.")
		case RuleMissingUppercase:
			messages = append(messages, "Password must contain at least one capital letter.")
		case RuleMissingDigit:
			messages = append(messages, "Password must contain at least 1 digit.")
		case RuleMissingLetter:
			messages = append(messages, "Password must contain at least 1 letter.")
		case RuleMissingSpecialChar:
			messages = append(messages, "Password must contain at least one special character.")
		}
	}
	return messages
}

// ValidatePassword checks the candidate against all five policy rules and
// returns a PolicyError listing every violation. It gates account creation,
// password change and password reset alike.
func ValidatePassword(password string) error {
	var violations []string

	// character count, not byte count
	if utf8.RuneCountInString(password) < 8 {
		violations = append(violations, RuleTooShort)
	}

	hasUpper := false
	hasDigit := false
	hasLetter := false
	hasSpecial := false
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
			hasLetter = true
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
		if strings.ContainsRune(specialCharacters, r) {
			hasSpecial = true
		}
	}

	if !hasUpper {
		violations = append(violations, RuleMissingUppercase)
	}
	if !hasDigit {
		violations = append(violations, RuleMissingDigit)
	}
	if !hasLetter {
		violations = append(violations, RuleMissingLetter)
	}
	if !hasSpecial {
		violations = append(violations, RuleMissingSpecialChar)
	}

	if len(violations) > 0 {
		return &PolicyError{Violations: violations}
	}
	return nil
}
