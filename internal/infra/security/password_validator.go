package security

import (
	"fmt"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordValidationError reports why a candidate password was rejected.
// Callers surface Message to the end user; Code is stable for clients.
type PasswordValidationError struct {
	Code    string
	Message string
}

func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordRule checks a single policy constraint.
type PasswordRule func(password string) *PasswordValidationError

// PasswordValidator runs an ordered set of policy rules, stopping at the
// first violation.
type PasswordValidator struct {
	rules []PasswordRule
}

func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	return &PasswordValidator{rules: append([]PasswordRule(nil), rules...)}
}

// DefaultPasswordValidator is the policy applied when an invitation is
// redeemed and the account sets its first password.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule(8),
		CharacterVarietyRule(2),
		StrengthRule(2),
	)
}

func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if violation := rule(password); violation != nil {
			return violation
		}
	}
	return nil
}

// MinLengthRule rejects passwords shorter than min runes.
func MinLengthRule(min int) PasswordRule {
	return func(password string) *PasswordValidationError {
		if len([]rune(password)) >= min {
			return nil
		}
		return &PasswordValidationError{
			Code:    "min_length",
			Message: fmt.Sprintf("password must be at least %d characters long", min),
		}
	}
}

// CharacterVarietyRule requires characters from at least min of the four
// classes: upper, lower, digit, symbol.
func CharacterVarietyRule(min int) PasswordRule {
	classify := func(r rune) int {
		switch {
		case unicode.IsUpper(r):
			return 0
		case unicode.IsLower(r):
			return 1
		case unicode.IsDigit(r):
			return 2
		case unicode.IsSymbol(r) || unicode.IsPunct(r):
			return 3
		}
		return -1
	}

	return func(password string) *PasswordValidationError {
		if min <= 0 {
			return nil
		}

		var seen [4]bool
		for _, r := range password {
			if class := classify(r); class >= 0 {
				seen[class] = true
			}
		}

		variety := 0
		for _, present := range seen {
			if present {
				variety++
			}
		}

		if variety >= min {
			return nil
		}
		return &PasswordValidationError{
			Code:    "character_variety",
			Message: fmt.Sprintf("password must mix at least %d character types", min),
		}
	}
}

// StrengthRule rejects passwords scoring below minScore on the zxcvbn
// 0-4 scale. userInputs penalizes values derived from account data.
func StrengthRule(minScore int, userInputs ...string) PasswordRule {
	return func(password string) *PasswordValidationError {
		if minScore <= 0 {
			return nil
		}
		if minScore > 4 {
			minScore = 4
		}

		if zxcvbn.PasswordStrength(password, userInputs).Score >= minScore {
			return nil
		}
		return &PasswordValidationError{
			Code:    "weak_password",
			Message: "password is too easy to guess",
		}
	}
}
