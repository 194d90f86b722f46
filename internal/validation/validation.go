// Package validation checks user input before anything leaves the process.
package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	// MaxAddressLength caps the sanitised address, in characters.
	MaxAddressLength = 200
	// MinAddressLength is the shortest address worth sending to a geocoder.
	MinAddressLength = 3
)

// Error is a local input error. It is never retryable and is reported
// before any network call is made.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Validator validates addresses and emails.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator
func New() *Validator {
	return &Validator{validate: validator.New()}
}

// SanitizeAddress trims input, strips angle brackets and caps it at MaxAddressLength characters.
func SanitizeAddress(input string) string {
	s := strings.TrimSpace(input)
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > MaxAddressLength {
		s = string([]rune(s)[:MaxAddressLength])
	}
	return s
}

// Address sanitises input and checks it is long enough to geocode.
// It returns the sanitised address on success.
func (v *Validator) Address(input string) (string, error) {
	sanitized := SanitizeAddress(input)

	if err := v.validate.Var(sanitized, "required"); err != nil {
		return "", &Error{Field: "address", Message: "Please enter an address"}
	}
	if err := v.validate.Var(sanitized, "min=3"); err != nil {
		return "", &Error{Field: "address", Message: "Address is too short"}
	}
	return sanitized, nil
}

// Email trims input and checks it is a plausible email address.
func (v *Validator) Email(input string) (string, error) {
	email := strings.TrimSpace(input)
	if err := v.validate.Var(email, "required,email"); err != nil {
		return "", &Error{Field: "email", Message: "Please enter a valid email address."}
	}
	return email, nil
}
