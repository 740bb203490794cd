package services

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/taskly/taskly-be/internal/apperror"
)

var validate = validator.New()

const minPasswordLength = 7

// validateUserFields checks the user validation rules from the data model:
// non-empty trimmed name, syntactically valid email, non-negative age.
// Returned field errors are accumulated, not short-circuited.
func validateUserFields(name, email string, age int) []apperror.FieldError {
	var fields []apperror.FieldError

	if strings.TrimSpace(name) == "" {
		fields = append(fields, apperror.FieldError{Field: "name", Message: "Name is required"})
	}
	if err := validate.Var(email, "required,email"); err != nil {
		fields = append(fields, apperror.FieldError{Field: "email", Message: "It is not a valid email."})
	}
	if age < 0 {
		fields = append(fields, apperror.FieldError{Field: "age", Message: "Age must be a positive number"})
	}
	return fields
}

// validatePassword checks the plaintext password rules: at least 7
// characters after trimming, and it must not contain the literal substring
// "password" in any case.
func validatePassword(password string) []apperror.FieldError {
	var fields []apperror.FieldError

	trimmed := strings.TrimSpace(password)
	if len(trimmed) < minPasswordLength {
		fields = append(fields, apperror.FieldError{Field: "password", Message: "Password must be at least 7 characters"})
	}
	if strings.Contains(strings.ToLower(trimmed), "password") {
		fields = append(fields, apperror.FieldError{Field: "password", Message: "Password cannot contain password"})
	}
	return fields
}

// validateTaskFields checks the task validation rules.
func validateTaskFields(description string) []apperror.FieldError {
	if strings.TrimSpace(description) == "" {
		return []apperror.FieldError{{Field: "description", Message: "Description is required"}}
	}
	return nil
}
