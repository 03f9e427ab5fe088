package service

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var basicEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NewValidator returns a validator with the project's custom tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		return basicEmailPattern.MatchString(fl.Field().String())
	})
	return v
}

// normalizeEmail is the canonical stored and looked-up form of an address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
