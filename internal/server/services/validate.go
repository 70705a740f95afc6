package services

import (
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophtodo/internal/common"
)

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 6

const (
	msgInvalidEmail    = "Please provide a valid email address"
	msgShortPassword   = "Password must be at least 6 characters long"
	msgMissingPassword = "Please provide a password"
	msgTitleRequired   = "Todo title is required"
)

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail is a minimal shape check, not RFC 5322.
func validEmail(email string) bool {
	return strings.Contains(email, "@")
}

func validateSignUp(email, password string) error {
	if !validEmail(email) {
		return common.NewValidationError(msgInvalidEmail)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return common.NewValidationError(msgShortPassword)
	}
	return nil
}

func validateSignIn(email, password string) error {
	if !validEmail(email) {
		return common.NewValidationError(msgInvalidEmail)
	}
	if password == "" {
		return common.NewValidationError(msgMissingPassword)
	}
	return nil
}

// defaultName is the local part of email.
func defaultName(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return local
}

// optionalText trims s and maps blank input to nil.
func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
