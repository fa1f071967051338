package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dtroode/pgpmail-server/internal/apierrors"
)

const (
	minHandleLen   = 3
	maxHandleLen   = 30
	minPasswordLen = 6
)

var addressPattern = regexp.MustCompile(`^.+@.+\..+$`)

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func validateHandle(handle string) error {
	n := utf8.RuneCountInString(handle)
	if n < minHandleLen || n > maxHandleLen {
		return apierrors.NewErrValidation("handle must be between 3 and 30 characters")
	}
	return nil
}

func validateAddress(address string) error {
	if !addressPattern.MatchString(address) {
		return apierrors.NewErrValidation("address is not a valid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return apierrors.NewErrValidation("password must be at least 6 characters")
	}
	return nil
}
