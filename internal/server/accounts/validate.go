package accounts

import (
	"strings"
	"unicode"
)

const (
	usernameMinLen = 3
	usernameMaxLen = 50
	passwordMinLen = 8
	emailMaxLen    = 254
)

func validUsername(username string) bool {
	n := len(username)
	return n >= usernameMinLen && n <= usernameMaxLen
}

// validPassword requires a minimum length plus at least one letter and one
// digit. Complexity beyond that is not enforced; length is the property that
// matters.
func validPassword(pw string) bool {
	if len(pw) < passwordMinLen {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// validEmail is a sanity check, not RFC validation; the verification mail is
// the real proof of ownership.
func validEmail(email string) bool {
	if len(email) == 0 || len(email) > emailMaxLen {
		return false
	}
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}
