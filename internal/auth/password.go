package auth

import "usercrud/internal/model"

// PasswordMatches reports whether submitted equals the stored password.
// Passwords are stored and compared as plain text.
func PasswordMatches(stored, submitted string) bool {
	return stored == submitted
}

// Result is the outcome of a credential check.
// User is set only when Authenticated is true.
type Result struct {
	Authenticated bool        `json:"authenticated"`
	User          *model.User `json:"user,omitempty"`
}

// Check compares submitted against user's stored password.
func Check(user *model.User, submitted string) Result {
	if user == nil || !PasswordMatches(user.Password, submitted) {
		return Result{Authenticated: false}
	}
	return Result{Authenticated: true, User: user}
}
