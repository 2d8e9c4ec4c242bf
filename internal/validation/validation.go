package validation

import (
	"html"
	"regexp"
	"strings"
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,30}$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	passwordCharsetRe = regexp.MustCompile(`^[A-Za-z0-9@$!%*?&]{8,}$`)
	lowerRe           = regexp.MustCompile(`[a-z]`)
	upperRe           = regexp.MustCompile(`[A-Z]`)
	digitRe           = regexp.MustCompile(`[0-9]`)
	specialRe         = regexp.MustCompile(`[@$!%*?&]`)
)

// Sanitize trims surrounding whitespace and escapes HTML metacharacters so
// stored values are safe to echo back into markup.
func Sanitize(input string) string {
	return html.EscapeString(strings.TrimSpace(input))
}

// ValidUsername reports whether the username is 3-30 characters of letters,
// digits, underscores or hyphens.
func ValidUsername(username string) bool {
	return usernameRe.MatchString(username)
}

// ValidEmail reports whether the string is plausibly an email address.
func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// ValidPassword reports whether the password is at least 8 characters drawn
// from the allowed charset and contains a lowercase letter, an uppercase
// letter, a digit and one of @$!%*?&.
func ValidPassword(password string) bool {
	return passwordCharsetRe.MatchString(password) &&
		lowerRe.MatchString(password) &&
		upperRe.MatchString(password) &&
		digitRe.MatchString(password) &&
		specialRe.MatchString(password)
}

// ValidateRegistration checks all registration fields and returns every
// violation found, not just the first.
func ValidateRegistration(username, email, password, confirmPassword string) []string {
	var errs []string

	if username == "" {
		errs = append(errs, "Username is required")
	} else if !ValidUsername(username) {
		errs = append(errs, "Username must be 3-30 characters and contain only letters, numbers, underscores, or hyphens")
	}

	if email == "" {
		errs = append(errs, "Email is required")
	} else if !ValidEmail(email) {
		errs = append(errs, "Invalid email format")
	}

	if password == "" {
		errs = append(errs, "Password is required")
	} else if !ValidPassword(password) {
		errs = append(errs, "Password must be at least 8 characters with uppercase, lowercase, number, and special character")
	}

	if password != confirmPassword {
		errs = append(errs, "Passwords do not match")
	}

	return errs
}
