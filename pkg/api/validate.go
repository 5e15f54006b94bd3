package api

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

// validIDRE matches backend identifiers: numeric primary keys, UUIDs and
// slugs. Anything else would be interpolated into a URL path, so it is
// rejected before a request is built.
var validIDRE = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)

// ValidateID checks that id can be safely used as a path segment.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	if strings.ContainsAny(id, "/\\?#\x00\n\r") {
		return fmt.Errorf("id %q contains invalid characters", id)
	}
	if id == "." || id == ".." {
		return fmt.Errorf("id %q is not allowed", id)
	}
	if !validIDRE.MatchString(id) {
		return fmt.Errorf("id %q is invalid (allowed: a-z A-Z 0-9 . _ - up to 128 chars)", id)
	}
	return nil
}

// ValidateEmail checks a login email address.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email must not be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("email %q is not a valid address", email)
	}
	return nil
}

// ValidateRate checks a commission percentage.
func ValidateRate(rate float64) error {
	if rate < 0 || rate > 100 {
		return fmt.Errorf("rate %.2f must be between 0 and 100", rate)
	}
	return nil
}
