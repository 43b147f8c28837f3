package model

import (
	"regexp"
	"strings"
)

// MaxScore bounds a single side of a score guess.
const MaxScore = 99

var contactPattern = regexp.MustCompile(`^(\+?[0-9]{6,15}|[^@\s]+@[^@\s]+\.[^@\s]+)$`)

// ValidContact reports whether the contact is a plausible phone number or
// email address. Both the engine and the backend reject malformed contact
// info before any record is written.
func ValidContact(contact string) bool {
	return contactPattern.MatchString(strings.TrimSpace(contact))
}

// ValidScore reports whether a single score is within bounds.
func ValidScore(score int) bool {
	return score >= 0 && score <= MaxScore
}
