package uuidutil

import "github.com/google/uuid"

// Parse safely parses a string into a UUID.
func Parse(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// MustParse parses a string into a UUID and panics on error. Only for tests
// and hardcoded values.
func MustParse(s string) uuid.UUID {
	return uuid.MustParse(s)
}

// New generates a new random UUID v4.
func New() uuid.UUID {
	return uuid.New()
}

// IsValid checks whether a string is a valid UUID.
func IsValid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
