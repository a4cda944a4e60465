package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrProfileNotFound is returned by Registry.Get for unknown profile names.
var ErrProfileNotFound = errors.New("profile not found")

// ValidationError collects every structural issue found in one pass.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// ProfileError ties a load or validation failure to the profile it concerns.
type ProfileError struct {
	Name string
	Err  error
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("failed to validate profile: %s: %v", e.Name, e.Err)
}

func (e *ProfileError) Unwrap() error {
	return e.Err
}
