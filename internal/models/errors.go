package models

import "fmt"

// ValidationError rejects an update that would break a uniqueness or required-field rule.
// Retrying the same payload cannot succeed.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s %s", e.Entity, e.Field, e.Reason)
}
