package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a species row does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// StoreError carries the message reported by the backing data store verbatim.
// Err, when set, is the underlying driver error.
type StoreError struct {
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "store error"
}

func (e *StoreError) Unwrap() error { return e.Err }

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	var msgs []string
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			msgs = append(msgs, v.Message)
		}
	}
	if len(msgs) == 0 {
		return "transaction blocked by rules"
	}
	return "transaction blocked by rules: " + strings.Join(msgs, "; ")
}

// ErrorMessage returns the user-facing message for a store failure: the
// store's own message when available, the error text otherwise.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Error()
	}
	return err.Error()
}
