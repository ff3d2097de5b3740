package types

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownToken is returned when an order references a token outside the canonical list
	ErrUnknownToken = errors.New("token not in list")

	// ErrStale is returned when a result belongs to a superseded token list or account
	ErrStale = errors.New("result superseded by a newer state")
)

// InvalidTokenError describes a dapp token entry that cannot be parsed.
// Callers skip the entry and keep going.
type InvalidTokenError struct {
	Raw    any
	Reason string
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("invalid token %v: %s", e.Raw, e.Reason)
}

// MalformedOrderError describes an order record missing a required field.
// The order is dropped from the rendered list; siblings are unaffected.
type MalformedOrderError struct {
	ID    string
	Field string
	Err   error
}

func (e *MalformedOrderError) Error() string {
	id := e.ID
	if id == "" {
		id = "<unknown>"
	}
	if e.Err != nil {
		return fmt.Sprintf("malformed order %s: field %s: %v", id, e.Field, e.Err)
	}
	return fmt.Sprintf("malformed order %s: missing field %s", id, e.Field)
}

func (e *MalformedOrderError) Unwrap() error {
	return e.Err
}
