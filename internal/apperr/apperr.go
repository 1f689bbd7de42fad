// Package apperr defines the typed error kinds the core returns, per the
// propagation policy: clients see a short canonical message and a request
// id, never a stack frame.
package apperr

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind enumerates the error categories named in the error handling design.
type Kind string

const (
	// Input errors.
	CommandTooLong         Kind = "command_too_long"
	InvalidCharacters      Kind = "invalid_characters"
	NoTarget               Kind = "no_target"
	NoMatch                Kind = "no_match"
	DisambiguationRequired Kind = "disambiguation_required"
	NotInRoom              Kind = "not_in_room"
	InstanceOutOfRange     Kind = "instance_out_of_range"

	// Auth/policy errors.
	Unauthenticated    Kind = "unauthenticated"
	Forbidden          Kind = "forbidden"
	RateLimited        Kind = "rate_limited"
	ShutdownPending    Kind = "shutdown_pending"
	GracePeriodBlocked Kind = "grace_period_blocked"

	// Subject errors.
	PatternNotFound  Kind = "pattern_not_found"
	MissingParameter Kind = "missing_parameter"
	InvalidPattern   Kind = "invalid_pattern"
	InvalidValue     Kind = "invalid_value"
	SubjectTooLong   Kind = "subject_too_long"

	// Combat errors.
	NotInCombat          Kind = "not_in_combat"
	NotYourTurn          Kind = "not_your_turn"
	TargetNotParticipant Kind = "target_not_participant"
	CombatEnded          Kind = "combat_ended"

	// External errors.
	PersistenceFailure Kind = "persistence_failure"
	BusFailure         Kind = "bus_failure"

	// Spell errors.
	UnknownSpell  Kind = "unknown_spell"
	SpellNotKnown Kind = "spell_not_known"

	// Internal is never named directly in spec.md; it is the catch-all a
	// handler converts any unclassified error into before it reaches a
	// client.
	Internal Kind = "internal"
)

// Error is the typed failure the core returns and the command pipeline
// renders into user-facing text. It never carries a stack trace.
type Error struct {
	Kind      Kind
	Message   string
	RequestID string

	// Missing/Field carry structured detail for specific kinds
	// (missing_parameter, invalid_value) without requiring callers to
	// parse Message.
	Field   string
	Missing []string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// New stamps a fresh request id onto a typed error.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		RequestID: uuid.NewString(),
	}
}

// NewMissingParameter builds the pattern-build failure for one or more
// absent required parameters.
func NewMissingParameter(name string, missing []string) *Error {
	return &Error{
		Kind:      MissingParameter,
		Message:   fmt.Sprintf("pattern %q missing parameters: %v", name, missing),
		RequestID: uuid.NewString(),
		Field:     name,
		Missing:   missing,
	}
}

// NewInvalidValue builds the build-time failure for an alphabet-illegal
// parameter value.
func NewInvalidValue(field string) *Error {
	return &Error{
		Kind:      InvalidValue,
		Message:   fmt.Sprintf("invalid value for parameter %q", field),
		RequestID: uuid.NewString(),
		Field:     field,
	}
}

// Internalize converts any non-*Error into a canonical internal failure,
// preserving nothing of the original error text for the client.
func Internalize(err error) *Error {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*Error); ok {
		return ae
	}
	return &Error{
		Kind:      Internal,
		Message:   "internal error",
		RequestID: uuid.NewString(),
	}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	ae, ok := err.(*Error)
	return ok && ae.Kind == kind
}
