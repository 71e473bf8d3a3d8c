// Package patchkit holds the types shared by the ips, ups, and bps codecs:
// the owned output view and the unified error taxonomy. The three codecs
// otherwise have independent state machines and are intentionally not
// collapsed behind a common interface — see DESIGN.md.
package patchkit

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the unified error taxonomy every codec maps its native failures
// onto.
type Kind int

const (
	// NotThis means the source does not match the patch's declared input.
	NotThis Kind = iota
	// ToOutput means the source already matches the patch's declared
	// output — the caller applied the patch twice.
	ToOutput
	// Invalid means the patch is malformed or unreadable.
	Invalid
	// Scrambled means an IPS patch is structurally valid but reorders or
	// overlaps its hunks suspiciously.
	Scrambled
	// Identical means a creator received equal source and target.
	Identical
	// TooBig means a declared size exceeds the addressable range.
	TooBig
	// OutOfMem means an allocation failed, or (IPS only) the output would
	// exceed the format's 16 MiB bound.
	OutOfMem
	// Canceled means a builder was invoked without both source and target,
	// or a cancellation probe requested an abort.
	Canceled
)

func (k Kind) String() string {
	switch k {
	case NotThis:
		return "not this"
	case ToOutput:
		return "to output"
	case Invalid:
		return "invalid"
	case Scrambled:
		return "scrambled"
	case Identical:
		return "identical"
	case TooBig:
		return "too big"
	case OutOfMem:
		return "out of memory"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the single error type every codec entry point returns. Exactly
// one Kind is reported per failure; there is no multi-error aggregation and
// no warnings channel.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind and an empty
// Op (as Err builds), so callers can write
// errors.Is(err, patchkit.Err(patchkit.NotThis)).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind && other.Op == ""
}

// NewError builds a unified error for op, wrapping cause (if any) for
// diagnostics while keeping Kind as the single classification a caller
// should branch on.
func NewError(kind Kind, op string, cause error) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Err returns a sentinel usable with errors.Is to match on Kind alone,
// regardless of Op or wrapped cause.
func Err(kind Kind) error {
	return &Error{Kind: kind}
}

// Of reports the Kind of err if err is (or wraps) a *Error, and ok=false
// otherwise.
func Of(err error) (kind Kind, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Output is the byte view a codec hands back on success. Go's garbage
// collector owns the backing array the moment Apply/Create returns, so
// Release is a no-op kept only so call sites mirror the spec's
// single-owner release contract; there is no manual free to perform.
type Output struct {
	Data []byte
}

// NewOutput wraps b as an Output view.
func NewOutput(b []byte) Output { return Output{Data: b} }

// Release is a no-op — see Output's doc comment.
func (Output) Release() {}
