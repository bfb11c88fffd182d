// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lowering

import (
	"fmt"
	"strings"

	"github.com/gomlx/lowering/backends"
	"github.com/pkg/errors"
)

// ErrorKind classifies lowering failures.
type ErrorKind int

const (
	// KindNotImplemented means the operator, or the variant of the operator, has no lowering.
	KindNotImplemented ErrorKind = iota

	// KindUnsupported means the operator can be lowered in general, but not with these static attributes.
	KindUnsupported
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	switch k {
	case KindNotImplemented:
		return "NotImplemented"
	case KindUnsupported:
		return "Unsupported"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Rejection is the reason a strategy didn't accept an operator instance.
type Rejection struct {
	Strategy, Reason string
}

// String implements fmt.Stringer.
func (r Rejection) String() string { return r.Strategy + ": " + r.Reason }

// Error is returned by Engine.Lower when an operator instance can't be lowered.
//
// errors.Is(err, backends.ErrNotImplemented) or errors.Is(err, backends.ErrUnsupported) reports its kind.
type Error struct {
	Op     backends.OpType
	Kind   ErrorKind
	Reason string

	// Rejections holds the reason each strategy rejected the operator instance, in the order they were tried.
	// Only set for operators lowered with a chain of strategies (Gather).
	Rejections []Rejection
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "Call to %s cannot be converted with the lowering engine.", OpName(e.Op))
	if e.Reason != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Reason)
	}
	for _, r := range e.Rejections {
		sb.WriteString("\n")
		sb.WriteString(r.String())
	}
	return sb.String()
}

// Is makes errors.Is match the sentinel error of the kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindNotImplemented:
		return target == backends.ErrNotImplemented
	case KindUnsupported:
		return target == backends.ErrUnsupported
	}
	return false
}

func notImplementedError(op backends.OpType, reason string) *Error {
	return &Error{Op: op, Kind: KindNotImplemented, Reason: reason}
}

func unsupportedError(op backends.OpType, reason string) *Error {
	return &Error{Op: op, Kind: KindUnsupported, Reason: reason}
}

// invalidArgumentf reports arguments the lowering can't make sense of: these are not *Error.
func invalidArgumentf(format string, args ...any) error {
	return errors.Errorf("lowering: "+format, args...)
}

// Suffixes appended to the reasons reported by the components.
const (
	convSuffix         = "See the package documentation for the conditions under which convolutions can be lowered."
	reduceWindowSuffix = "See the package documentation for the conditions under which reduce_window can be lowered."
	scatterSuffix      = "See the package documentation for the conditions under which scatter_(update/add/multiply/min/max) ops can be lowered."
)

// withSuffix formats the reason of a component error: "<msg> - <suffix>".
func withSuffix(suffix, format string, args ...any) string {
	return fmt.Sprintf(format, args...) + " - " + suffix
}
