// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package backends defines the generalized operators (described with XLA-style dimension numbers)
// that can be lowered onto a narrower target primitive set, their static attributes, and the
// sentinel errors reported when a lowering is not possible.
//
// The lowering itself is implemented in package github.com/gomlx/lowering/backends/lowering, and the
// target primitive set is defined in package github.com/gomlx/lowering/backends/target.
package backends

import "github.com/pkg/errors"

// ErrNotImplemented is reported (wrapped) when an operator, or a variant of an operator, has no lowering at all.
//
// It doesn't contain a stack, attach one with errors.Wrapf(ErrNotImplemented, "...") when using it.
var ErrNotImplemented = errors.New("not implemented")

// ErrUnsupported is reported (wrapped) when an operator is generally lowerable, but the static attributes
// of this instance fall outside the supported subset.
var ErrUnsupported = errors.New("unsupported for these arguments")
