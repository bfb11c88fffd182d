// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := Make[int](10)
	assert.Len(t, s, 0)
	s.Insert(3, 7, 3)
	assert.Len(t, s, 2)
	assert.True(t, s.Has(3))
	assert.False(t, s.Has(5))

	names := MakeWith("Pad", "Gather")
	assert.True(t, names.Has("Gather"))
	assert.Equal(t, []string{"Gather", "Pad"}, Sorted(names))
	assert.Empty(t, Sorted(Make[string]()))
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, []int{1, 3}, Remaining(MakeWith(0, 2), 4))
	assert.Equal(t, []int{0, 1, 2}, Remaining(Make[int](), 3))
	assert.Empty(t, Remaining(MakeWith(1, 0), 2))
	assert.Empty(t, Remaining(Make[int](), 0))
}
