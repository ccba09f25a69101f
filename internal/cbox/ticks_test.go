package cbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntervalHelper_CompensatesLateness(t *testing.T) {
	// GIVEN
	h := NewIntervalHelper(100)
	runs := 0
	fn := func() { runs++ }

	// WHEN
	first := h.Update(0, fn)
	skipped := h.Update(50, fn)
	late := h.Update(130, fn)

	// THEN
	assert.Equal(t, Ticks(100), first)
	assert.Equal(t, Ticks(100), skipped)
	assert.Equal(t, Ticks(200), late)
	assert.Equal(t, 2, runs)
}

func TestIntervalHelper_RestartsWhenFarBehind(t *testing.T) {
	// GIVEN
	h := NewIntervalHelper(100)
	h.Update(0, func() {})

	// WHEN
	next := h.Update(450, func() {})

	// THEN
	assert.Equal(t, Ticks(550), next)
}

func TestElapsed(t *testing.T) {
	assert.Equal(t, Ticks(5), Elapsed(10, 5))
	assert.Equal(t, Ticks(0), Elapsed(5, 10))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, uint8(StatusOk), StatusOf(nil))
	assert.Equal(t, uint8(ErrInvalidObjectID), StatusOf(ErrInvalidObjectID))
}
