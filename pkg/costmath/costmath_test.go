package costmath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDot(t *testing.T) {
	c := CostVector{1, 2, 3, 4}
	alpha := Preference{0.25, 0.25, 0.25, 0.25}
	assert.InDelta(t, 2.5, Dot(c, alpha), 1e-9)
}

func TestAdd(t *testing.T) {
	a := CostVector{1, 2, 3}
	b := CostVector{4, 5, 6}
	assert.Equal(t, CostVector{5, 7, 9}, Add(a, b))
}

func TestUniform(t *testing.T) {
	alpha := Uniform(4)
	assert.True(t, Valid(alpha))
	for _, v := range alpha {
		assert.InDelta(t, 0.25, v, 1e-9)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(Preference{0.2, 0.2, 0.2, 0.4}))
	assert.False(t, Valid(Preference{0.2, 0.2, 0.2, 0.3}))
	assert.False(t, Valid(Preference{-0.1, 0.3, 0.4, 0.4}))
}

func TestEqual(t *testing.T) {
	a := Preference{0.25, 0.25, 0.25, 0.25}
	b := Preference{0.25 + 1e-9, 0.25, 0.25, 0.25}
	assert.True(t, Equal(a, b, 1e-6))
	assert.False(t, Equal(a, b, 1e-12))
}
