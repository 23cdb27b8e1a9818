package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound1(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{50, 50},
		{33.333333333333336, 33.3},
		{66.66666666666667, 66.7},
		{1.25, 1.3},  // exact tie
		{0.15, 0.1},  // 0.1499999...
		{0.25, 0.3},  // exact tie
		{0.35, 0.3},  // 0.34999...
		{99.95, 100}, // 99.9500000000000028...
		{-1.25, -1.2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round1(tt.in), "Round1(%v)", tt.in)
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(0, 0))
	assert.Equal(t, 0.0, Percent(3, 0))
	assert.Equal(t, 50.0, Percent(1, 2))
	assert.Equal(t, 33.3, Percent(1, 3))
	assert.Equal(t, 66.7, Percent(2, 3))
	assert.Equal(t, 100.0, Percent(2, 2))
	assert.Equal(t, 0.1, Percent(1, 1000))
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 50.0, Mean([]float64{100, 0}))
	assert.Equal(t, 33.3, Mean([]float64{100, 0, 0}))
	assert.Equal(t, 23.3, Mean([]float64{10, 20, 40}))
}
