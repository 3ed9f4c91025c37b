package nodes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatScore(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1, "1.0"},
		{0, "0.0"},
		{-0.25, "-0.25"},
		{float64(float32(0.87654321)), "0.8765432238578796"},
		{28.5, "28.5"},
		{100, "100.0"},
		{0.0001, "0.0001"},
		{0.00001234, "1.234e-05"},
		{1e16, "1e+16"},
		{math.NaN(), "nan"},
		{math.Inf(1), "inf"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatScore(tc.in), "FormatScore(%v)", tc.in)
	}
}
