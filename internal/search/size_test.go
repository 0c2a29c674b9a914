package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/searchfs/searchfs/internal/errors"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		expr  string
		op    SizeOp
		bytes int64
	}{
		{"500M", SizeAtLeast, 500 * 1024 * 1024},
		{"-1TB", SizeAtMost, 1 << 40},
		{"2048", SizeAtLeast, 2048},
		{"+10k", SizeAtLeast, 10 * 1024},
		{"+10KB", SizeAtLeast, 10 * 1024},
		{"-3g", SizeAtMost, 3 << 30},
		{"0", SizeAtLeast, 0},
		{"7b", SizeAtLeast, 7},
		{" 1M ", SizeAtLeast, 1 << 20},
		{"-0", SizeAtMost, 0},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseSize(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.op, got.Op)
			assert.Equal(t, tt.bytes, got.Bytes)
		})
	}
}

func TestParseSize_Errors(t *testing.T) {
	tests := []string{
		"xB",
		"",
		"+",
		"B",
		"10Q",
		"1.5M",
		"M10",
		"+-5",
		"10 M",
		"99999999999T",
		"99999999999999999999",
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseSize(expr)
			require.Error(t, err)
			assert.True(t, serrors.HasCode(err, serrors.ErrCodeInvalidSize))

			// the offending token is carried in the message
			assert.Contains(t, err.Error(), expr)
		})
	}
}

func TestSizeRange_String(t *testing.T) {
	atLeast := SizeRange{Op: SizeAtLeast, Bytes: 100}
	assert.Equal(t, "+100", atLeast.String())
	assert.Equal(t, ">=", atLeast.Op.String())

	atMost := SizeRange{Op: SizeAtMost, Bytes: 100}
	assert.Equal(t, "-100", atMost.String())
	assert.Equal(t, "<=", atMost.Op.String())

	back, err := ParseSize(atMost.String())
	require.NoError(t, err)
	assert.Equal(t, atMost, back)
}
