package numbering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextControlNumber(t *testing.T) {
	cases := []struct {
		prev string
		want string
	}{
		{"", "00-000001"},
		{ControlBaseline, "00-000001"},
		{"00-000007", "00-000008"},
		{"00-000099", "00-000100"},
		{"00-999999", "00-1000000"},
		{"00-1000000", "00-1000001"},
	}
	for _, tc := range cases {
		got, err := NextControlNumber(tc.prev)
		require.NoError(t, err, tc.prev)
		assert.Equal(t, tc.want, got, tc.prev)
	}
}

func TestNextControlNumberRejectsMalformed(t *testing.T) {
	for _, prev := range []string{"01-000001", "000001", "00-", "00-12a4", "00--00001"} {
		_, err := NextControlNumber(prev)
		assert.ErrorIs(t, err, ErrMalformed, prev)
	}
}

func TestNextInvoiceNumber(t *testing.T) {
	got, err := NextInvoiceNumber("")
	require.NoError(t, err)
	assert.Equal(t, "0000001", got)

	got, err = NextInvoiceNumber("0000041")
	require.NoError(t, err)
	assert.Equal(t, "0000042", got)

	got, err = NextInvoiceNumber("9999999")
	require.NoError(t, err)
	assert.Equal(t, "10000000", got)

	_, err = NextInvoiceNumber("F-0001")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "0000015", FormatInvoiceNumber(15))
	assert.Equal(t, "00-000015", FormatControlNumber(15))
}
