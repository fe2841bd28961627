package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"9000000001", "9000000001"},
		{"+91 90000 00001", "9000000001"},
		{"91-9000000001", "9000000001"},
		{"09000000001", "9000000001"},
		{"(900) 000-0001", "9000000001"},
		{"  9000000001  ", "9000000001"},
	}
	for _, c := range cases {
		got, err := NormalizePhone(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestNormalizePhoneRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "12345", "90000000012345", "abc"} {
		_, err := NormalizePhone(in)
		assert.Error(t, err, in)
	}
}

func TestNewRegistrationID(t *testing.T) {
	id := NewRegistrationID()
	require.True(t, strings.HasPrefix(id, "REG-"))
	assert.Len(t, id, 12)
	assert.Equal(t, strings.ToUpper(id), id)

	assert.NotEqual(t, id, NewRegistrationID())
}
