package envutil

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	t.Setenv("TUTOR_NAME", "  tutor ")
	assert.Equal(t, "tutor", String("TUTOR_NAME", "x"))
	t.Setenv("TUTOR_NAME", "   ")
	assert.Equal(t, "x", String("TUTOR_NAME", "x"))
}

func TestInt(t *testing.T) {
	t.Setenv("TUTOR_N", "")
	n, err := Int("TUTOR_N", 60)
	require.NoError(t, err)
	assert.Equal(t, 60, n)

	t.Setenv("TUTOR_N", " 15 ")
	n, err = Int("TUTOR_N", 60)
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	t.Setenv("TUTOR_N", "abc")
	_, err = Int("TUTOR_N", 60)
	require.Error(t, err)
	assert.ErrorIs(t, err, strconv.ErrSyntax)
	assert.Contains(t, err.Error(), "TUTOR_N")
}
