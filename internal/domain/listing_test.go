package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]Status{
		"new":       StatusNew,
		"Updated":   StatusUpdated,
		" CLOSED ":  StatusClosed,
		"unchanged": StatusUnchanged,
	} {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseStatus("")
	assert.Error(t, err)
	_, err = ParseStatus("archived")
	assert.Error(t, err)
}

func TestOptionalInt(t *testing.T) {
	assert.Equal(t, "", FormatInt(nil))
	assert.Equal(t, "31000", FormatInt(IntPtr(31000)))

	v, err := ParseOptionalInt("")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ParseOptionalInt(" 45000 ")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 45000, *v)

	_, err = ParseOptionalInt("45k")
	assert.Error(t, err)
}
