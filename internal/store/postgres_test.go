package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a disposable database only when TEST_DATABASE_URL is set.
func TestPostgres_RoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	s, err := OpenPostgres(ctx, dsn, "")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ReplaceAll(ctx, sampleRecords()))
	got, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)

	require.NoError(t, s.ReplaceAll(ctx, nil))
	got, err = s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
