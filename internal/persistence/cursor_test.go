package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SnowDream39/vocamap-backend/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	token := EncodeCursor(&domain.Cursor{AfterID: 42})
	require.NotEmpty(t, token)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), decoded.AfterID)
}

func TestCursorEmptyAndInvalid(t *testing.T) {
	require.Empty(t, EncodeCursor(nil))

	c, err := DecodeCursor("  ")
	require.NoError(t, err)
	require.Nil(t, c)

	_, err = DecodeCursor("!!!")
	require.Error(t, err)

	_, err = DecodeCursor("bm9wZXwx") // "nope|1"
	require.Error(t, err)
}
