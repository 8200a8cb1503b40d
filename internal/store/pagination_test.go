package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	original := Cursor{
		CreatedAt: time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC),
		ID:        42,
	}

	decoded, err := DecodeCursor(EncodeCursor(original))
	require.NoError(t, err)
	assert.True(t, decoded.CreatedAt.Equal(original.CreatedAt))
	assert.Equal(t, original.ID, decoded.ID)
}

func TestDecodeCursorEmpty(t *testing.T) {
	cursor, err := DecodeCursor("")
	require.NoError(t, err)

	// The zero cursor starts at the newest possible position.
	assert.Equal(t, int64(1<<63-1), cursor.ID)
	assert.False(t, cursor.CreatedAt.IsZero())
}

func TestDecodeCursorGarbage(t *testing.T) {
	_, err := DecodeCursor("not base64!!")
	assert.Error(t, err)

	_, err = DecodeCursor("bm90IGpzb24=")
	assert.Error(t, err)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, totalPages(0, 20))
	assert.Equal(t, 1, totalPages(1, 20))
	assert.Equal(t, 1, totalPages(20, 20))
	assert.Equal(t, 2, totalPages(21, 20))
	assert.Equal(t, 5, totalPages(100, 20))
}
