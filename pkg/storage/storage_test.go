package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirWriteReadAndSweep(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, dir.Write("roster.csv", []byte("a,b\n")))
	data, err := dir.Read("roster.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))

	_, err = dir.Read("missing.csv")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir.base, "roster.csv"), old, old))
	removed, err := dir.Sweep(time.Now(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestDirRejectsTraversal(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)
	for _, name := range []string{"", "../x.csv", "a/b.csv", ".hidden"} {
		assert.ErrorIs(t, dir.Write(name, nil), ErrInvalidName, name)
	}
}

func TestSignerRoundTrip(t *testing.T) {
	s := NewSigner("secret", time.Hour)
	token, expires, err := s.Sign("roster_go-basics.pdf")
	require.NoError(t, err)
	assert.False(t, expires.IsZero())

	name, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "roster_go-basics.pdf", name)

	_, err = NewSigner("other", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = s.Verify(token + "0")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSignerExpiry(t *testing.T) {
	s := NewSigner("secret", time.Minute)
	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	token, _, err := s.Sign("roster.csv")
	require.NoError(t, err)

	fixed = fixed.Add(2 * time.Minute)
	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
