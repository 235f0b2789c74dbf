package auth_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"woosh/internal/auth"
)

func TestTokenFileStore_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	s := auth.NewTokenFileStore(dir)

	_, err := s.Token()
	require.ErrorIs(t, err, auth.ErrNotLoggedIn)

	require.NoError(t, s.SaveToken("  abc.def.ghi \n"))
	tok, err := s.Token()
	require.NoError(t, err)
	require.Equal(t, "abc.def.ghi", tok)

	fi, err := os.Stat(filepath.Join(dir, "token"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	require.NoError(t, s.ClearToken())
	require.NoError(t, s.ClearToken())
	_, err = s.Token()
	require.ErrorIs(t, err, auth.ErrNotLoggedIn)

	require.Error(t, s.SaveToken(" "))
}

func TestMemoryTokenStore(t *testing.T) {
	m := auth.NewMemoryTokenStore("t1")
	tok, err := m.Token()
	require.NoError(t, err)
	require.Equal(t, "t1", tok)
	require.NoError(t, m.ClearToken())
	_, err = m.Token()
	require.ErrorIs(t, err, auth.ErrNotLoggedIn)
}
