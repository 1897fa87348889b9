package secret

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wassette-project/wassette/internal/wasserr"
)

func TestListGetOnMissingFileIsEmptyNotError(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	values, err := s.List("nope")
	require.NoError(t, err)
	require.Empty(t, values)

	_, ok, err := s.Get("nope", "KEY")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetGetRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set("comp", "OPENWEATHER_API_KEY", "abc"))
	v, ok, err := s.Get("comp", "OPENWEATHER_API_KEY")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc", v)
}

func TestSetRejectsBadKeyShape(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	require.Error(t, s.Set("comp", "lower_case", "x"))
	require.Error(t, s.Set("comp", "1STARTSWITHDIGIT", "x"))
}

func TestSetOnUnknownComponentFails(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	s.SetExistenceCheck(func(id string) bool { return false })

	err = s.Set("comp", "KEY", "value")
	require.Error(t, err)
	require.True(t, errors.Is(err, wasserr.Sentinel(wasserr.UnknownComponent)))
}

func TestDeleteAndDeleteAll(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set("comp", "A", "1"))
	require.NoError(t, s.Set("comp", "B", "2"))
	require.NoError(t, s.Delete("comp", "A"))

	values, err := s.List("comp")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"B": "2"}, values)

	require.NoError(t, s.DeleteAll("comp"))
	values, err = s.List("comp")
	require.NoError(t, err)
	require.Empty(t, values)
}

func TestCacheReloadsOnExternalMtimeChange(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("comp", "A", "1"))

	// simulate an external process updating the file
	s2, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s2.Set("comp", "A", "2"))

	v, ok, err := s.Get("comp", "A")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)
}
