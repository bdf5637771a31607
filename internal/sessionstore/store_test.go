package sessionstore

import (
	"context"
	"path/filepath"
	"punchsync/internal/components/chrono"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func TestOnce(t *testing.T) {
	ctx := context.Background()
	c := &fakeClock{now: time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)}

	store, err := Open(ctx, "", c)
	require.NoError(t, err)
	defer store.Close()

	first, err := store.Once(ctx, "a", "install_notice_shown", time.Hour)
	require.NoError(t, err)
	require.True(t, first)

	again, err := store.Once(ctx, "a", "install_notice_shown", time.Hour)
	require.NoError(t, err)
	require.False(t, again)

	other, err := store.Once(ctx, "b", "install_notice_shown", time.Hour)
	require.NoError(t, err)
	require.True(t, other)

	c.now = c.now.Add(time.Hour)
	expired, err := store.Once(ctx, "a", "install_notice_shown", time.Hour)
	require.NoError(t, err)
	require.True(t, expired)
}

func TestOpenFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "punchsync.db")

	store, err := Open(ctx, path, chrono.NewStandardTime())
	require.NoError(t, err)
	first, err := store.Once(ctx, "a", "flag", time.Hour)
	require.NoError(t, err)
	require.True(t, first)
	require.NoError(t, store.Close())

	// flags survive a restart of the process
	store, err = Open(ctx, path, chrono.NewStandardTime())
	require.NoError(t, err)
	defer store.Close()
	again, err := store.Once(ctx, "a", "flag", time.Hour)
	require.NoError(t, err)
	require.False(t, again)
}

func TestSessionID(t *testing.T) {
	a := SessionID("https://hrms.example/attendance", "session=1")
	require.Equal(t, a, SessionID("https://hrms.example/home", "session=1"))
	require.NotEqual(t, a, SessionID("https://hrms.example/home", "session=2"))
	require.NotEqual(t, a, SessionID("https://other.example/attendance", "session=1"))
	require.Len(t, a, 64)
}
