package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/pilab-dev/twitched-link/cache"
	"github.com/pilab-dev/twitched-link/config"
	"github.com/pilab-dev/twitched-link/domain"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/pilab-dev/twitched-link/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nopCloser keeps the shared memory store open across commands.
type nopCloser struct {
	store.KeyStore
}

func (nopCloser) Close() error { return nil }

func withStore(t *testing.T) store.KeyStore {
	t.Helper()
	chdir(t, t.TempDir())
	t.Setenv("TWITCHED_STORE_TYPE", "memory")

	kv := store.NewMemoryStore()
	t.Cleanup(func() { _ = kv.Close() })

	orig := openStore
	openStore = func(context.Context, *config.Config, log.Logger) (store.KeyStore, error) {
		return nopCloser{kv}, nil
	}
	t.Cleanup(func() { openStore = orig })
	return kv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCodeIssueCheckAndStatus(t *testing.T) {
	withStore(t)

	out, err := run(t, "code", "issue", "--id", "device-1", "--version", "1")
	require.NoError(t, err)
	code := string(bytes.TrimSpace([]byte(out)))
	require.Len(t, code, 6)

	out, err = run(t, "code", "check", code)
	require.NoError(t, err)
	assert.Contains(t, out, "valid, device roku/device-1, protocol v1")

	out, err = run(t, "code", "check", "ZZZZZZ")
	require.NoError(t, err)
	assert.Contains(t, out, "ZZZZZZ: invalid")

	out, err = run(t, "status", "--id", "device-1")
	require.NoError(t, err)
	assert.Contains(t, out, "status:   pending")

	_, err = run(t, "status", "--id", "unknown")
	assert.Error(t, err)
}

func TestFollowsAndNames(t *testing.T) {
	kv := withStore(t)
	ctx := context.Background()

	cache.NewFollowCache(kv, log.NewNop()).ReplaceFollows(ctx, "S", []string{"2", "1"}, domain.FollowChannel)
	cache.NewNameCache(kv, log.NewNop()).SetNames(ctx, map[string]string{"7": "Chess"}, domain.EntityGame)

	out, err := run(t, "follows", "S")
	require.NoError(t, err)
	assert.Contains(t, out, "channel follows (2):\n  1\n  2\n")
	assert.NotContains(t, out, "never")

	out, err = run(t, "follows", "S", "--kind", "game")
	require.NoError(t, err)
	assert.Contains(t, out, "refreshed: never")

	out, err = run(t, "names", "game", "7", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "7\tChess")
	assert.Contains(t, out, "8\t<not cached>")

	_, err = run(t, "names", "planet", "1")
	assert.Error(t, err)
}
