package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.String("rpc", DefaultRPC, "")
	flags.String("addr", ":8080", "")
	flags.Int("concurrency", 4, "")
	return flags
}

func TestLoadServeDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadServe("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultRPC, cfg.RPCURL)
	assert.Equal(t, DefaultRealm, cfg.Realm)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBackoff)
	assert.True(t, cfg.IncludeValidators)
}

func TestLoadServeFlagsAndEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GNOBOUNTY_REALM", "gno.land/r/demo/bounty.")
	t.Setenv("GNOBOUNTY_MAX_RETRIES", "7")

	flags := serveFlags()
	require.NoError(t, flags.Parse([]string{"--addr", ":9090", "--concurrency", "2"}))

	cfg, err := LoadServe("", flags)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, "gno.land/r/demo/bounty", cfg.Realm)
	assert.Equal(t, 7, cfg.MaxRetries)
}

func TestLoadSnapshotFromFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "gnobounty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("out: ./snap\ninterval: 5m\nconcurrency: 8\n"), 0o644))

	cfg, err := LoadSnapshot(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "./snap", cfg.Out)
	assert.Equal(t, 5*time.Minute, cfg.Interval)
	assert.Equal(t, 8, cfg.Concurrency)
}

func TestLoadValidates(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("GNOBOUNTY_CONCURRENCY", "0")
	_, err := LoadServe("", nil)
	assert.Error(t, err)
	t.Setenv("GNOBOUNTY_CONCURRENCY", "4")

	t.Setenv("GNOBOUNTY_MAX_BOUNTIES", "0")
	_, err = LoadServe("", nil)
	assert.ErrorContains(t, err, "max bounties")
	t.Setenv("GNOBOUNTY_MAX_BOUNTIES", "50")

	t.Setenv("GNOBOUNTY_INTERVAL", "-1s")
	_, err = LoadSnapshot("", nil)
	assert.Error(t, err)

	_, err = LoadSnapshot(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

// chdir is a Go 1.21-compatible stand-in for testing.T.Chdir (Go 1.24+):
// it changes the working directory and restores it when the test ends.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
