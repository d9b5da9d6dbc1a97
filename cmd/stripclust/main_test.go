package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LynnColeArt/stripclust"
)

// newRunCmd returns a command carrying the clustering flags with every
// flag variable reset to its default.
func newRunCmd(t *testing.T, args map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "stripclust"}
	addRunFlags(cmd)
	for name, value := range args {
		require.NoError(t, cmd.Flags().Set(name, value))
	}
	return cmd
}

func TestLoadConfigFlags(t *testing.T) {
	log, _ := test.NewNullLogger()

	cfg, err := loadConfig(newRunCmd(t, nil), log)
	require.NoError(t, err)
	assert.Equal(t, stripclust.BackendCPU, cfg.Backend)
	assert.Equal(t, stripclust.DefaultPartitions, cfg.Partitions)
	assert.Same(t, log, cfg.Logger)

	cfg, err = loadConfig(newRunCmd(t, map[string]string{
		"backend":    "stream",
		"partitions": "2",
		"max-strips": "1000",
		"charge":     "gain",
		"verbose":    "true",
	}), log)
	require.NoError(t, err)
	assert.Equal(t, stripclust.BackendStream, cfg.Backend)
	assert.Equal(t, 2, cfg.Partitions)
	assert.Equal(t, 1000, cfg.MaxStrips)
	assert.Equal(t, stripclust.ChargeGain, cfg.Thresholds.Charge)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfigFileAndFlags(t *testing.T) {
	log, _ := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "clust.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: cpu-parallel\npartitions: 3\n"), 0o644))

	cfg, err := loadConfig(newRunCmd(t, map[string]string{"config": path}), log)
	require.NoError(t, err)
	assert.Equal(t, stripclust.BackendCPUParallel, cfg.Backend)
	assert.Equal(t, 3, cfg.Partitions)

	// only flags set on the command line override the file
	cfg, err = loadConfig(newRunCmd(t, map[string]string{"config": path, "partitions": "6"}), log)
	require.NoError(t, err)
	assert.Equal(t, stripclust.BackendCPUParallel, cfg.Backend)
	assert.Equal(t, 6, cfg.Partitions)
}

func TestLoadConfigInvalidFlag(t *testing.T) {
	log, _ := test.NewNullLogger()
	for name, value := range map[string]string{
		"backend":    "fpga",
		"charge":     "calibrated",
		"partitions": "0",
	} {
		_, err := loadConfig(newRunCmd(t, map[string]string{name: value}), log)
		assert.True(t, stripclust.IsConfigError(err), "--%s=%s: got %v", name, value, err)
	}
}

func TestVerifyAgainst(t *testing.T) {
	log, hook := test.NewNullLogger()
	cfg := stripclust.DefaultConfig()
	cfg.Logger = log
	store := stripclust.GenerateStrips(stripclust.DefaultGenerateOptions())

	b, err := stripclust.NewBackend(cfg)
	require.NoError(t, err)
	res, err := b.Run(store)
	require.NoError(t, err)
	require.Positive(t, res.NSeeds())

	require.NoError(t, verifyAgainst(cfg, store, res, log))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "backends agree", entry.Message)
	assert.Equal(t, string(stripclust.BackendStream), entry.Data["against"])

	for _, c := range res.Chunks {
		if c.NSeeds > 0 {
			res.Set.Accepted[c.Begin] = !res.Set.Accepted[c.Begin]
			break
		}
	}
	err = verifyAgainst(cfg, store, res, log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disagree")
}
