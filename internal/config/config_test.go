package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivesync/internal/sync"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
system:
  store_path: /var/lib/drivesync/state.db
  log_level: debug
  log_file: /var/log/drivesync.log
batch:
  batch_size: 25
  retry_attempts: 4
  continue_on_error: true
  base_delay: 250ms
  batch_delay: 2s
pairings:
  - name: photos
    source_root: /data/photos
    target_root: /backup/photos
    mode: bidirectional
    conflict_policy: newer
    schedule: hourly
    filter:
      include: ["**/*.jpg", "**/*.png"]
      exclude: ["**/.thumbs/**"]
      min_size: 1024
  - name: docs
    source_root: /data/docs
    target_root: /backup/docs
    include_subtrees: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/drivesync/state.db", cfg.System.StorePath)
	assert.Equal(t, "debug", cfg.System.LogLevel)
	assert.Equal(t, 25, cfg.Batch.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Batch.BaseDelayDuration)
	assert.Equal(t, 2*time.Second, cfg.Batch.BatchDelayDuration)
	require.Len(t, cfg.Pairings, 2)

	photos, err := cfg.Pairing("photos")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, photos.ScheduleDuration)

	op, err := photos.Operation()
	require.NoError(t, err)
	assert.Equal(t, "photos", op.ID, "the pairing name keys the run history")
	assert.Equal(t, sync.ModeBidirectional, op.Mode)
	assert.Equal(t, sync.PolicyNewer, op.ConflictPolicy)
	assert.True(t, op.IncludeSubtrees)
	require.NotNil(t, op.Filter)
	assert.Equal(t, int64(1024), op.Filter.MinSize)

	docs, err := cfg.Pairing("docs")
	require.NoError(t, err)
	op, err = docs.Operation()
	require.NoError(t, err)
	assert.False(t, op.IncludeSubtrees)
	assert.Nil(t, op.Filter, "an empty filter block means no filtering")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `pairings: []`))
	require.NoError(t, err)

	assert.Equal(t, "drivesync.db", cfg.System.StorePath)
	assert.Equal(t, "info", cfg.System.LogLevel)

	// pairing-level defaults come from the engine config
	path := writeConfig(t, `
pairings:
  - name: minimal
    source_root: /a
    target_root: /b
`)
	cfg, err = Load(path)
	require.NoError(t, err)
	op, err := cfg.Pairings[0].Operation()
	require.NoError(t, err)
	assert.Equal(t, sync.ModeUnidirectional, op.Mode)
	assert.Equal(t, sync.PolicySkip, op.ConflictPolicy)
	assert.Equal(t, sync.PropagateCopyBack, op.Propagate)
	assert.Equal(t, sync.StatusActive, op.Status)
	assert.Zero(t, op.Schedule, "no schedule means manual runs only")
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing file",
			body: "",
			want: "read config",
		},
		{
			name: "bad yaml",
			body: "pairings: [",
			want: "parse config",
		},
		{
			name: "bad base delay",
			body: "batch:\n  base_delay: soon\n",
			want: "base_delay",
		},
		{
			name: "unnamed pairing",
			body: "pairings:\n  - source_root: /a\n    target_root: /b\n",
			want: "without a name",
		},
		{
			name: "duplicate names",
			body: "pairings:\n  - name: x\n    source_root: /a\n    target_root: /b\n  - name: x\n    source_root: /c\n    target_root: /d\n",
			want: "duplicate",
		},
		{
			name: "missing roots",
			body: "pairings:\n  - name: x\n",
			want: "source_root",
		},
		{
			name: "unknown mode",
			body: "pairings:\n  - name: x\n    source_root: /a\n    target_root: /b\n    mode: triangular\n",
			want: "mode",
		},
		{
			name: "unknown conflict policy",
			body: "pairings:\n  - name: x\n    source_root: /a\n    target_root: /b\n    conflict_policy: coinflip\n",
			want: "policy",
		},
		{
			name: "bad schedule",
			body: "pairings:\n  - name: x\n    source_root: /a\n    target_root: /b\n    schedule: sometimes\n",
			want: "x",
		},
		{
			name: "bad include glob",
			body: "pairings:\n  - name: x\n    source_root: /a\n    target_root: /b\n    filter:\n      include: [\"[\"]\n",
			want: "x",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var path string
			if tc.body == "" {
				path = filepath.Join(t.TempDir(), "absent.yaml")
			} else {
				path = writeConfig(t, tc.body)
			}
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestPairingLookup(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
pairings:
  - name: photos
    source_root: /a
    target_root: /b
`))
	require.NoError(t, err)

	_, err = cfg.Pairing("photos")
	assert.NoError(t, err)

	_, err = cfg.Pairing("videos")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "videos")
}
