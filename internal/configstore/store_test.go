package configstore_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/guardpost/guardpost/internal/configstore"
	"github.com/guardpost/guardpost/internal/policy"
)

func newStore(t *testing.T) (*configstore.Store, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()

	store, err := configstore.New(fs, configstore.Config{Path: "/var/lib/guardpost/policy.json"})
	require.NoError(t, err)

	return store, fs
}

func sampleConfig() *configstore.PersistedConfig {
	return &configstore.PersistedConfig{
		Services: map[string]policy.State{
			"eventlog": {
				ServiceID: "eventlog",
				Enabled:   true,
				Level:     policy.PermissionReadOnly,
			},
			"filesearch": {
				ServiceID:    "filesearch",
				Enabled:      false,
				Level:        policy.PermissionDisabled,
				AnonymizePII: true,
			},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	saved := sampleConfig()
	require.NoError(t, store.Save(ctx, saved))
	assert.False(t, saved.LastModified.IsZero())

	loaded, err := store.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, configstore.SchemaVersion, loaded.SchemaVersion)
	assert.True(t, cmp.Equal(saved.Services, loaded.Services),
		cmp.Diff(saved.Services, loaded.Services))
}

func TestLoadMissingFile(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, configstore.ErrNotFound)
}

func TestLoadTruncatedFileQuarantines(t *testing.T) {
	store, fs := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleConfig()))

	// Simulate a crash mid-write by truncating the file.
	data, err := afero.ReadFile(fs, store.Path())
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, store.Path(), data[:len(data)/2], 0o600))

	_, err = store.Load(ctx)
	require.ErrorIs(t, err, configstore.ErrCorrupt)

	// Original path is gone, content is recoverable under the aside name.
	exists, err := afero.Exists(fs, store.Path())
	require.NoError(t, err)
	assert.False(t, exists)

	matches, err := afero.Glob(fs, store.Path()+".corrupt-*")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	aside, err := afero.ReadFile(fs, matches[0])
	require.NoError(t, err)
	assert.Equal(t, data[:len(data)/2], aside)
}

func TestLoadRejectsUnknownSchemaVersion(t *testing.T) {
	store, fs := newStore(t)

	raw := `{"schema_version": 99, "services": {}}`
	require.NoError(t, afero.WriteFile(fs, store.Path(), []byte(raw), 0o600))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, configstore.ErrCorrupt)
}

func TestLoadRejectsInvalidPermissionLevel(t *testing.T) {
	store, fs := newStore(t)

	raw := fmt.Sprintf(`{
		"schema_version": %d,
		"services": {
			"eventlog": {"service_id": "eventlog", "enabled": true, "permission_level": "SUPERUSER"}
		}
	}`, configstore.SchemaVersion)
	require.NoError(t, afero.WriteFile(fs, store.Path(), []byte(raw), 0o600))

	_, err := store.Load(context.Background())
	require.ErrorIs(t, err, configstore.ErrCorrupt)
	assert.Contains(t, err.Error(), "invalid permission level")
}

func TestLoadRejectsNonBooleanEnabled(t *testing.T) {
	store, fs := newStore(t)

	raw := fmt.Sprintf(`{
		"schema_version": %d,
		"services": {
			"eventlog": {"service_id": "eventlog", "enabled": "yes", "permission_level": "DISABLED"}
		}
	}`, configstore.SchemaVersion)
	require.NoError(t, afero.WriteFile(fs, store.Path(), []byte(raw), 0o600))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, configstore.ErrCorrupt)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	store, fs := newStore(t)

	require.NoError(t, store.Save(context.Background(), sampleConfig()))

	matches, err := afero.Glob(fs, store.Path()+".tmp-*")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestConcurrentSaves(t *testing.T) {
	store, fs := newStore(t)
	ctx := context.Background()

	var group errgroup.Group
	for i := 0; i < 20; i++ {
		level := policy.PermissionReadOnly
		if i%2 == 0 {
			level = policy.PermissionReadWrite
		}

		group.Go(func() error {
			return store.Save(ctx, &configstore.PersistedConfig{
				Services: map[string]policy.State{
					"eventlog": {ServiceID: "eventlog", Enabled: true, Level: level},
				},
			})
		})
	}

	require.NoError(t, group.Wait())

	// The surviving file is a complete, valid snapshot from one writer.
	data, err := afero.ReadFile(fs, store.Path())
	require.NoError(t, err)

	var config configstore.PersistedConfig
	require.NoError(t, json.Unmarshal(data, &config))
	require.NoError(t, config.Validate())

	matches, err := afero.Glob(fs, store.Path()+".tmp-*")
	require.NoError(t, err)
	assert.Empty(t, matches)
}
