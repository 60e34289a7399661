package xfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardpost/guardpost/internal/pkg/xfile"
)

func TestResolveUnder(t *testing.T) {
	base := t.TempDir()

	t.Run("path inside base", func(t *testing.T) {
		resolved, err := xfile.ResolveUnder(base, filepath.Join(base, "policy.json"))
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(resolved))
	})

	t.Run("non-existing nested path inside base", func(t *testing.T) {
		_, err := xfile.ResolveUnder(base, filepath.Join(base, "sub", "dir", "policy.json"))
		require.NoError(t, err)
	})

	t.Run("dot-dot traversal rejected", func(t *testing.T) {
		_, err := xfile.ResolveUnder(base, filepath.Join(base, "..", "outside.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "escapes base directory")
	})

	t.Run("sibling with base prefix rejected", func(t *testing.T) {
		_, err := xfile.ResolveUnder(base, base+"-evil/policy.json")
		require.Error(t, err)
	})

	t.Run("symlink escape rejected", func(t *testing.T) {
		outside := t.TempDir()
		link := filepath.Join(base, "link")
		require.NoError(t, os.Symlink(outside, link))

		_, err := xfile.ResolveUnder(base, filepath.Join(link, "policy.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "escapes base directory")
	})

	t.Run("symlink inside base allowed", func(t *testing.T) {
		target := filepath.Join(base, "real")
		require.NoError(t, os.MkdirAll(target, 0o750))

		link := filepath.Join(base, "alias")
		require.NoError(t, os.Symlink(target, link))

		resolved, err := xfile.ResolveUnder(base, filepath.Join(link, "policy.json"))
		require.NoError(t, err)
		assert.Contains(t, resolved, "real")
	})

	t.Run("missing base rejected", func(t *testing.T) {
		_, err := xfile.ResolveUnder(filepath.Join(base, "nope"), filepath.Join(base, "nope", "x"))
		require.Error(t, err)
	})
}
