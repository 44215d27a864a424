package provision

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-arndt/pruefstand/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestMountProvisionCreatesMountPoints(t *testing.T) {
	base := filepath.Join(t.TempDir(), "mounts")
	runner := &testutil.FakeRunner{}
	p := NewMountProvisioner(runner, discardLogger())

	require.NoError(t, p.Provision(context.Background(), base, 3))

	assert.ElementsMatch(t, []string{"resource-1", "resource-2", "resource-3"}, listDir(t, base))
	assert.Equal(t, []string{
		"mount --bind " + filepath.Join(base, "resource-1") + " " + filepath.Join(base, "resource-1"),
		"mount --bind " + filepath.Join(base, "resource-2") + " " + filepath.Join(base, "resource-2"),
		"mount --bind " + filepath.Join(base, "resource-3") + " " + filepath.Join(base, "resource-3"),
	}, runner.CommandLines())
}

func TestMountProvisionZero(t *testing.T) {
	base := filepath.Join(t.TempDir(), "mounts")
	runner := &testutil.FakeRunner{}
	p := NewMountProvisioner(runner, discardLogger())

	require.NoError(t, p.Provision(context.Background(), base, 0))

	assert.Empty(t, listDir(t, base))
	assert.Empty(t, runner.Calls)
}

func TestMountProvisionRemovesStaleEntries(t *testing.T) {
	base := filepath.Join(t.TempDir(), "mounts")
	stale := filepath.Join(base, "mount-7")
	require.NoError(t, os.MkdirAll(stale, 0o755))

	runner := &testutil.FakeRunner{}
	p := NewMountProvisioner(runner, discardLogger())

	require.NoError(t, p.Provision(context.Background(), base, 3))

	assert.NoDirExists(t, stale)
	assert.ElementsMatch(t, []string{"resource-1", "resource-2", "resource-3"}, listDir(t, base))
	assert.Contains(t, runner.CommandLines(), "umount "+stale)
}

func TestMountProvisionIdempotent(t *testing.T) {
	base := filepath.Join(t.TempDir(), "mounts")
	runner := &testutil.FakeRunner{}
	p := NewMountProvisioner(runner, discardLogger())

	require.NoError(t, p.Provision(context.Background(), base, 3))
	require.NoError(t, p.Provision(context.Background(), base, 3))

	// Same final set, and the second pass unmounted every entry the
	// first pass created before recreating it.
	assert.ElementsMatch(t, []string{"resource-1", "resource-2", "resource-3"}, listDir(t, base))
	lines := runner.CommandLines()
	for i := 1; i <= 3; i++ {
		assert.Contains(t, lines, "umount "+filepath.Join(base, MountName(i)))
	}
}

func TestMountProvisionToleratesUnmountFailure(t *testing.T) {
	base := filepath.Join(t.TempDir(), "mounts")
	require.NoError(t, os.MkdirAll(filepath.Join(base, "resource-1"), 0o755))

	runner := &testutil.FakeRunner{
		Handler: func(name string, args ...string) ([]byte, error) {
			if name == "umount" {
				return []byte("umount: not mounted"), errors.New("exit status 32")
			}
			return []byte{}, nil
		},
	}
	p := NewMountProvisioner(runner, discardLogger())

	require.NoError(t, p.Provision(context.Background(), base, 2))
	assert.ElementsMatch(t, []string{"resource-1", "resource-2"}, listDir(t, base))
}

func TestMountProvisionMountFailureFatal(t *testing.T) {
	base := filepath.Join(t.TempDir(), "mounts")
	runner := &testutil.FakeRunner{
		Handler: func(name string, args ...string) ([]byte, error) {
			if name == "mount" {
				return []byte("mount: permission denied"), errors.New("exit status 1")
			}
			return []byte{}, nil
		},
	}
	p := NewMountProvisioner(runner, discardLogger())

	err := p.Provision(context.Background(), base, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind mount 1 of 3")
}
