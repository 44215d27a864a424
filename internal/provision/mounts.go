package provision

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/p-arndt/pruefstand/internal/hostexec"
)

// MountProvisioner maintains a base directory of self-bind-mounted
// directories resource-1..N. The exact location of the mounts does not
// matter for the benchmark; they just need to exist in the host mount
// table when the target binary starts.
type MountProvisioner struct {
	runner hostexec.Runner
	logger *slog.Logger
}

func NewMountProvisioner(runner hostexec.Runner, logger *slog.Logger) *MountProvisioner {
	return &MountProvisioner{runner: runner, logger: logger}
}

// Provision tears down whatever is under baseDir and creates n fresh
// bind mounts. Stale entries are unmounted best-effort (they may not
// actually be mounted anymore) but must be removable, otherwise the host
// state cannot be trusted and the run aborts.
func (p *MountProvisioner) Provision(ctx context.Context, baseDir string, n int) error {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", baseDir, err)
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return fmt.Errorf("list %s: %w", baseDir, err)
	}
	for _, entry := range entries {
		path := filepath.Join(baseDir, entry.Name())
		if _, err := p.runner.Run(ctx, "umount", path); err != nil {
			p.logger.Debug("unmount stale entry", "path", path, "error", err)
		}
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("remove stale mount point %s: %w", path, err)
		}
	}

	for i := 1; i <= n; i++ {
		path := filepath.Join(baseDir, MountName(i))
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", path, err)
		}
		if _, err := p.runner.Run(ctx, "mount", "--bind", path, path); err != nil {
			return fmt.Errorf("bind mount %d of %d: %w", i, n, err)
		}
	}

	p.logger.Info("mounts provisioned", "base_dir", baseDir, "count", n)
	return nil
}
