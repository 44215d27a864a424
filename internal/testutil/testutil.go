package testutil

import (
	"context"
	"testing"

	"github.com/p-arndt/pruefstand/internal/config"
	"github.com/p-arndt/pruefstand/internal/journal"
)

// TestConfig returns a Config with sensible test defaults. Paths point
// below t.TempDir so tests never touch real host directories.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	tmp := t.TempDir()
	return &config.Config{
		ResultDir:   tmp + "/results",
		TrialCount:  5,
		Tracer:      "strace",
		SudoBinary:  "sudo",
		JournalPath: ":memory:",
		Mounts: config.MountsConfig{
			BaseDir: tmp + "/mounts",
			Count:   3,
		},
		Network: config.NetworkConfig{
			TapCount:      2,
			SettleDelayMs: 0,
		},
		Target: config.TargetConfig{
			Binary:        "/bin/true",
			ID:            "bench0",
			ExecFile:      "/usr/bin/true",
			UID:           123,
			GID:           100,
			ChrootBaseDir: tmp + "/chroot",
		},
	}
}

// NewTestJournal creates an in-memory SQLite journal for testing.
func NewTestJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

// FakeRunner records every command it is asked to run. Handler, when set,
// decides the output and error per call; the default is empty output and
// success.
type FakeRunner struct {
	Calls   [][]string
	Handler func(name string, args ...string) ([]byte, error)
}

func (f *FakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.Calls = append(f.Calls, append([]string{name}, args...))
	if f.Handler != nil {
		return f.Handler(name, args...)
	}
	return []byte{}, nil
}

// CommandLines renders recorded calls as space-joined strings for easy
// assertions.
func (f *FakeRunner) CommandLines() []string {
	out := make([]string, 0, len(f.Calls))
	for _, call := range f.Calls {
		line := call[0]
		for _, arg := range call[1:] {
			line += " " + arg
		}
		out = append(out, line)
	}
	return out
}
