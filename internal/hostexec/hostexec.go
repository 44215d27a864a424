// Package hostexec runs host commands for the provisioners and the trial
// loop. Privileged operations (mount, ip, the traced target) go through a
// single Runner so tests can substitute a recording fake.
package hostexec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes a host command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError carries the combined output of a failed command so callers
// can classify failures (e.g. "Cannot find device" on link deletion).
type CommandError struct {
	Cmd    string
	Output []byte
	Err    error
}

func (e *CommandError) Error() string {
	out := strings.TrimSpace(string(e.Output))
	if out == "" {
		return fmt.Sprintf("%s: %v", e.Cmd, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Cmd, e.Err, out)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Local runs commands directly as the current user.
type Local struct{}

func (Local) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, &CommandError{
			Cmd:    name + " " + strings.Join(args, " "),
			Output: bytes.TrimSpace(out),
			Err:    err,
		}
	}
	return out, nil
}

// Sudo elevates every command through a sudo binary. -n keeps a
// misconfigured sudoers entry from hanging the run on a password prompt.
type Sudo struct {
	Binary string
}

func (s Sudo) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	bin := s.Binary
	if bin == "" {
		bin = "sudo"
	}
	return Local{}.Run(ctx, bin, append([]string{"-n", name}, args...)...)
}

// New returns a Runner appropriate for the current user: root runs
// commands directly, everyone else goes through sudo.
func New(sudoBinary string) Runner {
	if os.Geteuid() == 0 {
		return Local{}
	}
	return Sudo{Binary: sudoBinary}
}
