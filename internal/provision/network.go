package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-arndt/pruefstand/internal/hostexec"
)

// ErrLinkNotFound reports that a link deletion targeted a device that does
// not exist. Teardown swallows it; everything else is surfaced.
var ErrLinkNotFound = errors.New("link not found")

// NetworkProvisioner maintains tap devices tap0..tapN with addresses in
// 172.16.0.0/24, the subnet the guest side of the benchmark expects.
type NetworkProvisioner struct {
	runner      hostexec.Runner
	settleDelay time.Duration
	logger      *slog.Logger
}

func NewNetworkProvisioner(runner hostexec.Runner, settleDelay time.Duration, logger *slog.Logger) *NetworkProvisioner {
	return &NetworkProvisioner{runner: runner, settleDelay: settleDelay, logger: logger}
}

// Provision deletes tap0..tapCount best-effort, then creates, addresses
// and activates each one. A device that was already absent is fine; any
// creation failure aborts the run because a missing interface would
// invalidate the benchmark.
func (p *NetworkProvisioner) Provision(ctx context.Context, tapCount int) error {
	for i := 0; i <= tapCount; i++ {
		name := TapName(i)
		if err := p.deleteLink(ctx, name); err != nil {
			if errors.Is(err, ErrLinkNotFound) {
				continue
			}
			p.logger.Warn("delete tap device", "device", name, "error", err)
		}
	}

	for i := 0; i <= tapCount; i++ {
		name := TapName(i)
		if _, err := p.runner.Run(ctx, "ip", "tuntap", "add", name, "mode", "tap"); err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		// udev needs a moment between tuntap operations on some hosts.
		time.Sleep(p.settleDelay)
		if _, err := p.runner.Run(ctx, "ip", "addr", "add", TapAddr(i), "dev", name); err != nil {
			return fmt.Errorf("assign %s to %s: %w", TapAddr(i), name, err)
		}
		if _, err := p.runner.Run(ctx, "ip", "link", "set", name, "up"); err != nil {
			return fmt.Errorf("bring up %s: %w", name, err)
		}
	}

	p.logger.Info("tap devices provisioned", "count", tapCount+1)
	return nil
}

func (p *NetworkProvisioner) deleteLink(ctx context.Context, name string) error {
	out, err := p.runner.Run(ctx, "ip", "link", "del", name)
	if err == nil {
		return nil
	}
	if bytes.Contains(out, []byte("Cannot find device")) {
		return fmt.Errorf("%s: %w", name, ErrLinkNotFound)
	}
	return err
}
