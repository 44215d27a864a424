// Package main provides the CLI entry point for pruefstand, a harness
// that measures per-invocation syscall overhead of a sandboxing launcher
// binary under controlled host conditions.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/spf13/cobra"

	"github.com/p-arndt/pruefstand/internal/config"
	"github.com/p-arndt/pruefstand/internal/harness"
	"github.com/p-arndt/pruefstand/internal/hostexec"
	"github.com/p-arndt/pruefstand/internal/journal"
	"github.com/p-arndt/pruefstand/internal/provision"
	"github.com/p-arndt/pruefstand/internal/results"
	"github.com/p-arndt/pruefstand/internal/trial"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		logger.Error("pruefstand failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "pruefstand",
		Short: "Syscall-overhead benchmark harness for sandboxing launchers",
		Long: `Pruefstand provisions reproducible host conditions (bind mounts, tap
devices), runs a sandboxing launcher binary repeatedly under a syscall
tracer with elevated privilege, and collects one tracer report per trial
into a result directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to pruefstand.yaml")

	root.AddCommand(newProvisionMountsCmd(logger, &cfgPath))
	root.AddCommand(newProvisionNetworkCmd(logger, &cfgPath))
	root.AddCommand(newRunBenchmarkCmd(logger, &cfgPath))

	return root
}

func newProvisionMountsCmd(logger *slog.Logger, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "provision-mounts <baseDir> [count]",
		Short: "Tear down and recreate the bind-mount set under a base directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			count := cfg.Mounts.Count
			if len(args) == 2 {
				count, err = strconv.Atoi(args[1])
				if err != nil || count < 0 {
					return fmt.Errorf("invalid mount count %q", args[1])
				}
			}
			runner := hostexec.New(cfg.SudoBinary)
			p := provision.NewMountProvisioner(runner, logger)
			return p.Provision(cmd.Context(), args[0], count)
		},
	}
}

func newProvisionNetworkCmd(logger *slog.Logger, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "provision-network [tapCount]",
		Short: "Tear down and recreate tap devices tap0..tapN",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			tapCount := cfg.Network.TapCount
			if len(args) == 1 {
				tapCount, err = strconv.Atoi(args[0])
				if err != nil || tapCount < 0 {
					return fmt.Errorf("invalid tap count %q", args[0])
				}
			}
			runner := hostexec.New(cfg.SudoBinary)
			p := provision.NewNetworkProvisioner(runner, cfg.Network.SettleDelay(), logger)
			return p.Provision(cmd.Context(), tapCount)
		},
	}
}

func newRunBenchmarkCmd(logger *slog.Logger, cfgPath *string) *cobra.Command {
	var (
		trials     int
		mounts     bool
		network    bool
		noMetadata bool
	)

	cmd := &cobra.Command{
		Use:   "run-benchmark <targetBinary> <resultDir>",
		Short: "Run the trial loop against a launcher binary",
		Long: `Provisions host resources for the selected benchmark mode, replaces the
result directory, records an environment label, then traces the target
binary once per trial. Per-trial failures are reported but do not abort
the run; only setup failures yield a non-zero exit.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if trials <= 0 {
				trials = cfg.TrialCount
			}

			runner := hostexec.New(cfg.SudoBinary)

			var metadata results.MetadataClient
			if !noMetadata {
				metadata = imds.New(imds.Options{})
			}
			collector := results.NewCollector(metadata, logger)

			jnl, err := journal.Open(cfg.JournalPath)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer jnl.Close()

			h := harness.New(
				cfg,
				provision.NewMountProvisioner(runner, logger),
				provision.NewNetworkProvisioner(runner, cfg.Network.SettleDelay(), logger),
				collector,
				trial.NewRunner(runner, cfg.Tracer, jnl, logger),
				jnl,
				logger,
			)

			sum, err := h.Run(cmd.Context(), harness.RunOptions{
				TargetBinary:     args[0],
				ResultDir:        args[1],
				TrialCount:       trials,
				ProvisionMounts:  mounts,
				ProvisionNetwork: network,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "%d/%d trials completed\n", sum.Completed, trials)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&trials, "trials", 0,
		"Number of trials (default 100, or trial_count from config)")
	flags.BoolVar(&mounts, "mounts", true,
		"Provision bind mounts before the run")
	flags.BoolVar(&network, "network", false,
		"Provision tap devices before the run")
	flags.BoolVar(&noMetadata, "no-metadata", false,
		"Skip the instance metadata lookup (label becomes unknown/<kernel>)")

	return cmd
}
