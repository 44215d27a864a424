package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type MountsConfig struct {
	BaseDir string `yaml:"base_dir"`
	Count   int    `yaml:"count"`
}

type NetworkConfig struct {
	TapCount      int `yaml:"tap_count"`
	SettleDelayMs int `yaml:"settle_delay_ms"`
}

// SettleDelay is the pause between tuntap operations. Some hosts need a
// moment for the device manager to catch up; tunable, not a correctness
// requirement.
func (n NetworkConfig) SettleDelay() time.Duration {
	return time.Duration(n.SettleDelayMs) * time.Millisecond
}

// TargetConfig describes the launcher binary under test and the fixed
// argument set it is invoked with on every trial.
type TargetConfig struct {
	Binary        string `yaml:"binary"`
	ID            string `yaml:"id"`
	ExecFile      string `yaml:"exec_file"`
	UID           int    `yaml:"uid"`
	GID           int    `yaml:"gid"`
	ChrootBaseDir string `yaml:"chroot_base_dir"`
}

// FixedArgs returns the argument list passed to the target binary. These
// are constants for a benchmark configuration, never varied per trial.
func (t TargetConfig) FixedArgs() []string {
	return []string{
		"--id", t.ID,
		"--exec-file", t.ExecFile,
		"--uid", strconv.Itoa(t.UID),
		"--gid", strconv.Itoa(t.GID),
		"--chroot-base-dir", t.ChrootBaseDir,
	}
}

type Config struct {
	ResultDir   string        `yaml:"result_dir"`
	TrialCount  int           `yaml:"trial_count"`
	Tracer      string        `yaml:"tracer"`
	SudoBinary  string        `yaml:"sudo_binary"`
	JournalPath string        `yaml:"journal_path"`
	Mounts      MountsConfig  `yaml:"mounts"`
	Network     NetworkConfig `yaml:"network"`
	Target      TargetConfig  `yaml:"target"`
}

func Load(yamlPath string) (*Config, error) {
	cfg := &Config{
		ResultDir:   "./results",
		TrialCount:  100,
		Tracer:      "strace",
		SudoBinary:  "sudo",
		JournalPath: "./pruefstand.db",
		Mounts: MountsConfig{
			BaseDir: "/srv/pruefstand/mounts",
			Count:   100,
		},
		Network: NetworkConfig{
			TapCount:      10,
			SettleDelayMs: 100,
		},
		Target: TargetConfig{
			ID:            "bench0",
			UID:           123,
			GID:           100,
			ChrootBaseDir: "/srv/jailer",
		},
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PRUEFSTAND_RESULT_DIR"); v != "" {
		cfg.ResultDir = v
	}
	if v := os.Getenv("PRUEFSTAND_TRIAL_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TrialCount = n
		}
	}
	if v := os.Getenv("PRUEFSTAND_TRACER"); v != "" {
		cfg.Tracer = v
	}
	if v := os.Getenv("PRUEFSTAND_SUDO_BINARY"); v != "" {
		cfg.SudoBinary = v
	}
	if v := os.Getenv("PRUEFSTAND_JOURNAL_PATH"); v != "" {
		cfg.JournalPath = v
	}
	if v := os.Getenv("PRUEFSTAND_MOUNT_BASE_DIR"); v != "" {
		cfg.Mounts.BaseDir = v
	}
	if v := os.Getenv("PRUEFSTAND_MOUNT_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Mounts.Count = n
		}
	}
	if v := os.Getenv("PRUEFSTAND_TAP_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Network.TapCount = n
		}
	}
	if v := os.Getenv("PRUEFSTAND_SETTLE_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Network.SettleDelayMs = n
		}
	}
	if v := os.Getenv("PRUEFSTAND_TARGET_BINARY"); v != "" {
		cfg.Target.Binary = v
	}
	if v := os.Getenv("PRUEFSTAND_TARGET_ID"); v != "" {
		cfg.Target.ID = v
	}
	if v := os.Getenv("PRUEFSTAND_TARGET_EXEC_FILE"); v != "" {
		cfg.Target.ExecFile = v
	}
	if v := os.Getenv("PRUEFSTAND_TARGET_UID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Target.UID = n
		}
	}
	if v := os.Getenv("PRUEFSTAND_TARGET_GID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Target.GID = n
		}
	}
	if v := os.Getenv("PRUEFSTAND_CHROOT_BASE_DIR"); v != "" {
		cfg.Target.ChrootBaseDir = v
	}
}
