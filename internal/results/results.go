// Package results owns the result directory of a benchmark run: one
// metadata file labeling the environment plus one tracer report per trial.
package results

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"golang.org/x/sys/unix"
)

// InstanceFile is the fixed name of the environment metadata file inside
// the result directory.
const InstanceFile = "instance"

// MetadataClient is the slice of the EC2 instance metadata client the
// collector needs. Satisfied by *imds.Client.
type MetadataClient interface {
	GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error)
}

type Collector struct {
	metadata MetadataClient
	logger   *slog.Logger
}

func NewCollector(metadata MetadataClient, logger *slog.Logger) *Collector {
	return &Collector{metadata: metadata, logger: logger}
}

// Prepare replaces resultDir wholesale. Stale artifacts from an earlier
// run must never be mistaken for fresh samples.
func (c *Collector) Prepare(resultDir string) error {
	if err := os.RemoveAll(resultDir); err != nil {
		return fmt.Errorf("clear result dir %s: %w", resultDir, err)
	}
	if err := os.MkdirAll(resultDir, 0o755); err != nil {
		return fmt.Errorf("create result dir %s: %w", resultDir, err)
	}
	return nil
}

// RecordEnvironment writes "<instance-class>/<kernel-version>" to the
// instance file and returns the label. The metadata service is auxiliary:
// if it cannot be reached the instance class degrades to "unknown" and
// the run proceeds. Only a write failure is fatal, since that means the
// result directory is not usable as a sink.
func (c *Collector) RecordEnvironment(ctx context.Context, resultDir string) (string, error) {
	label := c.instanceClass(ctx) + "/" + kernelRelease()
	path := filepath.Join(resultDir, InstanceFile)
	if err := os.WriteFile(path, []byte(label+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return label, nil
}

func (c *Collector) instanceClass(ctx context.Context) string {
	if c.metadata == nil {
		return "unknown"
	}
	out, err := c.metadata.GetMetadata(ctx, &imds.GetMetadataInput{Path: "instance-type"})
	if err != nil {
		c.logger.Warn("instance metadata unavailable", "error", err)
		return "unknown"
	}
	defer out.Content.Close()
	data, err := io.ReadAll(out.Content)
	if err != nil {
		c.logger.Warn("read instance metadata", "error", err)
		return "unknown"
	}
	return strings.TrimSpace(string(data))
}

func kernelRelease() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "unknown"
	}
	return unix.ByteSliceToString(uts.Release[:])
}
