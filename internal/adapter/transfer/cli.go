// Package transfer drives the external bucket transfer client. The sync
// engine (threading, retries, keep-days retention) lives entirely in
// that tool; this adapter only builds the invocation and interprets the
// exit status.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/semmidev/argus/internal/domain"
)

type CLI struct {
	binary string
	env    []string
}

// NewCLI prepares an invocation wrapper. Credentials travel to the tool
// through its environment, never on the command line.
func NewCLI(binary string, creds domain.CredentialBundle) *CLI {
	return &CLI{
		binary: binary,
		env: []string{
			"B2_APPLICATION_KEY_ID=" + creds.AccessKeyID,
			"B2_APPLICATION_KEY=" + creds.AccessSecret,
		},
	}
}

// Sync mirrors spec.Source to spec.Destination. Remote files missing
// from the source are hidden rather than deleted, and hidden revisions
// older than KeepDays are pruned by the tool itself.
func (c *CLI) Sync(ctx context.Context, spec domain.SyncSpec) error {
	args := []string{
		"sync",
		"--noProgress",
		fmt.Sprintf("--threads=%d", spec.Threads),
		"--excludeAllSymlinks",
		"--replaceNewer",
		fmt.Sprintf("--keepDays=%d", spec.KeepDays),
		spec.Source,
		spec.Destination,
	}

	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Env = append(os.Environ(), c.env...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s sync exited with code %d: %s",
				c.binary, exitErr.ExitCode(), string(output))
		}
		return fmt.Errorf("%s sync failed to run: %w", c.binary, err)
	}

	return nil
}
