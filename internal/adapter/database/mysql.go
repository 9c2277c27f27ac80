package database

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// reserved holds the system databases that are never backed up. The
// match is case-sensitive and exact.
var reserved = map[string]struct{}{
	"information_schema": {},
	"performance_schema": {},
	"mysql":              {},
	"sys":                {},
	"tmp":                {},
}

type MySQL struct {
	host         string
	port         int
	defaultsFile string
}

func NewMySQL(host string, port int, defaultsFile string) *MySQL {
	return &MySQL{host: host, port: port, defaultsFile: defaultsFile}
}

func (m *MySQL) ListDatabases(ctx context.Context) ([]string, error) {
	args := append(m.connArgs(),
		"--batch",
		"--skip-column-names",
		"-e", "SHOW DATABASES",
	)

	cmd := exec.CommandContext(ctx, "mysql", args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("mysql exited with code %d: %s",
				exitErr.ExitCode(), string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("mysql failed to run: %w", err)
	}

	return filterReserved(parseLines(output)), nil
}

func (m *MySQL) Dump(ctx context.Context, name string, outputPath string) error {
	args := append(m.connArgs(),
		"--single-transaction",
		"--quick",
		"--skip-lock-tables",
		"--routines",
		"--triggers",
		"--events",
		fmt.Sprintf("--result-file=%s", outputPath),
		name,
	)

	cmd := exec.CommandContext(ctx, "mysqldump", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("mysqldump exited with code %d: %s",
				exitErr.ExitCode(), string(output))
		}
		return fmt.Errorf("mysqldump failed to run: %w", err)
	}

	return nil
}

// connArgs builds the shared connection arguments. The defaults file
// carries the credentials and must stay first on the command line.
func (m *MySQL) connArgs() []string {
	return []string{
		fmt.Sprintf("--defaults-extra-file=%s", m.defaultsFile),
		fmt.Sprintf("--host=%s", m.host),
		fmt.Sprintf("--port=%d", m.port),
	}
}

func parseLines(output []byte) []string {
	var names []string
	for _, line := range strings.Split(string(output), "\n") {
		name := strings.TrimSpace(line)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func filterReserved(names []string) []string {
	var kept []string
	for _, name := range names {
		if _, ok := reserved[name]; ok {
			continue
		}
		kept = append(kept, name)
	}
	return kept
}
