// Package runner applies modifiers to an external command.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"yqhp/multitest/pkg/logger"
	"yqhp/multitest/pkg/modifier"
)

// CommandWork returns a unit of work that runs argv once. A non-zero exit is
// reported as a LogicFailure carrying the last tail bytes of combined output.
func CommandWork(ctx context.Context, argv []string, tail int, stats *Stats) modifier.Work {
	return func() error {
		start := time.Now()
		err := runCommand(ctx, argv, tail)
		if stats != nil {
			stats.Record(time.Since(start), err)
		}
		return err
	}
}

func runCommand(ctx context.Context, argv []string, tail int) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		return nil
	}

	output := lastBytes(out.Bytes(), tail)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		logger.Debug("command failed",
			zap.Strings("argv", argv),
			zap.Int("exit_code", exitErr.ExitCode()))
		if output == "" {
			return modifier.Logicf("%s: exit status %d", argv[0], exitErr.ExitCode())
		}
		return modifier.Logicf("%s: exit status %d\n%s", argv[0], exitErr.ExitCode(), output)
	}
	return modifier.Logic(fmt.Errorf("start %s: %w", argv[0], err))
}

func lastBytes(b []byte, n int) string {
	if n <= 0 {
		return ""
	}
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return strings.TrimRight(string(b), "\n")
}
