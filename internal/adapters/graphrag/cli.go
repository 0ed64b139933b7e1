// Package graphrag provides the GraphRAG command-line adapter.
// Implements ports.QueryInvoker by running the engine as a subprocess.
package graphrag

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/0xcro3dile/graphrag-web/internal/domain/entities"
)

const waitDelay = 2 * time.Second

// CLIInvoker runs `<executable> <args...> query --root R --method M --query Q`.
type CLIInvoker struct {
	executable string
	baseArgs   []string
	env        []string
	logger     *slog.Logger
}

// NewCLIInvoker creates an invoker. With no executable it runs `python3 -m graphrag`.
func NewCLIInvoker(executable string, baseArgs []string, logger *slog.Logger) *CLIInvoker {
	if executable == "" {
		executable = "python3"
		if baseArgs == nil {
			baseArgs = []string{"-m", "graphrag"}
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIInvoker{
		executable: executable,
		baseArgs:   baseArgs,
		logger:     logger,
	}
}

// WithEnv returns a copy that appends extra KEY=VALUE pairs to the inherited environment.
func (c *CLIInvoker) WithEnv(env ...string) *CLIInvoker {
	cp := *c
	cp.env = append(append([]string(nil), c.env...), env...)
	return &cp
}

// Args builds the argument vector for one query.
func (c *CLIInvoker) Args(datasetPath, question, method string) []string {
	args := make([]string, 0, len(c.baseArgs)+7)
	args = append(args, c.baseArgs...)
	return append(args,
		"query",
		"--root", datasetPath,
		"--method", method,
		"--query", question,
	)
}

// Invoke runs the query and blocks until the engine exits or ctx is done.
func (c *CLIInvoker) Invoke(ctx context.Context, datasetPath, question, method string) (string, error) {
	cmd := exec.CommandContext(ctx, c.executable, c.Args(datasetPath, question, method)...)
	// Grandchildren may hold the output pipes open after a kill.
	cmd.WaitDelay = waitDelay
	if len(c.env) > 0 {
		cmd.Env = append(cmd.Environ(), c.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("running graphrag", "root", datasetPath, "method", method)

	err := cmd.Run()
	if err == nil {
		return strings.TrimSpace(stdout.String()), nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return "", fmt.Errorf("starting graphrag: %w", err)
	}

	perr := &entities.ExternalProcessError{
		ExitCode: exitErr.ExitCode(),
		Stderr:   stderr.String(),
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		perr.Stderr = fmt.Sprintf("graphrag query interrupted: %v\n%s", ctxErr, perr.Stderr)
	}
	return "", perr
}
