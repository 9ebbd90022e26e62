// Package cast runs Foundry's cast binary.
package cast

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Runner struct {
	path   string
	logger *zap.Logger
}

func getCmdPath(cmd string) (string, error) {
	return exec.LookPath(cmd)
}

// NewRunner resolves the cast binary up front so a missing install is a
// configuration problem rather than a failure halfway through a run.
func NewRunner(path string, l *zap.Logger) (*Runner, error) {
	resolved, err := getCmdPath(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cast binary '%s' not found", path)
	}
	return &Runner{
		path:   resolved,
		logger: l,
	}, nil
}

func (r *Runner) Path() string {
	return r.path
}

// Run executes cast with args and returns trimmed stdout. A non-zero exit is
// returned as an error carrying cast's stderr.
func (r *Runner) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Sugar().Debugw("Running cast", zap.Strings("args", args))

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		r.logger.Sugar().Errorw("cast failed",
			zap.Error(err),
			zap.Strings("args", args),
			zap.String("stderr", msg),
		)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", errors.Wrap(ctxErr, "cast interrupted")
		}
		if msg != "" {
			return "", errors.Errorf("cast %s: %s", args[0], msg)
		}
		return "", errors.Wrapf(err, "cast %s", args[0])
	}
	return strings.TrimSpace(stdout.String()), nil
}
