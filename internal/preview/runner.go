package preview

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner executes the rasterizer binary. Tests swap in a fake that writes
// the expected PNG.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs pdftoppm on the host, one page per call.
type ExecRunner struct {
	Logger *slog.Logger
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("bin", name, "page", argAfter(args, "-f"), "dpi", argAfter(args, "-r"))

	var out, errb bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &errb

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		attrs := []any{"elapsed_ms", elapsed, "error", err, "stderr", stderrTail(errb.Bytes(), 2<<10)}
		if ctx.Err() != nil {
			attrs = append(attrs, "canceled", true)
		}
		logger.Warn("preview.page.failed", attrs...)
		return out.Bytes(), errb.Bytes(), err
	}
	logger.Debug("preview.page.rendered", "elapsed_ms", elapsed, "warnings", bytes.Count(errb.Bytes(), []byte("\n")))
	return out.Bytes(), errb.Bytes(), nil
}

// argAfter returns the value following flag, or "" when flag is absent.
func argAfter(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

// stderrTail keeps the last max bytes of pdftoppm's stderr, starting on a
// line boundary. The fatal message comes after any per-object warnings.
func stderrTail(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	s = s[len(s)-max:]
	if i := strings.IndexByte(s, '\n'); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	return "..." + s
}
