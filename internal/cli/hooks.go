package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/snackpack/pkg/observability"
)

// logHooks reports registry traffic and lock waits at debug level.
type logHooks struct {
	observability.NoopHTTPHooks
	logger *log.Logger
}

func (h *logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("registry", "method", method, "host", host, "path", path, "status", status, "duration", d)
}

func (h *logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("registry request failed", "method", method, "host", host, "path", path, "err", err)
}

func (h *logHooks) OnLockAcquired(_ context.Context, key string, waited time.Duration) {
	if waited > time.Second {
		h.logger.Info("waited for concurrent build", "key", key, "waited", waited.Round(time.Millisecond))
		return
	}
	h.logger.Debug("lock acquired", "key", key)
}

func (h *logHooks) OnLockTimeout(_ context.Context, key string, waited time.Duration) {
	h.logger.Warn("lock wait timed out, building anyway", "key", key, "waited", waited.Round(time.Millisecond))
}

// progressHooks prints one status line per finished platform build.
// Builds finish on worker goroutines, so printing is serialized.
type progressHooks struct {
	observability.NoopPipelineHooks
	mu sync.Mutex
}

func (h *progressHooks) OnPlatformBuildComplete(_ context.Context, pkg, platform string, size int, d time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		printError("%-8s %s", platform, StyleDim.Render("failed"))
		return
	}
	printSuccess("%-8s %s %s", platform, StyleValue.Render(formatBytes(size)), StyleDim.Render(fmt.Sprintf("(%s)", d.Round(time.Millisecond))))
}

func formatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
