package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNewLoggerFiltersByLevel(t *testing.T) {
	tests := []struct {
		level   log.Level
		emit    func(*log.Logger)
		wantOut bool
	}{
		{log.InfoLevel, func(l *log.Logger) { l.Info("resolved") }, true},
		{log.InfoLevel, func(l *log.Logger) { l.Debug("registry") }, false},
		{log.DebugLevel, func(l *log.Logger) { l.Debug("registry") }, true},
		{log.WarnLevel, func(l *log.Logger) { l.Info("resolved") }, false},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		tt.emit(newLogger(&buf, tt.level))
		if got := buf.Len() > 0; got != tt.wantOut {
			t.Errorf("level %s: wrote output = %v, want %v", tt.level, got, tt.wantOut)
		}
	}
}

func TestProgressReportsElapsed(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	time.Sleep(5 * time.Millisecond)
	prog.done("Bundled my-lib@1.0.0")

	out := buf.String()
	if !strings.Contains(out, "Bundled my-lib@1.0.0 (") || !strings.Contains(out, "ms)") {
		t.Errorf("progress output = %q", out)
	}
}

func TestLogHooks(t *testing.T) {
	ctx := context.Background()

	t.Run("registry traffic is debug only", func(t *testing.T) {
		var buf bytes.Buffer
		h := &logHooks{logger: newLogger(&buf, log.InfoLevel)}
		h.OnResponse(ctx, "GET", "registry.npmjs.org", "/lodash", 200, time.Millisecond)
		h.OnError(ctx, "GET", "registry.npmjs.org", "/lodash", errors.New("reset"))
		if buf.Len() != 0 {
			t.Errorf("info logger printed registry traffic: %q", buf.String())
		}

		h.logger.SetLevel(log.DebugLevel)
		h.OnResponse(ctx, "GET", "registry.npmjs.org", "/lodash", 200, time.Millisecond)
		if !strings.Contains(buf.String(), "/lodash") {
			t.Errorf("debug output = %q", buf.String())
		}
	})

	t.Run("long lock waits are surfaced", func(t *testing.T) {
		var buf bytes.Buffer
		h := &logHooks{logger: newLogger(&buf, log.InfoLevel)}
		h.OnLockAcquired(ctx, "my-lib@1.0.0", 10*time.Millisecond)
		if buf.Len() != 0 {
			t.Errorf("short wait logged: %q", buf.String())
		}
		h.OnLockAcquired(ctx, "my-lib@1.0.0", 3*time.Second)
		h.OnLockTimeout(ctx, "other@2.0.0", 5*time.Minute)
		out := buf.String()
		if !strings.Contains(out, "waited for concurrent build") || !strings.Contains(out, "other@2.0.0") {
			t.Errorf("lock output = %q", out)
		}
	})
}
