package install

import (
	"bytes"
	"sync"

	"github.com/charmbracelet/log"
)

// lineWriter forwards child process output to a logger one line at a time,
// holding back partial lines until they are completed or flushed.
type lineWriter struct {
	mu     sync.Mutex
	logger *log.Logger
	level  log.Level
	buf    []byte
}

func newLineWriter(logger *log.Logger, level log.Level) *lineWriter {
	return &lineWriter{logger: logger, level: level}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *lineWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	w.logger.Log(w.level, string(line))
}
