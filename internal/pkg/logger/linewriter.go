package logger

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
)

// LineWriter turns subprocess output into one log record per line.
// It is safe to hand to exec.Cmd as Stdout or Stderr.
type LineWriter struct {
	log   *Logger
	level slog.Level

	mu   sync.Mutex
	buf  bytes.Buffer
	tail []string
	keep int
}

// NewLineWriter logs every complete line written to it at level and remembers
// the last keep lines for error messages.
func NewLineWriter(log *Logger, level slog.Level, keep int) *LineWriter {
	return &LineWriter{log: log, level: level, keep: keep}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// incomplete line, put it back until the next write
			w.buf.Write(line)
			break
		}
		w.emit(string(bytes.TrimRight(line, "\r\n")))
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(string(bytes.TrimRight(w.buf.Bytes(), "\r\n")))
		w.buf.Reset()
	}
}

// Tail returns the last remembered lines, oldest first.
func (w *LineWriter) Tail() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.tail))
	copy(out, w.tail)
	return out
}

func (w *LineWriter) emit(line string) {
	if line == "" {
		return
	}
	w.log.Log(context.Background(), w.level, line)
	if w.keep <= 0 {
		return
	}
	w.tail = append(w.tail, line)
	if len(w.tail) > w.keep {
		w.tail = w.tail[len(w.tail)-w.keep:]
	}
}
