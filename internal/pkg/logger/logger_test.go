package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newBufLogger(level string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Level: level, Format: "json", Output: &buf, ServiceName: "mixer-test"}), &buf
}

func TestLoggerOutput(t *testing.T) {
	log, buf := newBufLogger("debug")

	log.Info("video rendered", "index", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}
	if entry["msg"] != "video rendered" {
		t.Errorf("expected msg='video rendered', got %v", entry["msg"])
	}
	if entry["index"] != float64(3) {
		t.Errorf("expected index=3, got %v", entry["index"])
	}
	if entry["service"] != "mixer-test" {
		t.Errorf("expected service='mixer-test', got %v", entry["service"])
	}
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		logFn     func(*Logger)
		shouldLog bool
	}{
		{"info logs info", "info", func(l *Logger) { l.Info("x") }, true},
		{"info drops debug", "info", func(l *Logger) { l.Debug("x") }, false},
		{"debug logs debug", "debug", func(l *Logger) { l.Debug("x") }, true},
		{"error drops warn", "error", func(l *Logger) { l.Warn("x") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := newBufLogger(tt.level)
			tt.logFn(log)
			if got := buf.Len() > 0; got != tt.shouldLog {
				t.Errorf("expected shouldLog=%v, got %v", tt.shouldLog, got)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	log, buf := newBufLogger("info")

	ctx := ContextWithRequestID(context.Background(), "req-abc")
	ctx = ContextWithMixID(ctx, "01HZX")

	log.FromContext(ctx).Info("processing")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-abc"`) {
		t.Errorf("expected request_id in output, got: %s", out)
	}
	if !strings.Contains(out, `"mix_id":"01HZX"`) {
		t.Errorf("expected mix_id in output, got: %s", out)
	}
}

func TestWithComponentAndError(t *testing.T) {
	log, buf := newBufLogger("info")

	if log.WithError(nil) != log {
		t.Error("WithError(nil) should return same logger")
	}

	log.WithComponent("fetcher").WithError(context.DeadlineExceeded).Info("attempt failed")

	out := buf.String()
	if !strings.Contains(out, `"component":"fetcher"`) {
		t.Errorf("expected component in output, got: %s", out)
	}
	if !strings.Contains(out, "deadline exceeded") {
		t.Errorf("expected error in output, got: %s", out)
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixer.log")
	var buf bytes.Buffer

	log := New(Config{Level: "info", Output: &buf, File: path, FileMaxSizeMB: 1})
	log.Info("to both sinks")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to both sinks") {
		t.Errorf("expected record in file, got: %s", data)
	}
	if !strings.Contains(buf.String(), "to both sinks") {
		t.Errorf("expected record in primary output, got: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %s, expected %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLineWriter(t *testing.T) {
	log, buf := newBufLogger("debug")
	w := NewLineWriter(log, slog.LevelDebug, 2)

	_, _ = w.Write([]byte("frame=1\nframe=2\nfra"))
	_, _ = w.Write([]byte("me=3\r\n"))
	_, _ = w.Write([]byte("done"))
	w.Flush()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 records, got %d: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[2], `"msg":"frame=3"`) {
		t.Errorf("expected split line to be joined, got: %s", lines[2])
	}

	tail := w.Tail()
	if len(tail) != 2 || tail[0] != "frame=3" || tail[1] != "done" {
		t.Errorf("unexpected tail: %v", tail)
	}
}
