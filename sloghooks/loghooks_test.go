package sloghooks

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/kvstore"
)

func newBufLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestCodecFailureSampling(t *testing.T) {
	var buf bytes.Buffer
	h := New(newBufLogger(&buf), Options{CodecFailureEvery: 3})
	for i := 0; i < 9; i++ {
		h.CodecFailure("get", "value", errors.New("bad"))
	}
	if n := strings.Count(buf.String(), "kvstore.codec_failure"); n != 3 {
		t.Fatalf("logged %d codec failures, want 3:\n%s", n, buf.String())
	}
	if !strings.Contains(buf.String(), "part=value") {
		t.Fatalf("missing part attr:\n%s", buf.String())
	}
}

func TestBackendFailureLevels(t *testing.T) {
	var buf bytes.Buffer
	h := New(newBufLogger(&buf), Options{})

	h.BackendFailure("get", kvstore.ErrClosed)
	h.BackendFailure("set", context.Canceled)
	h.BackendFailure("set", errors.New("disk on fire"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	for i, want := range []string{"level=DEBUG", "level=DEBUG", "level=ERROR"} {
		if !strings.Contains(lines[i], want) {
			t.Fatalf("line %d = %q, want %s", i, lines[i], want)
		}
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	h := New(nil, Options{})
	h.CodecFailure("get", "key", nil)
	h.BackendFailure("get", nil)
}
