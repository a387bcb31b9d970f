// Package sloghooks reports store failures to a *slog.Logger.
package sloghooks

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/kvstore"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	CodecFailureEvery   uint64
	BackendFailureEvery uint64
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	codecCtr   atomic.Uint64
	backendCtr atomic.Uint64
}

var _ kvstore.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) CodecFailure(op, part string, err error) {
	if h.l == nil || !sample(h.opts.CodecFailureEvery, &h.codecCtr) {
		return
	}
	h.l.Warn("kvstore.codec_failure",
		"op", op,
		"part", part,
		"err", err)
}

// BackendFailure logs closed stores and cancelled contexts at debug; they are
// caller-driven, not faults.
func (h *Hooks) BackendFailure(op string, err error) {
	if h.l == nil || !sample(h.opts.BackendFailureEvery, &h.backendCtr) {
		return
	}
	lvl := slog.LevelError
	if kvstore.IsClosed(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		lvl = slog.LevelDebug
	}
	h.l.Log(context.Background(), lvl, "kvstore.backend_failure",
		"op", op,
		"err", err)
}
