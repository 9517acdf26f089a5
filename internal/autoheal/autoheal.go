// Package autoheal implements the query-time corruption recovery wrapper:
// catch a Corrupted error, rebuild, retry once.
package autoheal

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/codectx/ctxd/internal/errs"
)

// Rebuilder performs a full index rebuild for root. It's satisfied by
// *indexer.Coordinator in production and a fake in tests.
type Rebuilder interface {
	RebuildFull(ctx context.Context, root string) error
}

// Wrapper wraps index-consuming operations with the catch/rebuild/retry-once
// policy. A singleflight group collapses concurrent corruption triggers for
// the same root into a single rebuild.
type Wrapper struct {
	rebuilder Rebuilder
	logger    *slog.Logger
	group     singleflight.Group
}

// New creates an auto-heal wrapper around rebuilder.
func New(rebuilder Rebuilder, logger *slog.Logger) *Wrapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Wrapper{rebuilder: rebuilder, logger: logger}
}

// Do runs op; if op returns a Corrupted error, it triggers exactly one
// rebuild (deduplicated across concurrent callers via singleflight) and
// retries op exactly once. A Corrupted error on the retry, or a rebuild
// failure, is surfaced to the caller without looping further.
func (w *Wrapper) Do(ctx context.Context, root string, op func(ctx context.Context) (any, error)) (any, error) {
	result, err := op(ctx)
	if err == nil || !errs.IsCorrupted(err) {
		return result, err
	}

	ce, _ := err.(*errs.CtxError)
	reason := err.Error()
	if ce != nil {
		reason = ce.Message
	}
	w.logger.Warn("index corruption detected, triggering rebuild",
		slog.String("root", root),
		slog.String("reason", reason))

	_, rebuildErr, _ := w.group.Do(root, func() (interface{}, error) {
		return nil, w.rebuilder.RebuildFull(ctx, root)
	})
	if rebuildErr != nil {
		w.logger.Error("auto-heal rebuild failed",
			slog.String("root", root),
			slog.String("error", rebuildErr.Error()))
		return nil, errs.RebuildFailed(fmt.Sprintf("rebuild failed after corruption: %s", reason), rebuildErr)
	}

	w.logger.Info("auto-heal rebuild succeeded, retrying operation", slog.String("root", root))

	result, retryErr := op(ctx)
	if retryErr != nil {
		w.logger.Error("operation failed again after rebuild",
			slog.String("root", root),
			slog.String("error", retryErr.Error()))
		return nil, retryErr
	}
	return result, nil
}
