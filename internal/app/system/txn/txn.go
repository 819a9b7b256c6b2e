// internal/app/system/txn/txn.go

// Package txn runs multi-document writes atomically.
//
// On a replica set or sharded cluster the writes run inside a MongoDB
// transaction. A standalone mongod cannot run transactions; there the writes
// run directly and, if any of them fails, the caller's undo function removes
// whatever was written. undo runs on a context detached from the caller's
// cancellation so a timed-out request still cleans up after itself.
package txn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// UndoTimeout bounds compensation after a failed non-transactional write.
var UndoTimeout = 10 * time.Second

// Server codes a deployment without transaction support answers with.
var notSupportedCodes = []int{20, 51, 263}

// IsNotSupported reports whether err indicates the deployment cannot run
// transactions (standalone server, sessions disabled). It also matches on
// message text, so it must only see errors from the driver itself.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	if hasNotSupportedCode(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	has := func(a, b string) bool { return strings.Contains(msg, a) && strings.Contains(msg, b) }
	return has("transaction", "replica set") ||
		has("session", "not supported") ||
		has("transaction", "session") ||
		has("illegal", "operation")
}

func hasNotSupportedCode(err error) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	for _, code := range notSupportedCodes {
		if se.HasErrorCode(code) {
			return true
		}
	}
	return false
}

// workError carries an error returned by the caller's fn through
// WithTransaction. Its text can hold user input, so only its server code is
// consulted when deciding whether transactions are unsupported.
type workError struct{ err error }

func (e *workError) Error() string { return e.err.Error() }
func (e *workError) Unwrap() error { return e.err }

// unsupported classifies an error from a transaction attempt.
func unsupported(err error) bool {
	var we *workError
	if errors.As(err, &we) {
		return hasNotSupportedCode(we.err)
	}
	return IsNotSupported(err)
}

// Runner executes units of work against one client.
type Runner struct {
	client *mongo.Client
	log    *zap.Logger

	// standalone is set once a transaction attempt reports it is unsupported.
	standalone atomic.Bool
}

// New returns a Runner. A nil client always takes the non-transactional path.
func New(client *mongo.Client, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{client: client, log: log}
}

// Run executes fn atomically. fn must perform all of its writes with the
// context it is given. undo may be nil when fn has nothing to compensate.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error, undo func(ctx context.Context) error) error {
	if r == nil || r.client == nil || r.standalone.Load() {
		return r.direct(ctx, fn, undo)
	}

	sess, err := r.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			r.markStandalone(err)
			return r.direct(ctx, fn, undo)
		}
		return err
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		if ferr := fn(sc); ferr != nil {
			return nil, &workError{ferr}
		}
		return nil, nil
	})
	if err != nil && unsupported(err) {
		r.markStandalone(err)
		return r.direct(ctx, fn, undo)
	}
	var we *workError
	if errors.As(err, &we) {
		return we.err
	}
	return err
}

func (r *Runner) markStandalone(err error) {
	if r.standalone.Swap(true) {
		return
	}
	r.log.Info("transactions not supported; using compensating writes", zap.Error(err))
}

func (r *Runner) direct(ctx context.Context, fn func(ctx context.Context) error, undo func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil || undo == nil {
		return err
	}
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), UndoTimeout)
	defer cancel()
	if uerr := undo(uctx); uerr != nil {
		log := zap.NewNop()
		if r != nil {
			log = r.log
		}
		log.Error("undo after failed write did not complete", zap.Error(uerr), zap.NamedError("cause", err))
	}
	return err
}
