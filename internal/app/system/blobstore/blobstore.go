// internal/app/system/blobstore/blobstore.go

// Package blobstore hands uploaded images to durable storage and returns the
// URL to record. Bytes never reach the database.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/system/metrics"
	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Uploader stores r under a fresh key derived from filename and returns the
// public URL of the stored object.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error)
}

// allowedExt lists the image extensions kept on keys; anything else is
// stored without an extension.
var allowedExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".heic": true,
}

// Key builds "<prefix>/<yyyy>/<mm>/<uuid><ext>".
func Key(prefix, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	if !allowedExt[ext] {
		ext = ""
	}
	name := fmt.Sprintf("%04d/%02d/%s%s", now.Year(), now.Month(), uuid.New().String(), ext)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// Store uploads through a storage backend (local disk, S3, ...) behind a
// circuit breaker. While the breaker is open uploads fail fast as
// Unavailable instead of waiting on a dead backend.
type Store struct {
	backend storage.Store
	prefix  string
	name    string
	cb      *gobreaker.CircuitBreaker[struct{}]
	log     *zap.Logger
	now     func() time.Time
}

// New wraps backend. prefix is prepended to every key; backends with their
// own prefix (S3) normally get "".
func New(backend storage.Store, prefix string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := "blobstore-" + backend.Backend()
	metrics.BreakerState.WithLabelValues(name).Set(0)
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		// A caller giving up is not evidence the backend is down.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("blob store breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	return &Store{backend: backend, prefix: prefix, name: name, cb: cb, log: logger, now: time.Now}
}

// Backend returns the backing store, for callers that need more than Upload.
func (s *Store) Backend() storage.Store { return s.backend }

// Upload puts r in the backend and returns its public URL.
func (s *Store) Upload(ctx context.Context, filename, contentType string, r io.Reader, _ int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", outcome.Unavailable("blob.upload", err)
	}
	key := Key(s.prefix, filename, s.now().UTC())
	_, err := s.cb.Execute(func() (struct{}, error) {
		return struct{}{}, s.backend.Put(ctx, key, r, &storage.PutOptions{ContentType: contentType})
	})
	switch {
	case err == nil:
		metrics.BreakerRequests.WithLabelValues(s.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.BreakerRequests.WithLabelValues(s.name, "rejected").Inc()
		return "", outcome.Unavailable("blob.upload", err)
	default:
		metrics.BreakerRequests.WithLabelValues(s.name, "failure").Inc()
		s.log.Error("blob put failed", zap.String("key", key), zap.String("backend", s.backend.Backend()), zap.Error(err))
		return "", outcome.Unavailable("blob.upload", err)
	}

	url := s.backend.URL(key)
	if url == "" {
		// The object is stored but nothing can link to it.
		_ = s.backend.Delete(context.WithoutCancel(ctx), key)
		return "", fmt.Errorf("blob.upload: backend %s has no public URL configured", s.backend.Backend())
	}
	return url, nil
}
