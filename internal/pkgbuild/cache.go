package pkgbuild

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vk/anda/internal/ctxlog"
	"github.com/vk/anda/internal/fsutil"
	"github.com/vk/anda/internal/metrics"
)

const defaultCacheConcurrency = 4

// Cache is a shared directory receiving copies of built package files, keyed
// by file name. Several runs may write into it at once.
type Cache struct {
	Dir         string
	Concurrency int
	Recorder    metrics.Recorder
}

// DefaultCacheDir returns the per-user artifact cache location.
func DefaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "anda", "artifacts")
}

// Store copies files into the cache and returns the cached paths. A failed
// copy is logged and counted but never fails the build. A nil Cache stores
// nothing.
func (c *Cache) Store(ctx context.Context, files []string) []string {
	if c == nil || c.Dir == "" || len(files) == 0 {
		return nil
	}
	logger := ctxlog.FromContext(ctx)
	rec := metrics.OrNoop(c.Recorder)

	limit := c.Concurrency
	if limit <= 0 {
		limit = defaultCacheConcurrency
	}

	var (
		mu     sync.Mutex
		stored []string
	)
	g := new(errgroup.Group)
	g.SetLimit(limit)
	for _, f := range files {
		g.Go(func() error {
			dst, err := fsutil.AtomicCopy(f, c.Dir)
			rec.IncCacheCopy(err == nil)
			if err != nil {
				logger.Warn("Failed to copy artifact into cache.", "file", f, ctxlog.Error(err))
				return nil
			}
			mu.Lock()
			stored = append(stored, dst)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return stored
}
