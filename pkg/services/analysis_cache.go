package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dbscribe/dbscribe/pkg/adapters/datasource"
	"github.com/dbscribe/dbscribe/pkg/models"
)

// AnalysisKey identifies one memoized analysis. The fingerprint namespaces
// entries per connection target so two databases never share results.
type AnalysisKey struct {
	Fingerprint string
	Schema      string
	Item        string
}

// computation is one in-flight analysis. Waiters block on done; after close,
// result and err are immutable.
type computation struct {
	done   chan struct{}
	result *models.AnalysisResult
	err    error
}

// AnalysisCache memoizes analysis results per key with request coalescing:
// at most one computation runs per key at any time, and concurrent callers
// for the same key share its outcome. Ready results live until invalidated
// or force-refreshed; failures are never cached.
type AnalysisCache struct {
	mu       sync.Mutex
	ready    map[AnalysisKey]*models.AnalysisResult
	inflight map[AnalysisKey]*computation

	analyzer       *Analyzer
	computeTimeout time.Duration
	logger         *zap.Logger
}

// NewAnalysisCache creates an empty cache. computeTimeout bounds one full
// computation (statistics pass plus both model calls).
func NewAnalysisCache(analyzer *Analyzer, computeTimeout time.Duration, logger *zap.Logger) *AnalysisCache {
	return &AnalysisCache{
		ready:          make(map[AnalysisKey]*models.AnalysisResult),
		inflight:       make(map[AnalysisKey]*computation),
		analyzer:       analyzer,
		computeTimeout: computeTimeout,
		logger:         logger.Named("analysis-cache"),
	}
}

// GetOrCompute returns the memoized result for key, computing it if absent.
// Concurrent callers for the same key coalesce onto one computation. With
// force set, a fresh computation is started even when a result exists; the
// old result stays visible to other readers until the new one succeeds. A
// failed computation is returned to its waiters and then forgotten, so the
// next request recomputes.
func (c *AnalysisCache) GetOrCompute(ctx context.Context, conn datasource.Connection, key AnalysisKey, force bool) (*models.AnalysisResult, error) {
	c.mu.Lock()

	// A plain read is served from the ready map even while a forced
	// refresh is running; the new result becomes visible only once it
	// succeeds.
	if !force {
		if result, ok := c.ready[key]; ok {
			c.mu.Unlock()
			return result, nil
		}
	}

	// No usable ready value, so join an in-flight computation rather than
	// starting a second one for the same key.
	if comp, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		return c.wait(ctx, comp)
	}

	comp := &computation{done: make(chan struct{})}
	c.inflight[key] = comp
	c.mu.Unlock()

	go c.compute(ctx, conn, key, comp)

	return c.wait(ctx, comp)
}

// compute runs one analysis on a context detached from the initiating
// caller, so a disconnecting client never cancels work other waiters share.
func (c *AnalysisCache) compute(ctx context.Context, conn datasource.Connection, key AnalysisKey, comp *computation) {
	computeCtx := context.WithoutCancel(ctx)
	if c.computeTimeout > 0 {
		var cancel context.CancelFunc
		computeCtx, cancel = context.WithTimeout(computeCtx, c.computeTimeout)
		defer cancel()
	}

	result, err := c.analyzer.Analyze(computeCtx, conn, key.Schema, key.Item)

	c.mu.Lock()
	// Invalidate may have detached this computation; only a still-current
	// one publishes into the ready map.
	if c.inflight[key] == comp {
		delete(c.inflight, key)
		if err == nil {
			c.ready[key] = result
		}
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("analysis failed",
			zap.String("fingerprint", key.Fingerprint),
			zap.String("schema", key.Schema),
			zap.String("item", key.Item),
			zap.Error(err))
	}

	comp.result = result
	comp.err = err
	close(comp.done)
}

// wait blocks until the computation completes or the caller's context ends.
// A departing waiter detaches; the computation itself keeps running for the
// others.
func (c *AnalysisCache) wait(ctx context.Context, comp *computation) (*models.AnalysisResult, error) {
	select {
	case <-comp.done:
		return comp.result, comp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops every entry for one connection fingerprint, including
// detaching in-flight computations so their results are discarded.
func (c *AnalysisCache) Invalidate(fingerprint string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.ready {
		if key.Fingerprint == fingerprint {
			delete(c.ready, key)
			removed++
		}
	}
	for key := range c.inflight {
		if key.Fingerprint == fingerprint {
			delete(c.inflight, key)
		}
	}
	return removed
}

// ReadyResults returns a snapshot of all Ready entries for one connection
// fingerprint. The results themselves are immutable.
func (c *AnalysisCache) ReadyResults(fingerprint string) map[AnalysisKey]*models.AnalysisResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make(map[AnalysisKey]*models.AnalysisResult)
	for key, result := range c.ready {
		if key.Fingerprint == fingerprint {
			snapshot[key] = result
		}
	}
	return snapshot
}
