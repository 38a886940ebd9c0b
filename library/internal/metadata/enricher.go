package metadata

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/libsys/library/internal/model"
)

type Store interface {
	ApplyMetadata(ctx context.Context, isbn string, meta model.BookMetadata) (model.Book, error)
}

// Enricher fills empty title/author/cover fields in the background. It is best-effort:
// a full queue drops the job and lookup failures are only logged.
type Enricher struct {
	log     *zap.Logger
	lookup  Lookuper
	store   Store
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	queue  chan string
	wg     sync.WaitGroup
}

func NewEnricher(lookup Lookuper, store Store, cfg Config, log *zap.Logger) *Enricher {
	size := cfg.QueueSize
	if size <= 0 {
		size = 1
	}
	return &Enricher{
		log:     log.Named("enricher"),
		lookup:  lookup,
		store:   store,
		timeout: cfg.Timeout,
		queue:   make(chan string, size),
	}
}

// Enqueue schedules isbn for enrichment without blocking. It reports whether the job was accepted;
// once Run has stopped every job is refused.
func (e *Enricher) Enqueue(isbn string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		e.log.Debug("enricher stopped, skipping", zap.String("isbn", isbn))
		return false
	}
	e.wg.Add(1)
	select {
	case e.queue <- isbn:
		return true
	default:
		e.wg.Done()
		e.log.Warn("queue full, skipping", zap.String("isbn", isbn))
		return false
	}
}

// Run consumes the queue until ctx is done; jobs still queued at that point are dropped.
func (e *Enricher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			e.drain()
			return nil
		case isbn := <-e.queue:
			e.enrich(ctx, isbn)
			e.wg.Done()
		}
	}
}

func (e *Enricher) drain() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	for {
		select {
		case <-e.queue:
			e.wg.Done()
		default:
			return
		}
	}
}

// Wait blocks until every accepted job has been processed or dropped.
func (e *Enricher) Wait() {
	e.wg.Wait()
}

func (e *Enricher) enrich(ctx context.Context, isbn string) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	meta, err := e.lookup.Lookup(ctx, isbn)
	if err != nil {
		e.log.Info("no metadata", zap.String("isbn", isbn), zap.Error(err))
		return
	}
	if meta.Empty() {
		return
	}
	if _, err := e.store.ApplyMetadata(ctx, isbn, meta); err != nil {
		e.log.Warn("apply metadata", zap.String("isbn", isbn), zap.Error(err))
		return
	}
	e.log.Debug("enriched", zap.String("isbn", isbn))
}
