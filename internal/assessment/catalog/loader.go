// internal/assessment/catalog/loader.go
package catalog

import (
	"context"
	stderrors "errors"
	"sync"

	"agritour-certification/internal/common/errors"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/common/metrics"
)

type LoadState string

const (
	StateIdle    LoadState = "idle"
	StateLoading LoadState = "loading"
	StateLoaded  LoadState = "loaded"
	StateEmpty   LoadState = "empty"
	StateFailed  LoadState = "failed"
)

// Snapshot is the loader state at one point in time.
type Snapshot struct {
	State      LoadState
	Catalog    Catalog
	Err        error
	Generation uint64
}

// Loader fetches the catalog in the background and tracks its state. Each Load
// starts a new generation; a result that arrives for an older generation is
// dropped, so a slow fetch can never overwrite a newer one.
type Loader struct {
	src    Source
	logger logger.Logger

	mu      sync.Mutex
	gen     uint64
	state   LoadState
	catalog Catalog
	err     error
	done    chan struct{}

	wg sync.WaitGroup
}

func NewLoader(src Source, log logger.Logger) *Loader {
	done := make(chan struct{})
	close(done)
	return &Loader{
		src:    src,
		logger: log.WithFields(map[string]interface{}{"component": "catalog-loader", "source": src.Name()}),
		state:  StateIdle,
		done:   done,
	}
}

// Load starts a fetch and returns its generation.
func (l *Loader) Load(ctx context.Context) uint64 {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	done := make(chan struct{})
	l.state = StateLoading
	l.catalog = nil
	l.err = nil
	l.done = done
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer close(done)

		cat, err := Fetch(ctx, l.src)
		l.settle(gen, cat, err)
	}()
	return gen
}

func (l *Loader) settle(gen uint64, cat Catalog, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.gen {
		metrics.CatalogLoads.WithLabelValues(l.src.Name(), "discarded").Inc()
		l.logger.Debug("Discarding stale catalog load", map[string]interface{}{
			"generation": gen,
			"current":    l.gen,
		})
		return
	}

	switch {
	case err == nil:
		l.state, l.catalog = StateLoaded, cat
		l.logger.Info("Catalog loaded", map[string]interface{}{
			"sections":  len(cat),
			"questions": cat.QuestionCount(),
		})
	case stderrors.Is(err, ErrEmptyCatalog):
		l.state, l.err = StateEmpty, err
		l.logger.Warn("Catalog source returned no questions", nil)
	default:
		l.state, l.err = StateFailed, err
		l.logger.Error("Catalog load failed", map[string]interface{}{"error": err.Error()})
	}
	metrics.CatalogLoads.WithLabelValues(l.src.Name(), string(l.state)).Inc()
}

// Invalidate abandons any in-flight load and returns the loader to idle.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.state = StateIdle
	l.catalog = nil
	l.err = nil
	done := make(chan struct{})
	close(done)
	l.done = done
}

func (l *Loader) State() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{State: l.state, Catalog: l.catalog, Err: l.err, Generation: l.gen}
}

// Ready is true only once a non-empty catalog has loaded.
func (l *Loader) Ready() bool {
	return l.State().State == StateLoaded
}

// Wait blocks until the current generation settles or ctx ends.
func (l *Loader) Wait(ctx context.Context) (Snapshot, error) {
	for {
		l.mu.Lock()
		done, gen := l.done, l.gen
		l.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return l.State(), ctx.Err()
		}

		snap := l.State()
		if snap.Generation == gen || snap.State != StateLoading {
			return snap, nil
		}
	}
}

// Catalog returns the loaded catalog or an error describing why there is none.
func (l *Loader) Catalog() (Catalog, error) {
	snap := l.State()
	switch snap.State {
	case StateLoaded:
		return snap.Catalog, nil
	case StateEmpty, StateFailed:
		return nil, snap.Err
	default:
		return nil, errors.NewCatalogNotReadyError(string(snap.State))
	}
}

// Close abandons the current load and waits for background fetches to return.
func (l *Loader) Close() {
	l.Invalidate()
	l.wg.Wait()
}
