package pagination

import (
	"context"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"github.com/sfomuseum/go-timings"
)

// Prometheus metrics for batch fetch operations.
var (
	windowsFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagination_windows_total",
		Help: "Total page windows resolved by outcome",
	}, []string{"outcome"})

	batchFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pagination_fetch_duration_seconds",
		Help:    "Duration of complete batch fetches in seconds",
		Buckets: []float64{1, 5, 15, 60, 300, 1800},
	})
)

// WindowFetcher is the interface the WFS client implements for fetching a
// single page window. Transient-failure retry happens inside the fetcher;
// an error means the retry ceiling was exhausted or the request was
// rejected outright.
type WindowFetcher interface {
	FetchWindow(ctx context.Context, w Window) ([]*geojson.Feature, error)
}

// WindowFetcherFunc adapts a function to the WindowFetcher interface.
type WindowFetcherFunc func(ctx context.Context, w Window) ([]*geojson.Feature, error)

// FetchWindow implements WindowFetcher.
func (f WindowFetcherFunc) FetchWindow(ctx context.Context, w Window) ([]*geojson.Feature, error) {
	return f(ctx, w)
}

// outcome tags one window's resolution.
type outcome struct {
	window Window
	batch  []*geojson.Feature
	err    error
}

// Config holds batch fetcher configuration.
type Config struct {
	// MaxConcurrency is the number of parallel window fetches. Kept low by
	// default to respect the remote service's load limits.
	MaxConcurrency int

	// WindowTimeout bounds a single window fetch including its retries.
	// Zero means no bound beyond the fetcher's per-request timeout.
	WindowTimeout time.Duration

	// DedupeByID drops features whose ID repeats across windows, the
	// stricter answer to a non-unique sort key. Dropped counts appear in
	// the reconciliation record.
	DedupeByID bool

	// Monitor, if set, is signaled once per resolved window.
	Monitor timings.Monitor
}

// DefaultConfig returns safe defaults for the public service.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
	}
}

// BatchFetcher executes a window plan under bounded concurrency and
// assembles the batches into a single ordered result.
type BatchFetcher struct {
	fetcher WindowFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher.
func NewBatchFetcher(fetcher WindowFetcher, config Config) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll resolves every window in the plan and returns the assembled
// result. expected is the authoritative count from the count resolver.
//
// An empty plan returns an empty, well-formed result without starting any
// worker. On a window failure a *WindowError is returned with the partial
// result attached; on a count mismatch an *IncompleteResultError is
// returned alongside the (still usable) result.
func (bf *BatchFetcher) FetchAll(ctx context.Context, windows []Window, expected int) (*Result, error) {
	start := time.Now()
	defer func() {
		batchFetchDuration.Observe(time.Since(start).Seconds())
	}()

	if len(windows) == 0 {
		return assemble(windows, nil, expected, bf.config.DedupeByID), nil
	}

	log.Info().
		Int("windows", len(windows)).
		Int("expected", expected).
		Int("workers", bf.config.MaxConcurrency).
		Msg("Starting parallel window fetch")

	// Dispatcher: feeds windows until done or told to stop.
	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	defer stopDispatch()

	queue := make(chan Window)
	go func() {
		defer close(queue)
		for _, w := range windows {
			select {
			case queue <- w:
			case <-dispatchCtx.Done():
				return
			}
		}
	}()

	outcomes := make(chan outcome, len(windows))

	workers := bf.config.MaxConcurrency
	if workers > len(windows) {
		workers = len(windows)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, queue, outcomes, &wg, i)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Single assembling owner: no concurrent mutation of the batch map.
	batches := make(map[int][]*geojson.Feature, len(windows))
	var fatal *WindowError
	resolved := 0

	for oc := range outcomes {
		resolved++

		if oc.err != nil {
			windowsFetchedTotal.WithLabelValues("fatal").Inc()
			log.Error().
				Err(oc.err).
				Int("offset", oc.window.Start).
				Msg("Window failed, stopping dispatch of new windows")
			if fatal == nil {
				fatal = &WindowError{Offset: oc.window.Start, Err: oc.err}
				stopDispatch()
			}
			continue
		}

		windowsFetchedTotal.WithLabelValues("success").Inc()
		batches[oc.window.Start] = oc.batch

		if len(oc.batch) != oc.window.Count {
			// Recorded by reconciliation; the server is known to return
			// inconsistent counts under concurrent mutation upstream.
			log.Warn().
				Int("offset", oc.window.Start).
				Int("expected", oc.window.Count).
				Int("delivered", len(oc.batch)).
				Msg("Window batch size does not match window width")
		}

		if bf.config.Monitor != nil {
			bf.config.Monitor.Signal(ctx)
		}

		if resolved%50 == 0 {
			log.Info().
				Int("resolved", resolved).
				Int("total", len(windows)).
				Msg("Fetch progress")
		}
	}

	result := assemble(windows, batches, expected, bf.config.DedupeByID)

	if fatal != nil {
		fatal.Partial = result
		return result, fatal
	}

	log.Info().
		Int("windows", len(windows)).
		Int("features", len(result.Features)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	if !result.Reconciliation.Complete() {
		log.Warn().
			Int("expected", result.Reconciliation.Expected).
			Int("delivered", result.Reconciliation.Delivered).
			Msg("Delivered feature count does not match expected count")
		return result, &IncompleteResultError{
			Reconciliation: result.Reconciliation,
			Partial:        result,
		}
	}

	return result, nil
}

// worker resolves windows from the queue until it closes or the context is
// cancelled. Each outcome is keyed by its window, never by arrival order.
func (bf *BatchFetcher) worker(ctx context.Context, queue <-chan Window, outcomes chan<- outcome, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for w := range queue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("windows_processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		fetchCtx := ctx
		var cancel context.CancelFunc
		if bf.config.WindowTimeout > 0 {
			fetchCtx, cancel = context.WithTimeout(ctx, bf.config.WindowTimeout)
		}
		batch, err := bf.fetcher.FetchWindow(fetchCtx, w)
		if cancel != nil {
			cancel()
		}

		outcomes <- outcome{window: w, batch: batch, err: err}
		processed++
	}

	if processed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("windows_processed", processed).
			Msg("Worker completed")
	}
}
