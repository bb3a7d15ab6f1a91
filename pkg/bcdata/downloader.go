// Package bcdata ties the catalogue, the feature-service client and the
// pagination engine together into the bulk download pipeline: resolve the
// dataset, resolve the count, plan page windows, fetch them concurrently
// and hand back the assembled, reconciled feature set.
package bcdata

import (
	"context"
	"fmt"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sfomuseum/go-timings"

	"github.com/bcgeo/bcdata-go/pkg/catalog"
	"github.com/bcgeo/bcdata-go/pkg/pagination"
	"github.com/bcgeo/bcdata-go/pkg/wfs"
)

// fallbackPageSize is used when the server does not report a result
// ceiling in its capabilities.
const fallbackPageSize = 10000

// Downloader is the session-scoped entry point for dataset downloads.
type Downloader struct {
	wfs     *wfs.Client
	catalog *catalog.Catalog
	logger  zerolog.Logger
}

// NewDownloader creates a downloader over the given collaborators.
func NewDownloader(wfsClient *wfs.Client, cat *catalog.Catalog) (*Downloader, error) {
	if wfsClient == nil {
		return nil, fmt.Errorf("wfs client is required")
	}
	if cat == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	return &Downloader{
		wfs:     wfsClient,
		catalog: cat,
		logger:  log.With().Str("component", "downloader").Logger(),
	}, nil
}

// Catalog exposes the catalogue collaborator for name/schema lookups.
func (d *Downloader) Catalog() *catalog.Catalog {
	return d.catalog
}

// FetchOptions tune one download.
type FetchOptions struct {
	// PageSize overrides the server-reported per-request ceiling.
	PageSize int

	// MaxConcurrency is the fetch worker count.
	MaxConcurrency int

	// Count caps the number of features fetched. When CheckCount is true
	// (the default posture) a cap larger than the actual matching count is
	// corrected down.
	Count int

	// SkipCountCheck skips count resolution entirely, trusting Count.
	// Invalid without a positive Count.
	SkipCountCheck bool

	// DedupeByID enables the stricter dedup pass in the assembler.
	DedupeByID bool

	// Monitor, if set, receives a signal per resolved window.
	Monitor timings.Monitor
}

// GetCount resolves the dataset name and asks the service how many
// features match the spec.
func (d *Downloader) GetCount(ctx context.Context, dataset string, spec wfs.QuerySpec) (int, error) {
	table, err := d.catalog.ResolveName(ctx, dataset)
	if err != nil {
		return 0, err
	}
	schema, err := d.catalog.Schema(ctx, table, false)
	if err != nil {
		return 0, err
	}
	return d.wfs.GetCount(ctx, table, spec, schema.GeometryColumn)
}

// Plan resolves everything needed to fetch a dataset: the canonical table
// name, its schema, the expected count and the window plan, with the sort
// key defaulted whenever more than one window is needed.
type Plan struct {
	Table    string
	Schema   *catalog.Schema
	Spec     wfs.QuerySpec
	Expected int
	Windows  []pagination.Window
}

// PlanFetch builds the fetch plan for a dataset without executing it.
func (d *Downloader) PlanFetch(ctx context.Context, dataset string, spec wfs.QuerySpec, opts FetchOptions) (*Plan, error) {
	if opts.SkipCountCheck && opts.Count <= 0 {
		return nil, fmt.Errorf("skipping the count check requires an explicit count")
	}

	table, err := d.catalog.ResolveName(ctx, dataset)
	if err != nil {
		return nil, err
	}

	schema, err := d.catalog.Schema(ctx, table, false)
	if err != nil {
		return nil, err
	}

	count := opts.Count
	if !opts.SkipCountCheck {
		n, err := d.wfs.GetCount(ctx, table, spec, schema.GeometryColumn)
		if err != nil {
			return nil, err
		}
		// A requested cap larger than the actual matching count is
		// corrected down; smaller caps stand.
		if count <= 0 || count > n {
			count = n
		}
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize, err = d.catalog.ServerPageSize(ctx)
		if err != nil || pageSize <= 0 {
			if err != nil {
				d.logger.Warn().Err(err).Msg("Failed to read server page size, using fallback")
			}
			pageSize = fallbackPageSize
		}
	}

	windows, err := pagination.Plan(count, pageSize)
	if err != nil {
		return nil, err
	}

	// Paging is only deterministic under a total order; pick the dataset's
	// sort key when several windows are needed and the caller did not.
	if len(windows) > 1 && spec.SortBy == "" {
		spec.SortBy = schema.SortKey()
	}

	d.logger.Info().
		Str("dataset", table).
		Int("count", count).
		Int("pagesize", pageSize).
		Int("windows", len(windows)).
		Str("sortby", spec.SortBy).
		Msg("Fetch planned")

	return &Plan{
		Table:    table,
		Schema:   schema,
		Spec:     spec,
		Expected: count,
		Windows:  windows,
	}, nil
}

// GetFeatures downloads the dataset described by spec and returns the
// assembled result. Errors follow the pagination package's contract:
// *pagination.WindowError on a fatal window, *pagination.IncompleteResultError
// on a count mismatch (partial results attached to both).
func (d *Downloader) GetFeatures(ctx context.Context, dataset string, spec wfs.QuerySpec, opts FetchOptions) (*pagination.Result, error) {
	plan, err := d.PlanFetch(ctx, dataset, spec, opts)
	if err != nil {
		return nil, err
	}
	return d.Fetch(ctx, plan, opts)
}

// Fetch executes a previously built plan.
func (d *Downloader) Fetch(ctx context.Context, plan *Plan, opts FetchOptions) (*pagination.Result, error) {
	fetcher := pagination.WindowFetcherFunc(func(ctx context.Context, w pagination.Window) ([]*geojson.Feature, error) {
		return d.wfs.FetchWindow(ctx, plan.Table, plan.Spec, plan.Schema.GeometryColumn, w)
	})

	bf := pagination.NewBatchFetcher(fetcher, pagination.Config{
		MaxConcurrency: opts.MaxConcurrency,
		DedupeByID:     opts.DedupeByID,
		Monitor:        opts.Monitor,
	})

	return bf.FetchAll(ctx, plan.Windows, plan.Expected)
}
