// Package tile subdivides bounding boxes for services that cannot be paged
// by offset: coverage endpoints and dataset types where the server enforces
// a hard result ceiling regardless of pagination parameters.
package tile

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
)

// CountEstimator reports the estimated number of records within a bound.
type CountEstimator func(ctx context.Context, b orb.Bound) (int, error)

// Options configures a split.
type Options struct {
	// Ceiling is the maximum record count a single tile may carry. A tile
	// whose count is exactly at the ceiling is kept as-is; splitting a
	// minimal-area tile whose count cannot shrink would recurse forever.
	Ceiling int

	// MinSpan is the area floor: once a tile's width or height drops to
	// MinSpan or below, it is not split further even if its count exceeds
	// the ceiling. Expressed in bound units.
	MinSpan float64
}

// DefaultOptions returns defaults suited to BC Albers (metre) bounds.
func DefaultOptions(ceiling int) Options {
	return Options{
		Ceiling: ceiling,
		MinSpan: 100,
	}
}

// Tile is one sub-request extent produced by a split.
type Tile struct {
	Bound orb.Bound

	// Count is the estimated record count within the bound.
	Count int

	// Partial marks a tile that still exceeds the ceiling but hit the
	// area floor.
	Partial bool
}

// PartialCoverageError reports tiles that hit the area floor with counts
// still above the ceiling. The full tile set remains retrievable; requests
// against partial tiles may be truncated by the server.
type PartialCoverageError struct {
	Tiles []Tile
}

// Error implements the error interface.
func (e *PartialCoverageError) Error() string {
	return fmt.Sprintf("partial coverage: %d tiles reached the area floor above the count ceiling", len(e.Tiles))
}

// Split recursively quarters the bound until every tile's estimated count
// is at or under the ceiling, or the tile hits the area floor. Tiles with
// an estimated count of zero are dropped. If any tile terminated at the
// area floor, the tile set is returned together with a
// *PartialCoverageError describing them.
func Split(ctx context.Context, b orb.Bound, estimate CountEstimator, opts Options) ([]Tile, error) {
	if opts.Ceiling <= 0 {
		return nil, fmt.Errorf("count ceiling must be positive, got %d", opts.Ceiling)
	}
	if opts.MinSpan <= 0 {
		return nil, fmt.Errorf("minimum span must be positive, got %v", opts.MinSpan)
	}

	tiles, err := split(ctx, b, estimate, opts)
	if err != nil {
		return nil, err
	}

	var partial []Tile
	for _, t := range tiles {
		if t.Partial {
			partial = append(partial, t)
		}
	}
	if len(partial) > 0 {
		log.Warn().
			Int("tiles", len(tiles)).
			Int("partial", len(partial)).
			Msg("Split reached the area floor before meeting the count ceiling")
		return tiles, &PartialCoverageError{Tiles: partial}
	}

	return tiles, nil
}

func split(ctx context.Context, b orb.Bound, estimate CountEstimator, opts Options) ([]Tile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	count, err := estimate(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("estimate count for %v: %w", b, err)
	}
	if count == 0 {
		return nil, nil
	}
	if count <= opts.Ceiling {
		return []Tile{{Bound: b, Count: count}}, nil
	}

	width := b.Max[0] - b.Min[0]
	height := b.Max[1] - b.Min[1]
	if width <= opts.MinSpan || height <= opts.MinSpan {
		return []Tile{{Bound: b, Count: count, Partial: true}}, nil
	}

	midX := b.Min[0] + width/2
	midY := b.Min[1] + height/2

	quarters := []orb.Bound{
		{Min: orb.Point{b.Min[0], b.Min[1]}, Max: orb.Point{midX, midY}},
		{Min: orb.Point{midX, b.Min[1]}, Max: orb.Point{b.Max[0], midY}},
		{Min: orb.Point{b.Min[0], midY}, Max: orb.Point{midX, b.Max[1]}},
		{Min: orb.Point{midX, midY}, Max: orb.Point{b.Max[0], b.Max[1]}},
	}

	var tiles []Tile
	for _, q := range quarters {
		sub, err := split(ctx, q, estimate, opts)
		if err != nil {
			return nil, err
		}
		tiles = append(tiles, sub...)
	}
	return tiles, nil
}
