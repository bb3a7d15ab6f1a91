package pagination

import (
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// Gap records one window that under- or over-delivered.
type Gap struct {
	// Offset is the window's start offset.
	Offset int

	// Expected is the window width.
	Expected int

	// Delivered is the number of features actually received.
	Delivered int
}

// Reconciliation compares what the count endpoint promised against what the
// windows delivered. Duplicate or missing records caused by an unstable
// sort key are detected here, never silently fixed.
type Reconciliation struct {
	// Expected is the authoritative total from the count resolver.
	Expected int

	// Delivered is the number of features across all resolved windows.
	Delivered int

	// Gaps lists windows whose batch size did not match the window width.
	Gaps []Gap

	// DuplicatesDropped counts features removed by the optional
	// dedup-by-ID pass. Zero unless DedupeByID was requested.
	DuplicatesDropped int
}

// Complete reports whether delivered matched expected exactly.
func (r Reconciliation) Complete() bool {
	return r.Delivered == r.Expected
}

// Result is the merged, order-preserving concatenation of all window
// batches plus the reconciliation record. Consumed immediately by the
// caller; it has no persistence of its own.
type Result struct {
	Features       []*geojson.Feature
	Reconciliation Reconciliation
}

// IncompleteResultError reports a count mismatch after all windows
// resolved. The partial result remains retrievable from the error; the
// caller decides whether the condition is fatal (strict mode) or merely
// reportable.
type IncompleteResultError struct {
	Reconciliation Reconciliation

	// Partial is the assembled result despite the mismatch.
	Partial *Result
}

// Error implements the error interface.
func (e *IncompleteResultError) Error() string {
	return fmt.Sprintf("incomplete result: expected %d features, delivered %d (%d windows off)",
		e.Reconciliation.Expected, e.Reconciliation.Delivered, len(e.Reconciliation.Gaps))
}

// WindowError reports a window that exhausted its retries or was rejected
// outright. Dispatch of new windows stops, but already-dispatched windows
// finish and their batches are attached as the partial result.
type WindowError struct {
	// Offset is the failed window's start offset.
	Offset int

	// Err is the last cause, wrapping the fetcher's retry context.
	Err error

	// Partial holds whatever was assembled before and alongside the failure.
	Partial *Result
}

// Error implements the error interface.
func (e *WindowError) Error() string {
	return fmt.Sprintf("window at offset %d failed: %v", e.Offset, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *WindowError) Unwrap() error {
	return e.Err
}
