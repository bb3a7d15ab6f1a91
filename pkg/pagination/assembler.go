package pagination

import (
	"github.com/paulmach/orb/geojson"
)

// assemble concatenates window batches in ascending offset order and builds
// the reconciliation record. windows is already ordered by Plan; batches is
// keyed by window start offset. Unresolved windows count as zero-delivery
// gaps.
func assemble(windows []Window, batches map[int][]*geojson.Feature, expected int, dedupe bool) *Result {
	rec := Reconciliation{Expected: expected}
	features := make([]*geojson.Feature, 0, expected)

	var seen map[interface{}]struct{}
	if dedupe {
		seen = make(map[interface{}]struct{}, expected)
	}

	for _, w := range windows {
		batch, ok := batches[w.Start]
		delivered := len(batch)
		if !ok || delivered != w.Count {
			rec.Gaps = append(rec.Gaps, Gap{
				Offset:    w.Start,
				Expected:  w.Count,
				Delivered: delivered,
			})
		}

		if !dedupe {
			features = append(features, batch...)
			rec.Delivered += delivered
			continue
		}

		for _, f := range batch {
			rec.Delivered++
			if f.ID != nil {
				if _, dup := seen[f.ID]; dup {
					rec.DuplicatesDropped++
					continue
				}
				seen[f.ID] = struct{}{}
			}
			features = append(features, f)
		}
	}

	return &Result{
		Features:       features,
		Reconciliation: rec,
	}
}
