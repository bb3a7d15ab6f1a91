package pagination

import "fmt"

// Window is a contiguous slice [Start, Start+Count) of the full result set,
// fetched by a single paged request.
type Window struct {
	// Start is the zero-based offset of the first record in the window.
	Start int

	// Count is the number of records the window is expected to deliver.
	Count int
}

// End returns the exclusive end offset of the window.
func (w Window) End() int {
	return w.Start + w.Count
}

// Plan partitions [0, total) into ceil(total/pageSize) windows of width
// pageSize, except possibly the last. total == 0 yields an empty plan.
func Plan(total, pageSize int) ([]Window, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}
	if total < 0 {
		return nil, fmt.Errorf("total count must be non-negative, got %d", total)
	}
	if total == 0 {
		return []Window{}, nil
	}

	chunks := (total + pageSize - 1) / pageSize
	windows := make([]Window, 0, chunks)
	for i := 0; i < chunks; i++ {
		start := i * pageSize
		count := pageSize
		if start+count > total {
			count = total - start
		}
		windows = append(windows, Window{Start: start, Count: count})
	}
	return windows, nil
}
