package pagination

import "testing"

func TestPlan(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		pageSize int
		expected []Window
	}{
		{
			name:     "zero total yields empty plan",
			total:    0,
			pageSize: 10000,
			expected: []Window{},
		},
		{
			name:     "single partial window",
			total:    42,
			pageSize: 10000,
			expected: []Window{{Start: 0, Count: 42}},
		},
		{
			name:     "exact multiple",
			total:    20000,
			pageSize: 10000,
			expected: []Window{{Start: 0, Count: 10000}, {Start: 10000, Count: 10000}},
		},
		{
			name:     "ragged last window",
			total:    25001,
			pageSize: 10000,
			expected: []Window{
				{Start: 0, Count: 10000},
				{Start: 10000, Count: 10000},
				{Start: 20000, Count: 5001},
			},
		},
		{
			name:     "page size of one",
			total:    3,
			pageSize: 1,
			expected: []Window{{Start: 0, Count: 1}, {Start: 1, Count: 1}, {Start: 2, Count: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows, err := Plan(tt.total, tt.pageSize)
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			if len(windows) != len(tt.expected) {
				t.Fatalf("windows = %d, want %d", len(windows), len(tt.expected))
			}
			for i, w := range windows {
				if w != tt.expected[i] {
					t.Errorf("window[%d] = %+v, want %+v", i, w, tt.expected[i])
				}
			}
		})
	}
}

func TestPlan_PartitionsExactly(t *testing.T) {
	// Windows must cover [0, total) exactly once, in order.
	for _, total := range []int{1, 9999, 10000, 10001, 123456} {
		windows, err := Plan(total, 10000)
		if err != nil {
			t.Fatalf("Plan(%d): %v", total, err)
		}

		next := 0
		for _, w := range windows {
			if w.Start != next {
				t.Fatalf("total %d: window starts at %d, want %d", total, w.Start, next)
			}
			if w.Count <= 0 {
				t.Fatalf("total %d: empty window at %d", total, w.Start)
			}
			next = w.End()
		}
		if next != total {
			t.Errorf("total %d: windows cover [0, %d)", total, next)
		}
	}
}

func TestPlan_InvalidArguments(t *testing.T) {
	if _, err := Plan(100, 0); err == nil {
		t.Error("expected error for zero page size")
	}
	if _, err := Plan(100, -1); err == nil {
		t.Error("expected error for negative page size")
	}
	if _, err := Plan(-1, 100); err == nil {
		t.Error("expected error for negative total")
	}
}
