package wfs

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestCQLFilter(t *testing.T) {
	bounds := &orb.Bound{
		Min: orb.Point{1368770.5, 466069},
		Max: orb.Point{1381372, 479108},
	}

	tests := []struct {
		name     string
		spec     QuerySpec
		expected string
	}{
		{
			name:     "empty spec",
			spec:     QuerySpec{},
			expected: "",
		},
		{
			name:     "filter only",
			spec:     QuerySpec{Filter: "POOL_NAME = 'Horsefly River'"},
			expected: "POOL_NAME = 'Horsefly River'",
		},
		{
			name:     "bounds only",
			spec:     QuerySpec{Bounds: bounds},
			expected: "bbox(GEOMETRY, 1368770.5, 466069, 1381372, 479108, 'EPSG:3005')",
		},
		{
			name: "filter and bounds",
			spec: QuerySpec{
				Filter: "POOL_NAME = 'Horsefly River'",
				Bounds: bounds,
			},
			expected: "POOL_NAME = 'Horsefly River' AND bbox(GEOMETRY, 1368770.5, 466069, 1381372, 479108, 'EPSG:3005')",
		},
		{
			name: "bounds with explicit crs",
			spec: QuerySpec{
				Bounds:    bounds,
				BoundsCRS: "EPSG:4326",
			},
			expected: "bbox(GEOMETRY, 1368770.5, 466069, 1381372, 479108, 'EPSG:4326')",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.spec.CQLFilter("GEOMETRY")
			if got != tt.expected {
				t.Errorf("CQLFilter = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseBounds(t *testing.T) {
	b, err := ParseBounds("1368770.5,466069,1381372,479108")
	if err != nil {
		t.Fatalf("ParseBounds: %v", err)
	}
	if b.Min[0] != 1368770.5 || b.Min[1] != 466069 {
		t.Errorf("Min = %v", b.Min)
	}
	if b.Max[0] != 1381372 || b.Max[1] != 479108 {
		t.Errorf("Max = %v", b.Max)
	}
}

func TestParseBounds_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"1,2,3",
		"a,b,c,d",
		"10,0,1,5",
	}

	for _, s := range invalid {
		if _, err := ParseBounds(s); err == nil {
			t.Errorf("ParseBounds(%q) expected error", s)
		}
	}
}
