package wfs

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bcgeo/bcdata-go/internal/testutil"
	"github.com/bcgeo/bcdata-go/pkg/pagination"
)

func testConfig(serverURL string) Config {
	return Config{
		BaseURL:   serverURL,
		OWSURL:    serverURL,
		UserAgent: "bcdata-go-test/0.0.0",
		Timeout:   5 * time.Second,
		Retry: RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    1 * time.Millisecond,
			MaxBackoff:        5 * time.Millisecond,
			BackoffMultiplier: 2.0,
		},
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{OWSURL: "x", UserAgent: "x"}); err == nil {
		t.Error("expected error for missing base URL")
	}
	if _, err := New(Config{BaseURL: "x", UserAgent: "x"}); err == nil {
		t.Error("expected error for missing ows URL")
	}
	if _, err := New(Config{BaseURL: "x", OWSURL: "x"}); err == nil {
		t.Error("expected error for missing user agent")
	}
}

func TestGetCount(t *testing.T) {
	mock := testutil.NewMockWFS()
	defer mock.Close()

	mock.SetOperationResponse("getfeature", testutil.NewHitsResponse(4173))

	client, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	count, err := client.GetCount(context.Background(), "WHSE_FOREST.TEST_TABLE", QuerySpec{}, "GEOMETRY")
	if err != nil {
		t.Fatalf("GetCount: %v", err)
	}
	if count != 4173 {
		t.Errorf("count = %d, want 4173", count)
	}
}

func TestGetCount_RetriesServerError(t *testing.T) {
	mock := testutil.NewMockWFS()
	defer mock.Close()

	attempts := 0
	mock.SetOperationHandler("getfeature", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<wfs:FeatureCollection xmlns:wfs="http://www.opengis.net/wfs/2.0" numberMatched="10"/>`))
	})

	client, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	count, err := client.GetCount(context.Background(), "WHSE_FOREST.TEST_TABLE", QuerySpec{}, "GEOMETRY")
	if err != nil {
		t.Fatalf("GetCount: %v", err)
	}
	if count != 10 {
		t.Errorf("count = %d, want 10", count)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestGetCount_BadRequestNotRetried(t *testing.T) {
	mock := testutil.NewMockWFS()
	defer mock.Close()

	mock.SetOperationResponse("getfeature", testutil.NewBadFilterResponse())

	client, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.GetCount(context.Background(), "WHSE_FOREST.TEST_TABLE", QuerySpec{Filter: "BOGUS ="}, "GEOMETRY")
	if !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter, got %v", err)
	}
	if n := mock.GetRequestCount(); n != 1 {
		t.Errorf("requests = %d, want 1 (no retry for client error)", n)
	}
}

func TestGetCount_UnparseableResponseExhaustsRetries(t *testing.T) {
	mock := testutil.NewMockWFS()
	defer mock.Close()

	mock.SetOperationResponse("getfeature", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       "<oops",
	})

	client, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.GetCount(context.Background(), "WHSE_FOREST.TEST_TABLE", QuerySpec{}, "GEOMETRY")
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("expected ErrRetryExhausted, got %v", err)
	}
	if n := mock.GetRequestCount(); n != 3 {
		t.Errorf("requests = %d, want 3", n)
	}
}

func TestWindowURL(t *testing.T) {
	client, err := New(testConfig("http://example.com/wfs"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawurl := client.WindowURL(
		"WHSE_FOREST.TEST_TABLE",
		QuerySpec{SortBy: "objectid"},
		"GEOMETRY",
		pagination.Window{Start: 10000, Count: 5000},
	)

	u, err := url.Parse(rawurl)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := u.Query()

	if got := q.Get("typeName"); got != "WHSE_FOREST.TEST_TABLE" {
		t.Errorf("typeName = %q", got)
	}
	if got := q.Get("sortby"); got != "OBJECTID" {
		t.Errorf("sortby = %q, want OBJECTID", got)
	}
	if got := q.Get("count"); got != "5000" {
		t.Errorf("count = %q, want 5000", got)
	}
	if got := q.Get("startIndex"); got != "10000" {
		t.Errorf("startIndex = %q, want 10000", got)
	}
	if got := q.Get("SRSNAME"); got != "epsg:4326" {
		t.Errorf("SRSNAME = %q, want epsg:4326", got)
	}
}

func TestWindowURL_FirstWindowOmitsStartIndex(t *testing.T) {
	client, err := New(testConfig("http://example.com/wfs"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawurl := client.WindowURL("T", QuerySpec{}, "GEOMETRY", pagination.Window{Start: 0, Count: 1000})
	if strings.Contains(rawurl, "startIndex") {
		t.Errorf("first window must not carry startIndex: %s", rawurl)
	}
}

func TestFetchWindow(t *testing.T) {
	mock := testutil.NewMockWFS()
	defer mock.Close()

	mock.SetOperationHandler("getfeature", testutil.NewPagedFeatureHandler(12))

	client, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	features, err := client.FetchWindow(
		context.Background(),
		"WHSE_FOREST.TEST_TABLE",
		QuerySpec{SortBy: "OBJECTID"},
		"GEOMETRY",
		pagination.Window{Start: 5, Count: 5},
	)
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if len(features) != 5 {
		t.Fatalf("features = %d, want 5", len(features))
	}
	if got := features[0].Properties["OBJECTID"]; got != float64(5) {
		t.Errorf("first OBJECTID = %v, want 5", got)
	}
}

func TestCapabilities(t *testing.T) {
	mock := testutil.NewMockWFS()
	defer mock.Close()

	mock.SetOperationResponse("getcapabilities", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       testutil.CapabilitiesBody(10000, "WHSE_FOREST.TEST_TABLE", "WHSE_BASEMAPPING.OTHER_TABLE"),
		Headers:    map[string]string{"Content-Type": "application/xml"},
	})

	client, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	caps, err := client.Capabilities(context.Background())
	if err != nil {
		t.Fatalf("Capabilities: %v", err)
	}
	if caps.PageSize != 10000 {
		t.Errorf("PageSize = %d, want 10000", caps.PageSize)
	}
	if len(caps.Tables) != 2 {
		t.Fatalf("tables = %d, want 2", len(caps.Tables))
	}
	if caps.Tables[0] != "WHSE_FOREST.TEST_TABLE" {
		t.Errorf("table[0] = %q (pub: prefix must be stripped)", caps.Tables[0])
	}
}

func TestDescribeFeatureType(t *testing.T) {
	mock := testutil.NewMockWFS()
	defer mock.Close()

	mock.SetOperationResponse("describefeaturetype", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body: testutil.DescribeFeatureTypeBody([][2]string{
			{"OBJECTID", "xsd:decimal"},
			{"POOL_NAME", "xsd:string"},
			{"GEOMETRY", "gml:MultiSurfacePropertyType"},
		}),
		Headers: map[string]string{"Content-Type": "application/xml"},
	})

	client, err := New(testConfig(mock.URL()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ft, err := client.DescribeFeatureType(context.Background(), "WHSE_FOREST.TEST_TABLE")
	if err != nil {
		t.Fatalf("DescribeFeatureType: %v", err)
	}
	if ft.GeometryColumn != "GEOMETRY" {
		t.Errorf("GeometryColumn = %q, want GEOMETRY", ft.GeometryColumn)
	}
	if ft.GeometryType != "MultiSurface" {
		t.Errorf("GeometryType = %q, want MultiSurface", ft.GeometryType)
	}
	if len(ft.Fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(ft.Fields))
	}
	if ft.Fields[0].Name != "OBJECTID" || ft.Fields[0].Type != "decimal" {
		t.Errorf("field[0] = %+v", ft.Fields[0])
	}
}
