package integration

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bcgeo/bcdata-go/pkg/catalog"
	"github.com/bcgeo/bcdata-go/pkg/pg"
)

// setupPostgres creates a PostGIS container for integration testing.
func setupPostgres(t *testing.T) (string, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgis/postgis:16-3.4-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "bcdata",
			"POSTGRES_PASSWORD": "bcdata",
			"POSTGRES_DB":       "bcdata",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(2 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostGIS container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	url := "postgres://bcdata:bcdata@" + host + ":" + port.Port() + "/bcdata"

	cleanup := func() {
		container.Terminate(ctx)
	}

	return url, cleanup
}

func testDefinition() *catalog.Definition {
	return &catalog.Definition{
		Comments: "Spatial pool polygons for integration testing",
		Columns: []catalog.Column{
			{Name: "OBJECTID", Type: "NUMBER", Comments: "Surrogate key"},
			{Name: "POOL_NAME", Type: "VARCHAR2", Precision: 200},
			{Name: "SURVEY_DATE", Type: "DATE"},
		},
	}
}

func testFeatures(n int) []*geojson.Feature {
	features := make([]*geojson.Feature, 0, n)
	for i := 0; i < n; i++ {
		f := geojson.NewFeature(orb.Point{1368770.5 + float64(i), 466069.0})
		f.ID = "TEST." + strconv.Itoa(i)
		f.Properties = geojson.Properties{
			"OBJECTID":    i,
			"POOL_NAME":   "pool",
			"SURVEY_DATE": "2020-01-15",
		}
		features = append(features, f)
	}
	return features
}

// TestSinkLoadFlow exercises the full load path: create the target table,
// batch-insert features with geometry, and stamp the load log.
func TestSinkLoadFlow(t *testing.T) {
	url, cleanup := setupPostgres(t)
	defer cleanup()

	ctx := context.Background()

	sink, err := pg.NewSink(ctx, url)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer sink.Close()

	spec, err := pg.BuildTableSpec("whse_forest", "test_table", testDefinition(), "POINT", "objectid")
	if err != nil {
		t.Fatalf("BuildTableSpec: %v", err)
	}

	if err := sink.CreateTable(ctx, spec); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	exists, err := sink.TableExists(ctx, "whse_forest", "test_table")
	if err != nil {
		t.Fatalf("TableExists: %v", err)
	}
	if !exists {
		t.Fatal("table not created")
	}

	columns, err := sink.Columns(ctx, "whse_forest", "test_table")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if len(columns) != 3 {
		t.Fatalf("columns = %v, want 3 entries", columns)
	}

	rows, err := sink.LoadFeatures(ctx, "whse_forest", "test_table", spec.ColumnNames(), testFeatures(2500))
	if err != nil {
		t.Fatalf("LoadFeatures: %v", err)
	}
	if rows != 2500 {
		t.Errorf("rows = %d, want 2500", rows)
	}

	if err := sink.RecordLoad(ctx, "whse_forest.test_table", time.Now()); err != nil {
		t.Fatalf("RecordLoad: %v", err)
	}
	// Recording again updates the stamp in place.
	if err := sink.RecordLoad(ctx, "whse_forest.test_table", time.Now()); err != nil {
		t.Fatalf("RecordLoad (upsert): %v", err)
	}
}

// TestSinkAppendFlow loads twice into the same table, the way an
// append-mode download does.
func TestSinkAppendFlow(t *testing.T) {
	url, cleanup := setupPostgres(t)
	defer cleanup()

	ctx := context.Background()

	sink, err := pg.NewSink(ctx, url)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer sink.Close()

	spec, err := pg.BuildTableSpec("whse_forest", "append_table", testDefinition(), "POINT", "objectid")
	if err != nil {
		t.Fatalf("BuildTableSpec: %v", err)
	}
	if err := sink.CreateTable(ctx, spec); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	first := testFeatures(10)
	if _, err := sink.LoadFeatures(ctx, "whse_forest", "append_table", spec.ColumnNames(), first); err != nil {
		t.Fatalf("LoadFeatures (initial): %v", err)
	}

	// Second load with distinct keys, as a bounds-partitioned append would
	// produce.
	second := testFeatures(10)
	for i, f := range second {
		f.Properties["OBJECTID"] = 100 + i
	}
	rows, err := sink.LoadFeatures(ctx, "whse_forest", "append_table", spec.ColumnNames(), second)
	if err != nil {
		t.Fatalf("LoadFeatures (append): %v", err)
	}
	if rows != 10 {
		t.Errorf("rows = %d, want 10", rows)
	}
}
