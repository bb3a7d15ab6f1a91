package pg

import (
	"fmt"
	"strings"

	"github.com/bcgeo/bcdata-go/pkg/catalog"
)

// supportedTypes maps the catalogue's Oracle-side column types to postgres
// types. Columns of any other type are dropped from the mirror.
var supportedTypes = map[string]string{
	"NUMBER":   "numeric",
	"VARCHAR2": "varchar",
	"DATE":     "date",
}

// droppedColumns are redundant source columns never mirrored.
var droppedColumns = map[string]bool{
	"FEATURE_AREA_SQM": true,
	"FEATURE_LENGTH_M": true,
}

// supportedGeometryTypes are the geometry types the sink can mirror.
var supportedGeometryTypes = map[string]bool{
	"POINT":           true,
	"MULTIPOINT":      true,
	"LINESTRING":      true,
	"MULTILINESTRING": true,
	"POLYGON":         true,
	"MULTIPOLYGON":    true,
}

// sinkSRID is the coordinate reference features are loaded in (BC Albers).
const sinkSRID = 3005

// gmlGeometryTypes maps the geometry type names reported by
// DescribeFeatureType to simple-feature names.
var gmlGeometryTypes = map[string]string{
	"Point":           "POINT",
	"MultiPoint":      "MULTIPOINT",
	"Curve":           "LINESTRING",
	"LineString":      "LINESTRING",
	"MultiCurve":      "MULTILINESTRING",
	"MultiLineString": "MULTILINESTRING",
	"Surface":         "POLYGON",
	"Polygon":         "POLYGON",
	"MultiSurface":    "MULTIPOLYGON",
	"MultiPolygon":    "MULTIPOLYGON",
}

// GeometryTypeFromService translates a service-reported geometry type to
// the simple-feature name the sink accepts. Tables typed as the generic
// "Geometry" cannot be translated and need an explicit type.
func GeometryTypeFromService(name string) (string, error) {
	if t, ok := gmlGeometryTypes[name]; ok {
		return t, nil
	}
	return "", fmt.Errorf("cannot derive a geometry type from service type %q, specify one explicitly", name)
}

// ColumnDef is one column of the target table.
type ColumnDef struct {
	Name     string
	SQLType  string
	Comments string
}

// TableSpec describes the target table derived from the catalogue's
// definition of the source.
type TableSpec struct {
	Schema       string
	Table        string
	Columns      []ColumnDef
	GeometryType string
	PrimaryKey   string
	Comments     string
}

// QualifiedName returns schema.table.
func (t *TableSpec) QualifiedName() string {
	return t.Schema + "." + t.Table
}

// ColumnNames returns the attribute column names in order.
func (t *TableSpec) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// BuildTableSpec translates a catalogue definition into a target table
// spec. Unsupported column types and redundant columns are dropped; the
// geometry column is always multipart since responses can mix single and
// multipart geometries.
func BuildTableSpec(schemaName, tableName string, def *catalog.Definition, geometryType, primaryKey string) (*TableSpec, error) {
	if def == nil || len(def.Columns) == 0 {
		return nil, fmt.Errorf("cannot create table, schema details not found via catalogue")
	}

	geometryType = strings.ToUpper(geometryType)
	if !supportedGeometryTypes[geometryType] {
		return nil, fmt.Errorf("geometry type %s is not supported", geometryType)
	}
	if !strings.HasPrefix(geometryType, "MULTI") {
		geometryType = "MULTI" + geometryType
	}

	spec := &TableSpec{
		Schema:       strings.ToLower(schemaName),
		Table:        strings.ToLower(tableName),
		GeometryType: geometryType,
		PrimaryKey:   strings.ToLower(primaryKey),
		Comments:     def.Comments,
	}

	for _, col := range def.Columns {
		sqlType, ok := supportedTypes[col.Type]
		if !ok {
			continue
		}
		if droppedColumns[col.Name] {
			continue
		}
		if col.Type == "VARCHAR2" && col.Precision > 0 {
			sqlType = fmt.Sprintf("varchar(%d)", col.Precision)
		}
		spec.Columns = append(spec.Columns, ColumnDef{
			Name:     strings.ToLower(col.Name),
			SQLType:  sqlType,
			Comments: col.Comments,
		})
	}

	if len(spec.Columns) == 0 {
		return nil, fmt.Errorf("no supported columns in catalogue definition for %s", spec.QualifiedName())
	}

	if spec.PrimaryKey != "" {
		found := false
		for _, c := range spec.Columns {
			if c.Name == spec.PrimaryKey {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("primary key column %s is not present in %s", spec.PrimaryKey, spec.QualifiedName())
		}
	}

	return spec, nil
}

// createSQL renders the CREATE TABLE statement.
func (t *TableSpec) createSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (", t.QualifiedName())
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q %s", c.Name, c.SQLType)
		if c.Name == t.PrimaryKey {
			b.WriteString(" PRIMARY KEY")
		}
	}
	fmt.Fprintf(&b, ", geom geometry(%s,%d))", t.GeometryType, sinkSRID)
	return b.String()
}
