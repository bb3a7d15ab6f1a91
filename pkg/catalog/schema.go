package catalog

// Schema is the typed descriptor of one dataset as served by the feature
// service: ordered attribute fields plus the geometry column. Produced once
// per session and threaded explicitly to consumers (the page planner, the
// relational sink) rather than re-inferred per record.
type Schema struct {
	// Table is the fully qualified, uppercase table name.
	Table string `json:"table"`

	// Fields are the attribute columns in service order.
	Fields []SchemaField `json:"fields"`

	// GeometryColumn is the name of the geometry field.
	GeometryColumn string `json:"geometry_column"`

	// GeometryType is the service-reported geometry type (e.g. "Geometry",
	// "MultiSurface").
	GeometryType string `json:"geometry_type"`
}

// SchemaField is one attribute column.
type SchemaField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// HasField reports whether the schema carries the named attribute column.
func (s *Schema) HasField(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// SortKey returns the column used to give paged requests a total order.
// OBJECTID is the source-assigned row identifier and the default; several
// GSR tables lack it and carry SEQUENCE_ID instead. Failing both, the
// first column is presumed to be the primary key.
func (s *Schema) SortKey() string {
	if s.HasField("OBJECTID") {
		return "OBJECTID"
	}
	if s.HasField("SEQUENCE_ID") {
		return "SEQUENCE_ID"
	}
	if len(s.Fields) > 0 {
		return s.Fields[0].Name
	}
	return ""
}

// Definition is the catalogue's description of a dataset's source table:
// the Oracle-side column details used to mirror the table in a database,
// plus table comments.
type Definition struct {
	// Comments is the table-level description, if the catalogue has one.
	Comments string `json:"comments"`

	// Columns are the source column details.
	Columns []Column `json:"columns"`
}

// Column is one source column as described by the catalogue.
type Column struct {
	Name      string `json:"column_name"`
	Type      string `json:"data_type"`
	Precision int    `json:"data_precision"`
	Comments  string `json:"column_comments"`
}
