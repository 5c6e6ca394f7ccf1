// Package schema is the single definition of the persisted table shapes,
// shared by the batch loader and the query service so the two can never
// drift apart.
package schema

import (
	"fmt"
	"strings"
)

// ColumnType is the logical type of a column, mapped to a concrete SQL type
// per dialect.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInteger
	TypeReal
	TypeBoolean
)

// Dialect selects the SQL flavor emitted by the registry.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// Column describes one scalar column.
type Column struct {
	Name    string
	Type    ColumnType
	NotNull bool
	Indexed bool
}

// Table is a named, ordered set of columns.
type Table struct {
	Name    string
	Columns []Column
}

// Species is the catalog metadata table. The list-valued species attributes
// are stored as serialized JSON arrays in plain text columns.
var Species = Table{
	Name: "species",
	Columns: []Column{
		{Name: "id", Type: TypeText, NotNull: true, Indexed: true},
		{Name: "scientific_name", Type: TypeText, NotNull: true, Indexed: true},
		{Name: "common_name", Type: TypeText},
		{Name: "vector_status", Type: TypeText},
		{Name: "image_url", Type: TypeText},
		{Name: "description", Type: TypeText},
		{Name: "key_characteristics", Type: TypeText},
		{Name: "geographic_regions", Type: TypeText},
		{Name: "related_diseases", Type: TypeText},
		{Name: "habitat_preferences", Type: TypeText},
	},
}

// GeoFeatures unions all four spatial layers. geometry_json/properties_json
// are authoritative; everything after them is a derived filter column and is
// nullable.
var GeoFeatures = Table{
	Name: "geo_features",
	Columns: []Column{
		{Name: "layer_type", Type: TypeText, NotNull: true, Indexed: true},
		{Name: "species", Type: TypeText, Indexed: true},
		{Name: "geometry_type", Type: TypeText, NotNull: true},
		{Name: "geometry_json", Type: TypeText, NotNull: true},
		{Name: "properties_json", Type: TypeText, NotNull: true},
		{Name: "lon", Type: TypeReal},
		{Name: "lat", Type: TypeReal},
		{Name: "minx", Type: TypeReal},
		{Name: "miny", Type: TypeReal},
		{Name: "maxx", Type: TypeReal},
		{Name: "maxy", Type: TypeReal},
		{Name: "centroid_lon", Type: TypeReal},
		{Name: "centroid_lat", Type: TypeReal},
		{Name: "obs_date", Type: TypeText},
		{Name: "count", Type: TypeInteger},
		{Name: "data_source", Type: TypeText, Indexed: true},
		{Name: "dist_status", Type: TypeText},
		{Name: "probability", Type: TypeReal},
		{Name: "site_type", Type: TypeText},
		{Name: "larvae_present", Type: TypeBoolean},
	},
}

// sqlType maps a logical column type to its dialect-specific SQL type.
func sqlType(t ColumnType, d Dialect) string {
	switch d {
	case DialectPostgres:
		switch t {
		case TypeInteger:
			return "BIGINT"
		case TypeReal:
			return "DOUBLE PRECISION"
		case TypeBoolean:
			return "BOOLEAN"
		default:
			return "TEXT"
		}
	default:
		// SQLite has no native boolean; INTEGER 0/1 is conventional.
		switch t {
		case TypeInteger, TypeBoolean:
			return "INTEGER"
		case TypeReal:
			return "REAL"
		default:
			return "TEXT"
		}
	}
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// DropSQL returns the idempotent drop statement for the table.
func (t Table) DropSQL() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(t.Name))
}

// CreateSQL returns the create statement for the table in the given dialect.
func (t Table) CreateSQL(d Dialect) string {
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		def := fmt.Sprintf("%s %s", quoteIdent(c.Name), sqlType(c.Type, d))
		if c.NotNull {
			def += " NOT NULL"
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(t.Name), strings.Join(defs, ", "))
}

// InsertSQL returns a single-row insert statement covering every column, with
// dialect-appropriate placeholders.
func (t Table) InsertSQL(d Dialect) string {
	cols := make([]string, len(t.Columns))
	params := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteIdent(c.Name)
		if d == DialectPostgres {
			params[i] = fmt.Sprintf("$%d", i+1)
		} else {
			params[i] = "?"
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(t.Name), strings.Join(cols, ", "), strings.Join(params, ", "))
}

// IndexSQL returns one CREATE INDEX statement per indexed column. These are
// plain equality indexes; the coarse bbox/centroid columns deliberately stand
// in for a spatial index.
func (t Table) IndexSQL() []string {
	var stmts []string
	for _, c := range t.Columns {
		if !c.Indexed {
			continue
		}
		stmts = append(stmts, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			quoteIdent(fmt.Sprintf("idx_%s_%s", t.Name, c.Name)),
			quoteIdent(t.Name),
			quoteIdent(c.Name),
		))
	}
	return stmts
}

// quoteIdent double-quotes an identifier. Table and column names come from
// the registry's own constants, never from user input; quoting guards against
// reserved words like "count".
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
