package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/vectoratlas/atlas-cli/internal/atlas"
	"github.com/vectoratlas/atlas-cli/internal/schema"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db        *sql.DB
	batchSize int
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// batchSize <= 0 falls back to DefaultBatchSize.
func NewSQLite(dsn string, batchSize int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SQLiteStore{db: db, batchSize: batchSize}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS ingest_runs (
	run_id      TEXT NOT NULL,
	layer       TEXT NOT NULL,
	accepted    INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	loaded_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_ingest_runs_run_id ON ingest_runs(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// replace rebuilds one table from scratch: drop, create from the registry,
// insert in batches, then index. Index failures are warnings; the table stays
// usable via full scans.
func (s *SQLiteStore) replace(ctx context.Context, table schema.Table, rows [][]any) (int64, error) {
	log := zap.L().With(
		zap.String("component", "store.sqlite"),
		zap.String("table", table.Name),
	)

	if _, err := s.db.ExecContext(ctx, table.DropSQL()); err != nil {
		return 0, eris.Wrapf(err, "sqlite: drop %s", table.Name)
	}
	if _, err := s.db.ExecContext(ctx, table.CreateSQL(schema.DialectSQLite)); err != nil {
		return 0, eris.Wrapf(err, "sqlite: create %s", table.Name)
	}

	insertSQL := table.InsertSQL(schema.DialectSQLite)

	var total int64
	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.insertBatch(ctx, insertSQL, rows[start:end]); err != nil {
			return total, eris.Wrapf(err, "sqlite: insert batch into %s at row %d", table.Name, start)
		}
		total += int64(end - start)
		log.Debug("batch inserted", zap.Int("rows", end-start), zap.Int64("total", total))
	}

	for _, stmt := range table.IndexSQL() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			log.Warn("index creation failed, table remains scannable", zap.String("sql", stmt), zap.Error(err))
		}
	}

	log.Info("table rebuilt", zap.Int64("rows", total))
	return total, nil
}

// insertBatch runs one batch inside a transaction with a prepared statement.
func (s *SQLiteStore) insertBatch(ctx context.Context, insertSQL string, rows [][]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "begin")
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		_ = tx.Rollback()
		return eris.Wrap(err, "prepare")
	}
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return eris.Wrap(err, "exec")
		}
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return eris.Wrap(err, "close statement")
	}
	return eris.Wrap(tx.Commit(), "commit")
}

func (s *SQLiteStore) ReplaceSpecies(ctx context.Context, records []atlas.SpeciesRecord) (int64, error) {
	return s.replace(ctx, schema.Species, speciesRows(records))
}

func (s *SQLiteStore) ReplaceGeoFeatures(ctx context.Context, records []atlas.GeoFeatureRecord) (int64, error) {
	return s.replace(ctx, schema.GeoFeatures, geoFeatureRows(records))
}

func (s *SQLiteStore) SelectFeatures(ctx context.Context, filter FeatureFilter) ([]FeatureRow, error) {
	query := `SELECT geometry_json, properties_json FROM "geo_features" WHERE layer_type = ?`
	args := []any{string(filter.Layer)}

	if len(filter.Species) > 0 {
		query += ` AND species IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(filter.Species)), ", ") + `)`
		for _, sp := range filter.Species {
			args = append(args, sp)
		}
	}

	if b := filter.BBox; b != nil {
		// Point rows match when the point is inside the box; polygon rows
		// when their stored bbox intersects it.
		query += ` AND ((lon IS NOT NULL AND lat IS NOT NULL AND lon >= ? AND lon <= ? AND lat >= ? AND lat <= ?)` +
			` OR (minx IS NOT NULL AND minx <= ? AND maxx >= ? AND miny <= ? AND maxy >= ?))`
		args = append(args,
			b.MinLon, b.MaxLon, b.MinLat, b.MaxLat,
			b.MaxLon, b.MinLon, b.MaxLat, b.MinLat,
		)
	}

	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select features")
	}
	defer rows.Close()

	var result []FeatureRow
	for rows.Next() {
		var fr FeatureRow
		if err := rows.Scan(&fr.GeometryJSON, &fr.PropertiesJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan feature row")
		}
		result = append(result, fr)
	}
	return result, eris.Wrap(rows.Err(), "sqlite: iterate feature rows")
}

func (s *SQLiteStore) ListSpecies(ctx context.Context) ([]atlas.SpeciesRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM "species" ORDER BY rowid`,
		quotedColumnList(schema.Species))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list species")
	}
	defer rows.Close()

	var records []atlas.SpeciesRecord
	for rows.Next() {
		var r atlas.SpeciesRecord
		var chars, regions, diseases, habitats string
		if err := rows.Scan(
			&r.ID, &r.ScientificName, &r.CommonName, &r.VectorStatus,
			&r.ImageURL, &r.Description,
			&chars, &regions, &diseases, &habitats,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan species row")
		}
		r.KeyCharacteristics = unmarshalList(chars)
		r.GeographicRegions = unmarshalList(regions)
		r.RelatedDiseases = unmarshalList(diseases)
		r.HabitatPreferences = unmarshalList(habitats)
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate species rows")
}

func (s *SQLiteStore) RecordRun(ctx context.Context, records []RunRecord) error {
	for _, r := range records {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO ingest_runs (run_id, layer, accepted, skipped, duration_ms, loaded_at) VALUES (?, ?, ?, ?, ?, ?)`,
			r.RunID, r.Layer, r.Accepted, r.Skipped, r.DurationMs, r.LoadedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: record run %s layer %s", r.RunID, r.Layer)
		}
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, layer, accepted, skipped, duration_ms, loaded_at FROM ingest_runs ORDER BY loaded_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.Layer, &r.Accepted, &r.Skipped, &r.DurationMs, &r.LoadedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run row")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate run rows")
}

// quotedColumnList joins a table's column names, quoted, for SELECT lists.
func quotedColumnList(t schema.Table) string {
	names := t.ColumnNames()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = `"` + n + `"`
	}
	return strings.Join(quoted, ", ")
}
